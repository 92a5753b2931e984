package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Update payloads carry full document content, so the body cap is
// generous. 10MB still bounds abuse.
const maxBodyBytes = 10 << 20

// ParseJSON decodes the request body into dest. The writer is needed so
// MaxBytesReader can answer an oversized body with 413.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
