package httputil

import (
	"context"
	"net/http"
)

type ctxKey int

const userIDKey ctxKey = iota

// WithUserID returns a shallow copy of r whose context carries the
// authenticated user. Set by the auth middleware; every document
// operation is scoped to this identity.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// UserID reports the authenticated user on the request, if any.
func UserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok && id != ""
}
