package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the JWT claims issued by the external identity
// provider. Only the subject (user ID) and role are consumed here; session
// issuance itself is out of scope.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UserID returns the stable user identifier carried in the token subject.
func (c *IdentityClaims) UserID() string {
	return c.Subject
}
