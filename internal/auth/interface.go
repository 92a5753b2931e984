package auth

import "inkwell/internal/domain/models"

// JWTVerifier checks bearer tokens and extracts the caller's identity.
type JWTVerifier interface {
	// VerifyToken parses and validates a raw token string. Any failure
	// (bad signature, expiry, wrong role) comes back as an error; callers
	// treat every failure as unauthorized.
	VerifyToken(tokenString string) (*models.IdentityClaims, error)

	// Close releases background resources such as the JWKS refresh loop.
	Close() error
}
