package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of the signed session token. The registered
// ID claim (jti) keys the server-side session entry used for revocation.
type SessionClaims struct {
	UserID  string `json:"user_id"`
	LoginID string `json:"login_id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Roles   []Role `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the session carries r.
func (c *SessionClaims) HasRole(r Role) bool {
	if c == nil {
		return false
	}
	for _, role := range c.Roles {
		if role == r {
			return true
		}
	}
	return false
}
