package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims as presented, without signature verification.
// Verification is the backend's job; the console only displays them.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
	Raw       jwt.MapClaims
}

// ParseClaims decodes token without verifying it.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("malformed token: %w", err)
	}

	c := Claims{Raw: mc}
	c.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if role, ok := mc["role"].(string); ok {
		c.Role = role
	}
	return c, nil
}

// Expired reports whether the claims carry an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
