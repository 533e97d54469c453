package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotLoggedIn = errors.New("auth: not logged in")
	// ErrOpaqueToken means the token is not a JWT and cannot be introspected.
	ErrOpaqueToken = errors.New("auth: opaque token")
)

// Claims is what the client can read from its own token. The signature is
// not verified: only the server can do that.
type Claims struct {
	Subject   string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Claims decodes the current token's payload.
func (s *Session) Claims() (Claims, error) {
	st := s.State()
	if !st.IsAuthenticated {
		return Claims{}, ErrNotLoggedIn
	}
	return decodeClaims(stripBearer(st.Token))
}

func decodeClaims(raw string) (Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return Claims{}, ErrOpaqueToken
	}
	rc := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, rc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrOpaqueToken, err)
	}
	c := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		t := rc.IssuedAt.Time
		c.IssuedAt = &t
	}
	if rc.ExpiresAt != nil {
		t := rc.ExpiresAt.Time
		c.ExpiresAt = &t
	}
	return c, nil
}
