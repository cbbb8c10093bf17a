// Package session holds the bearer credential of one login session and
// persists it through an injectable Store.
package session

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/coevo/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the opaque bearer token plus what the client knows about its
// owner. Handle and ExpiresAt come from the token claims when it is a JWT;
// UserID always comes from GET /me. ExpiresAt is zero when unknown.
type Identity struct {
	Token     string
	Handle    string
	UserID    int64
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is before now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// IdentityFromToken decodes the sub (user handle) and exp claims of a JWT
// access token. The signature is not verified: the client never holds the
// server secret, and the server re-validates the token on every request.
func IdentityFromToken(token string) (Identity, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	id := Identity{Token: token, Handle: claims.Subject}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
