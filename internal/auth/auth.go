// Package auth verifies bearer tokens issued by the managed auth provider
// and threads the resulting identity explicitly through request handling.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the authenticated caller, established once per request by the
// middleware and passed as an explicit parameter into services and storage.
type Identity struct {
	UserID uuid.UUID
}

// ErrUnauthenticated indicates a missing or invalid bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

type ctxKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// FromContext returns the identity established by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(Identity)
	return ident, ok
}

// Verifier validates HS256 bearer tokens against a shared secret and maps
// the subject claim to a user ID.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyRequest extracts and validates the Authorization header of r.
func (v *Verifier) VerifyRequest(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, ErrUnauthenticated
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return v.Verify(token)
}

// Verify validates a raw token string.
func (v *Verifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthenticated
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, ErrUnauthenticated
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: userID}, nil
}
