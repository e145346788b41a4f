package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	userID := uuid.New()
	v := NewVerifier(testSecret)

	ident, err := v.Verify(signToken(t, testSecret, userID.String()))
	require.NoError(t, err)
	assert.Equal(t, userID, ident.UserID)
}

func TestVerifyRejects(t *testing.T) {
	userID := uuid.New()
	v := NewVerifier(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other-secret", userID.String())},
		{"garbage token", "not.a.jwt"},
		{"non-uuid subject", signToken(t, testSecret, "alice")},
		{"empty subject", signToken(t, testSecret, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, verr := NewVerifier(testSecret).Verify(signed)
	assert.ErrorIs(t, verr, ErrUnauthenticated)
}

func TestVerifyRequest(t *testing.T) {
	userID := uuid.New()
	v := NewVerifier(testSecret)

	r := httptest.NewRequest("GET", "/topics", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String()))
	ident, err := v.VerifyRequest(r)
	require.NoError(t, err)
	assert.Equal(t, userID, ident.UserID)

	r = httptest.NewRequest("GET", "/topics", nil)
	_, err = v.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	r = httptest.NewRequest("GET", "/topics", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err = v.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ident := Identity{UserID: uuid.New()}
	ctx := WithIdentity(t.Context(), ident)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, ident, got)

	_, ok = FromContext(t.Context())
	assert.False(t, ok)
}
