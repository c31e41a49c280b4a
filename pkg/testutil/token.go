package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// SignToken mints an HS256 token with the given role claim.
func SignToken(t *testing.T, signingKey, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "test-operator",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err, "failed to sign token")
	return signed
}

// WithAdminToken attaches an admin bearer token to the request.
func WithAdminToken(t *testing.T, req *http.Request, signingKey string) *http.Request {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+SignToken(t, signingKey, "admin"))
	return req
}
