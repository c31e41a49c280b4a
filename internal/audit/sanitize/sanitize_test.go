package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_RedactsSensitiveKeys(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		redacted bool
	}{
		{"password", "password", true},
		{"mixed case", "Password", true},
		{"embedded fragment", "user_api_key", true},
		{"token suffix", "refreshToken", true},
		{"authorization header", "authorization", true},
		{"cookie", "session_cookie", true},
		{"credential", "aws_credentials", true},
		{"secret", "client_secret", true},
		{"plain key untouched", "username", false},
		{"action untouched", "action", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Sanitize(map[string]any{tt.key: "value"})
			if tt.redacted {
				assert.Equal(t, Marker, out[tt.key])
			} else {
				assert.Equal(t, "value", out[tt.key])
			}
		})
	}
}

func TestSanitize_RedactsAtDepth(t *testing.T) {
	in := map[string]any{
		"request": map[string]any{
			"headers": map[string]any{
				"Authorization": "Bearer abc",
				"Accept":        "application/json",
			},
		},
		"attempts": []any{
			map[string]any{"password": "hunter2", "user": "alice"},
			"plain string",
		},
	}

	out := Sanitize(in)

	headers := out["request"].(map[string]any)["headers"].(map[string]any)
	assert.Equal(t, Marker, headers["Authorization"])
	assert.Equal(t, "application/json", headers["Accept"])

	attempts := out["attempts"].([]any)
	first := attempts[0].(map[string]any)
	assert.Equal(t, Marker, first["password"])
	assert.Equal(t, "alice", first["user"])
	assert.Equal(t, "plain string", attempts[1])
}

func TestSanitize_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"password": "hunter2",
		"nested":   map[string]any{"token": "abc"},
	}

	_ = Sanitize(in)

	require.Equal(t, "hunter2", in["password"])
	require.Equal(t, "abc", in["nested"].(map[string]any)["token"])
}

func TestSanitize_Idempotent(t *testing.T) {
	in := map[string]any{
		"password": "hunter2",
		"user":     "alice",
	}

	once := Sanitize(in)
	twice := Sanitize(once)

	assert.Equal(t, once, twice)
}

func TestSanitize_NilInput(t *testing.T) {
	assert.Nil(t, Sanitize(nil))
}
