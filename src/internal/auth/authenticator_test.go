// FILE: src/internal/auth/authenticator_test.go
package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"logsieve/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func basicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestNew_Disabled(t *testing.T) {
	a, err := New(nil, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = New(&config.AuthConfig{Type: "none"}, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestNew_JWTWithoutKey(t *testing.T) {
	cfg := &config.AuthConfig{
		Type: "bearer",
		BearerAuth: &config.BearerAuthConfig{
			JWT: &config.JWTConfig{},
		},
	}
	_, err := New(cfg, newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key")
}

func TestAuthenticateHTTP_NilAllowsAll(t *testing.T) {
	var a *Authenticator

	session, err := a.AuthenticateHTTP("", "10.0.0.1:1234")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "none", session.Method)
	assert.NotEmpty(t, session.ID)
}

func TestAuthenticateHTTP_Basic(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.AuthConfig{
		Type: "basic",
		BasicAuth: &config.BasicAuthConfig{
			Users: []config.BasicAuthUser{
				{Username: "alice", PasswordHash: string(hash)},
			},
		},
	}
	a, err := New(cfg, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, a)

	t.Run("valid credentials", func(t *testing.T) {
		session, err := a.AuthenticateHTTP(basicHeader("alice", "hunter2"), "10.0.0.1:1234")
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Username)
		assert.Equal(t, "basic", session.Method)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := a.AuthenticateHTTP(basicHeader("alice", "wrong"), "10.0.0.2:1234")
		assert.Error(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := a.AuthenticateHTTP(basicHeader("mallory", "hunter2"), "10.0.0.3:1234")
		assert.Error(t, err)
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := a.AuthenticateHTTP("Bearer abc", "10.0.0.4:1234")
		assert.Error(t, err)
	})
}

func TestAuthenticateHTTP_BearerStatic(t *testing.T) {
	cfg := &config.AuthConfig{
		Type: "bearer",
		BearerAuth: &config.BearerAuthConfig{
			Tokens: []string{"secret-token"},
		},
	}
	a, err := New(cfg, newTestLogger())
	require.NoError(t, err)

	session, err := a.AuthenticateHTTP("Bearer secret-token", "10.0.0.1:1234")
	require.NoError(t, err)
	assert.Equal(t, "bearer", session.Method)

	_, err = a.AuthenticateHTTP("Bearer other-token", "10.0.0.2:1234")
	assert.Error(t, err)
}

func TestAuthenticateHTTP_JWT(t *testing.T) {
	cfg := &config.AuthConfig{
		Type: "bearer",
		BearerAuth: &config.BearerAuthConfig{
			JWT: &config.JWTConfig{
				SigningKey: "test-signing-key",
				Issuer:     "logsieve-test",
			},
		},
	}
	a, err := New(cfg, newTestLogger())
	require.NoError(t, err)

	makeToken := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)
		return signed
	}

	t.Run("valid token", func(t *testing.T) {
		signed := makeToken(jwt.MapClaims{
			"sub": "bob",
			"iss": "logsieve-test",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		session, err := a.AuthenticateHTTP("Bearer "+signed, "10.0.1.1:1234")
		require.NoError(t, err)
		assert.Equal(t, "jwt", session.Method)
		assert.Equal(t, "bob", session.Username)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		signed := makeToken(jwt.MapClaims{
			"iss": "someone-else",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := a.AuthenticateHTTP("Bearer "+signed, "10.0.1.2:1234")
		assert.Error(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		signed := makeToken(jwt.MapClaims{"iss": "logsieve-test"})
		_, err := a.AuthenticateHTTP("Bearer "+signed, "10.0.1.3:1234")
		assert.Error(t, err)
	})
}

func TestGetStats(t *testing.T) {
	var nilAuth *Authenticator
	stats := nilAuth.GetStats()
	assert.Equal(t, false, stats["enabled"])

	cfg := &config.AuthConfig{
		Type: "bearer",
		BearerAuth: &config.BearerAuthConfig{
			Tokens: []string{"a", "b"},
		},
	}
	a, err := New(cfg, newTestLogger())
	require.NoError(t, err)

	stats = a.GetStats()
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, "bearer", stats["type"])
	assert.Equal(t, 2, stats["static_tokens"])
}
