package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/foodies-go/config"
)

func testCodec(ttl time.Duration) *TokenCodec {
	return NewTokenCodec(config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenDuration: ttl,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	codec := testCodec(time.Hour)

	token, err := codec.Issue("user-1", "session-1", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestTokenExpired(t *testing.T) {
	codec := testCodec(-time.Minute)

	token, err := codec.Issue("user-1", "session-1", "")
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := testCodec(time.Hour)
	verifier := NewTokenCodec(config.AuthConfig{
		JWTSecret:     "a-different-secret",
		TokenDuration: time.Hour,
	})

	token, err := issuer.Issue("user-1", "session-1", "")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestTokenTampered(t *testing.T) {
	codec := testCodec(time.Hour)

	token, err := codec.Issue("user-1", "session-1", "")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = codec.Verify(tampered)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	codec := testCodec(time.Hour)

	_, err := codec.Verify("not-a-token")
	assert.Error(t, err)
}
