package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken("alice", testSecret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := IssueToken("alice", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := IssueToken("alice", testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("another-secret-another-secret-ab"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
