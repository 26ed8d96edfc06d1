package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-management-service/internal/domain"
)

const testSecret = "unit-test-secret"

func newTestCodec() *TokenCodec {
	return NewTokenCodec(testSecret, 15*time.Minute, 24*time.Hour)
}

func newExpiringCodec() *TokenCodec {
	return NewTokenCodec(testSecret, time.Millisecond, 24*time.Hour)
}

func TestIssueValidateRoundTrip(t *testing.T) {
	codec := newTestCodec()

	for _, username := range []string{"alice", "bob", "user.with-chars_99"} {
		token, expiresAt, err := codec.Issue(username)
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.True(t, expiresAt.After(time.Now()))

		subject, err := codec.ParseSubject(token)
		require.NoError(t, err)
		assert.Equal(t, username, subject)

		assert.True(t, codec.Validate(token, &domain.User{Username: username}))
		assert.False(t, codec.Validate(token, &domain.User{Username: "mallory"}))
	}
}

func TestIssueWithoutSecret(t *testing.T) {
	codec := NewTokenCodec("", 15*time.Minute, 24*time.Hour)

	_, _, err := codec.Issue("alice")
	assert.ErrorIs(t, err, ErrSigningKey)
}

func TestExpiredTokenReportsExpiry(t *testing.T) {
	codec := newExpiringCodec()

	token, _, err := codec.Issue("alice")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, err = codec.ParseSubject(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.False(t, codec.Validate(token, &domain.User{Username: "alice"}))

	// the subject survives expiry so the refresh path can resolve it
	subject, err := codec.ExpiredSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTamperedSignatureIsMalformedNotExpired(t *testing.T) {
	codec := newTestCodec()

	token, _, err := codec.Issue("alice")
	require.NoError(t, err)

	idx := strings.LastIndex(token, ".")
	require.Greater(t, idx, 0)
	sig := []byte(token[idx+1:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := token[:idx+1] + string(sig)

	_, err = codec.ParseSubject(tampered)
	assert.ErrorIs(t, err, ErrTokenMalformed)
	assert.NotErrorIs(t, err, ErrTokenExpired)

	_, err = codec.ExpiredSubject(tampered)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestGarbageTokenIsMalformed(t *testing.T) {
	codec := newTestCodec()

	for _, garbage := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.ParseSubject(garbage)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	}
}

func TestRefreshTokenOutlivesAccessToken(t *testing.T) {
	codec := newExpiringCodec()

	access, _, err := codec.Issue("alice")
	require.NoError(t, err)
	refresh, _, err := codec.IssueRefresh("alice")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = codec.ParseSubject(access)
	assert.ErrorIs(t, err, ErrTokenExpired)

	subject, err := codec.ParseSubject(refresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}
