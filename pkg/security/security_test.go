package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastArgon() *Argon {
	a := NewArgon()
	a.Memory = 1024
	a.Iterations = 1
	return a
}

func TestArgonRoundTrip(t *testing.T) {
	a := fastArgon()

	hash, err := a.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := a.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgonRejectsGarbage(t *testing.T) {
	_, err := fastArgon().Verify("x", "$bcrypt$nope")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestArgonNeedsRehash(t *testing.T) {
	weak := fastArgon()
	hash, err := weak.Hash("password123")
	require.NoError(t, err)

	assert.True(t, NewArgon().NeedsRehash(hash))
	assert.False(t, weak.NeedsRehash(hash))
}

func TestSessionsIssueParse(t *testing.T) {
	s := NewSessions("secret", time.Hour)

	token, err := s.Issue("user123")
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)

	_, err = NewSessions("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionsExpired(t *testing.T) {
	s := NewSessions("secret", -time.Minute)

	token, err := s.Issue("user123")
	require.NoError(t, err)

	_, err = s.Parse(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestTOTP(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("Szoniska", "someone@example.com")
	require.NoError(t, err)
	assert.Contains(t, url, "otpauth://totp/")

	now := time.Now()
	code, err := TOTPCode(secret, now)
	require.NoError(t, err)

	assert.True(t, ValidateTOTP(secret, code, now))
	assert.False(t, ValidateTOTP(secret, "12345", now))
	assert.False(t, ValidateTOTP(secret, code, now.Add(10*time.Minute)))

	dataURL, err := QRCodeDataURL(url, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))
}
