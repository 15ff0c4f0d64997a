package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "exports/english_mock.csv")
	require.NoError(t, err)

	grant, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "job-1", grant.JobID)
	assert.Equal(t, "exports/english_mock.csv", grant.Path)
	assert.True(t, grant.ExpiresAt.Equal(expiresAt))
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("job-1", "a.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	grant, err := signer.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "job-1", grant.JobID)
}

func TestSignedURLTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "a.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLRequiresSecret(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("job", "a.csv")
	assert.Error(t, err)
}
