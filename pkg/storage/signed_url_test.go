package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("content-1", "contents/content-1/slides.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	contentID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "content-1", contentID)
	assert.Equal(t, "contents/content-1/slides.pdf", relPath)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("content-1", "contents/content-1/slides.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "ff")
	assert.Error(t, err)
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	other := NewSignedURLSigner("different", time.Minute)

	token, _, err := signer.Generate("content-1", "file.pdf")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)

	token, _, err := signer.Generate("content-1", "file.pdf")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, _, _, err = signer.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLRequiresInput(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	_, _, err := signer.Generate("", "file.pdf")
	assert.Error(t, err)
	_, _, err = signer.Generate("content-1", "")
	assert.Error(t, err)
}
