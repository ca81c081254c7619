package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretCipherRoundTrip(t *testing.T) {
	c := NewSecretCipherFromKey("test-encryption-key")
	require.True(t, c.Enabled())

	enc, err := c.EncryptString("AIzaSyExample1234")
	require.NoError(t, err)
	assert.NotContains(t, enc, "AIzaSyExample1234")

	again, err := c.EncryptString("AIzaSyExample1234")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again)

	plain, err := c.DecryptString(enc)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyExample1234", plain)

	_, err = NewSecretCipherFromKey("other-key").DecryptString(enc)
	assert.Error(t, err)
}

func TestSecretCipherDisabled(t *testing.T) {
	c := NewSecretCipherFromKey("")
	assert.False(t, c.Enabled())
	_, err := c.EncryptString("x")
	assert.ErrorIs(t, err, ErrSecretsDisabled)
	_, err = c.DecryptString("x")
	assert.ErrorIs(t, err, ErrSecretsDisabled)
}

func TestKeyLast4(t *testing.T) {
	assert.Equal(t, "1234", KeyLast4(" AIzaSyExample1234 "))
	assert.Equal(t, "abc", KeyLast4("abc"))
}

type fakeEncryptedKeys struct {
	enc *string
	err error
}

func (f fakeEncryptedKeys) GetGeminiAPIKeyEncrypted(context.Context, string) (*string, error) {
	return f.enc, f.err
}

func TestGeminiKeyResolver(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "server-key")
	c := NewSecretCipherFromKey("test-encryption-key")
	enc, err := c.EncryptString("user-key")
	require.NoError(t, err)

	got, err := NewGeminiKeyResolver(fakeEncryptedKeys{enc: &enc}, c).GeminiAPIKey(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "user-key", got)

	got, err = NewGeminiKeyResolver(fakeEncryptedKeys{}, c).GeminiAPIKey(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "server-key", got)

	got, err = NewGeminiKeyResolver(fakeEncryptedKeys{err: errors.New("db down")}, c).GeminiAPIKey(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "server-key", got)

	got, err = NewGeminiKeyResolver(fakeEncryptedKeys{enc: &enc}, NewSecretCipherFromKey("")).GeminiAPIKey(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "server-key", got)
}
