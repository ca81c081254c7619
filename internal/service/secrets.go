package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
)

var ErrSecretsDisabled = errors.New("user secret encryption key is not configured")

// SecretCipher seals per-user API keys with AES-256-GCM. The stored form is
// base64(nonce || ciphertext).
type SecretCipher struct {
	key []byte
}

func NewSecretCipher() *SecretCipher {
	return NewSecretCipherFromKey(os.Getenv("USER_SECRET_ENCRYPTION_KEY"))
}

func NewSecretCipherFromKey(raw string) *SecretCipher {
	if raw == "" {
		return &SecretCipher{}
	}
	sum := sha256.Sum256([]byte(raw))
	return &SecretCipher{key: sum[:]}
}

func (c *SecretCipher) Enabled() bool {
	return c != nil && len(c.key) == 32
}

func (c *SecretCipher) aead() (cipher.AEAD, error) {
	if !c.Enabled() {
		return nil, ErrSecretsDisabled
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c *SecretCipher) EncryptString(plain string) (string, error) {
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SecretCipher) DecryptString(enc string) (string, error) {
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("invalid ciphertext")
	}
	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// KeyLast4 is what the settings screen shows for a stored key.
func KeyLast4(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}
