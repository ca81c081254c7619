package service

import (
	"context"
	"log"
	"os"
	"strings"
)

type APIKeyResolver interface {
	GeminiAPIKey(ctx context.Context, userID string) (string, error)
}

type encryptedGeminiKeySource interface {
	GetGeminiAPIKeyEncrypted(ctx context.Context, userID string) (*string, error)
}

// GeminiKeyResolver prefers the user's own encrypted key and falls back to
// the server-wide GEMINI_API_KEY. An empty result means "no AI", which
// callers treat as a routing decision rather than an error.
type GeminiKeyResolver struct {
	settings encryptedGeminiKeySource
	cipher   *SecretCipher
	fallback string
}

func NewGeminiKeyResolver(settings encryptedGeminiKeySource, cipher *SecretCipher) *GeminiKeyResolver {
	return &GeminiKeyResolver{
		settings: settings,
		cipher:   cipher,
		fallback: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
	}
}

func (r *GeminiKeyResolver) GeminiAPIKey(ctx context.Context, userID string) (string, error) {
	if r == nil {
		return "", nil
	}
	if r.settings == nil || userID == "" {
		return r.fallback, nil
	}
	enc, err := r.settings.GetGeminiAPIKeyEncrypted(ctx, userID)
	if err != nil {
		log.Printf("gemini key lookup failed user_id=%s err=%v", userID, err)
		return r.fallback, nil
	}
	if enc == nil || *enc == "" {
		return r.fallback, nil
	}
	if !r.cipher.Enabled() {
		log.Printf("gemini key stored but USER_SECRET_ENCRYPTION_KEY is not set user_id=%s", userID)
		return r.fallback, nil
	}
	plain, err := r.cipher.DecryptString(*enc)
	if err != nil {
		log.Printf("decrypt user gemini key user_id=%s err=%v", userID, err)
		return r.fallback, nil
	}
	return plain, nil
}
