package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/service"
)

type settingsStore interface {
	EnsureDefaults(ctx context.Context, userID string) (*model.UserSettings, error)
	SetGeminiAPIKey(ctx context.Context, userID, encryptedKey, last4 string) (*model.UserSettings, error)
	ClearGeminiAPIKey(ctx context.Context, userID string) (*model.UserSettings, error)
	SetPlanEmailEnabled(ctx context.Context, userID string, enabled bool) (*model.UserSettings, error)
}

type SettingsHandler struct {
	repo   settingsStore
	cipher *service.SecretCipher
}

func NewSettingsHandler(repo settingsStore, cipher *service.SecretCipher) *SettingsHandler {
	return &SettingsHandler{repo: repo, cipher: cipher}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.EnsureDefaults(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, settings)
}

func (h *SettingsHandler) UpdatePlanEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	settings, err := h.repo.SetPlanEmailEnabled(r.Context(), middleware.GetUserID(r), body.Enabled)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, settings)
}

func (h *SettingsHandler) SetGeminiAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	key := strings.TrimSpace(body.APIKey)
	if key == "" {
		http.Error(w, "api_key is required", http.StatusBadRequest)
		return
	}
	if !h.cipher.Enabled() {
		http.Error(w, "user secret encryption is not configured", http.StatusInternalServerError)
		return
	}
	enc, err := h.cipher.EncryptString(key)
	if err != nil {
		http.Error(w, "failed to encrypt api key", http.StatusInternalServerError)
		return
	}
	settings, err := h.repo.SetGeminiAPIKey(r.Context(), userID, enc, service.KeyLast4(key))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"user_id":              settings.UserID,
		"has_gemini_api_key":   settings.HasGeminiAPIKey,
		"gemini_api_key_last4": settings.GeminiAPIKeyLast4,
	})
}

func (h *SettingsHandler) DeleteGeminiAPIKey(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.ClearGeminiAPIKey(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"user_id":              settings.UserID,
		"has_gemini_api_key":   settings.HasGeminiAPIKey,
		"gemini_api_key_last4": settings.GeminiAPIKeyLast4,
	})
}
