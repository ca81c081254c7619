package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type UserSettingsRepo struct{ db *pgxpool.Pool }

func NewUserSettingsRepo(db *pgxpool.Pool) *UserSettingsRepo { return &UserSettingsRepo{db: db} }

type PlanEmailTarget struct {
	UserID string
	Email  string
	Name   *string
}

func (r *UserSettingsRepo) GetByUserID(ctx context.Context, userID string) (*model.UserSettings, error) {
	var v model.UserSettings
	var geminiKeyEnc *string
	err := r.db.QueryRow(ctx, `
		SELECT user_id,
		       gemini_api_key_enc,
		       gemini_api_key_last4,
		       plan_email_enabled,
		       created_at,
		       updated_at
		FROM user_settings
		WHERE user_id = $1`,
		userID,
	).Scan(
		&v.UserID,
		&geminiKeyEnc,
		&v.GeminiAPIKeyLast4,
		&v.PlanEmailEnabled,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	v.HasGeminiAPIKey = geminiKeyEnc != nil && *geminiKeyEnc != ""
	return &v, nil
}

func (r *UserSettingsRepo) EnsureDefaults(ctx context.Context, userID string) (*model.UserSettings, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_settings (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByUserID(ctx, userID)
}

// GetGeminiAPIKeyEncrypted returns nil, nil when the user has no stored key.
func (r *UserSettingsRepo) GetGeminiAPIKeyEncrypted(ctx context.Context, userID string) (*string, error) {
	var v *string
	err := r.db.QueryRow(ctx, `
		SELECT gemini_api_key_enc
		FROM user_settings
		WHERE user_id = $1`,
		userID,
	).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if v == nil || *v == "" {
		return nil, nil
	}
	return v, nil
}

func (r *UserSettingsRepo) SetGeminiAPIKey(ctx context.Context, userID, encryptedKey, last4 string) (*model.UserSettings, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_settings (user_id, gemini_api_key_enc, gemini_api_key_last4)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET gemini_api_key_enc = EXCLUDED.gemini_api_key_enc,
		    gemini_api_key_last4 = EXCLUDED.gemini_api_key_last4,
		    updated_at = NOW()`,
		userID, encryptedKey, last4,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *UserSettingsRepo) ClearGeminiAPIKey(ctx context.Context, userID string) (*model.UserSettings, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_settings (user_id, gemini_api_key_enc, gemini_api_key_last4)
		VALUES ($1, NULL, NULL)
		ON CONFLICT (user_id) DO UPDATE
		SET gemini_api_key_enc = NULL,
		    gemini_api_key_last4 = NULL,
		    updated_at = NOW()`,
		userID,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *UserSettingsRepo) SetPlanEmailEnabled(ctx context.Context, userID string, enabled bool) (*model.UserSettings, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_settings (user_id, plan_email_enabled)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET plan_email_enabled = EXCLUDED.plan_email_enabled,
		    updated_at = NOW()`,
		userID, enabled,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *UserSettingsRepo) GetPlanEmailTarget(ctx context.Context, userID string) (*PlanEmailTarget, error) {
	var v PlanEmailTarget
	err := r.db.QueryRow(ctx, `
		SELECT u.id, u.email, u.name
		FROM user_settings us
		JOIN users u ON u.id = us.user_id
		WHERE us.user_id = $1
		  AND us.plan_email_enabled = TRUE`,
		userID,
	).Scan(&v.UserID, &v.Email, &v.Name)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &v, nil
}
