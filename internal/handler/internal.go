package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nutriplan/api/internal/model"
)

type userUpserter interface {
	Upsert(ctx context.Context, email string, name *string) (*model.User, error)
}

type InternalHandler struct {
	userRepo userUpserter
}

func NewInternalHandler(userRepo userUpserter) *InternalHandler {
	return &InternalHandler{userRepo: userRepo}
}

// UpsertUser finds or creates a user by email and returns the id. Called by
// the web app's sign-in callback behind middleware.InternalOnly.
func (h *InternalHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string  `json:"email"`
		Name  *string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Email) == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.Upsert(r.Context(), strings.ToLower(strings.TrimSpace(body.Email)), body.Name)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	writeJSON(w, map[string]string{"id": user.ID})
}
