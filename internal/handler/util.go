package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/service"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	default:
		log.Printf("repository error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeServiceError maps service failures onto status codes. Anything it
// does not recognize falls through to writeRepoError.
func writeServiceError(w http.ResponseWriter, err error) {
	var rl *service.RateLimitError
	var pe *service.PlanError
	switch {
	case errors.As(err, &rl):
		retry := int(time.Until(rl.Reset).Seconds() + 0.999)
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		w.Header().Set("X-RateLimit-Reset", rl.ResetISO())
		writeJSONStatus(w, http.StatusTooManyRequests, map[string]any{
			"error": "rate_limited",
			"reset": rl.ResetISO(),
		})
	case errors.Is(err, service.ErrEmptyMeal):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrVisionUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &pe):
		log.Printf("plan error: %v", err)
		if pe.Structural {
			writeJSONStatus(w, http.StatusUnprocessableEntity, map[string]any{"error": "plan_invalid", "retryable": false})
			return
		}
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]any{"error": "plan_unavailable", "retryable": true})
	default:
		writeRepoError(w, err)
	}
}

func parseIntOrDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
