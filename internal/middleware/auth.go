package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Auth accepts an HS256 token signed with AUTH_SECRET whose "sub" claim is
// the user id, either as a bearer header or the session cookie.
func Auth(next http.Handler) http.Handler {
	secret := []byte(os.Getenv("AUTH_SECRET"))
	devBypass := os.Getenv("ALLOW_DEV_AUTH_BYPASS") == "true"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if devBypass {
			if userID := devUserID(r); userID != "" {
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
				return
			}
		}

		token := extractToken(r)
		if token == "" || len(secret) == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !parsed.Valid {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sub, err := parsed.Claims.GetSubject()
		if err != nil || sub == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
	})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func devUserID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Dev-User-Id")); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("DEV_AUTH_USER_ID"))
}

func GetUserID(r *http.Request) string {
	v, _ := r.Context().Value(UserIDKey).(string)
	return v
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("nutriplan_session"); err == nil {
		return c.Value
	}
	return ""
}

// InternalOnly guards server-to-server routes with X-Internal-Secret.
func InternalOnly(next http.Handler) http.Handler {
	secret := os.Getenv("INTERNAL_SECRET")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret == "" || r.Header.Get("X-Internal-Secret") != secret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
