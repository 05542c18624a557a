package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
)

const UserKey contextKey = "user"

const sessionCookie = "session_token"

// SessionVerifier проверяет токен сессии и возвращает пользователя.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*models.User, error)
}

// Auth извлекает токен из заголовка Authorization (Bearer) или из
// cookie и кладёт пользователя в контекст запроса.
func Auth(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				unauthorized(w, r, "требуется аутентификация")
				return
			}

			user, err := verifier.VerifySession(r.Context(), token)
			if err != nil {
				logger.Warn("HTTP: сессия не прошла проверку",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("client_ip", r.RemoteAddr))
				unauthorized(w, r, "сессия не найдена или истекла")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error":      "UNAUTHORIZED",
		"message":    message,
		"request_id": GetRequestID(r.Context()),
	})
}

// GetUser достаёт пользователя, положенного Auth middleware.
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok
}
