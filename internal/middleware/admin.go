package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/services"
)

type adminContextKey struct{}

// SessionValidator resolves admin session tokens.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*services.AdminSession, error)
}

// RequireAdmin rejects requests without a valid admin session token
// (Authorization: Bearer <token>) and stores the session in the context.
func RequireAdmin(auth SessionValidator) func(http.Handler) http.Handler {
	return requireSession(auth, BearerToken)
}

// RequireAdminSocket is RequireAdmin for WebSocket upgrades. Browsers cannot
// set headers on an upgrade, so the token may also come as ?token=.
func RequireAdminSocket(auth SessionValidator) func(http.Handler) http.Handler {
	return requireSession(auth, func(r *http.Request) string {
		if token := BearerToken(r); token != "" {
			return token
		}
		return strings.TrimSpace(r.URL.Query().Get("token"))
	})
}

func requireSession(auth SessionValidator, tokenFrom func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := auth.Validate(r.Context(), tokenFrom(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(apperrors.HTTPStatus(err))
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"message": apperrors.Message(err),
				})
				return
			}
			ctx := context.WithValue(r.Context(), adminContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext returns the session stored by RequireAdmin.
func AdminFromContext(ctx context.Context) (*services.AdminSession, bool) {
	s, ok := ctx.Value(adminContextKey{}).(*services.AdminSession)
	return s, ok
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
