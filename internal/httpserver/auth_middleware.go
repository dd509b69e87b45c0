package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"zchat/internal/domain"
	"zchat/internal/service"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer token and attaches the user to the context.
func AuthMiddleware(auth *service.AuthService, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				writeErrorMessage(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			user, err := auth.Authenticate(r.Context(), tokenStr)
			if errors.Is(err, domain.ErrUnauthorized) {
				writeErrorMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if err != nil {
				log.ErrorContext(r.Context(), "authenticate request", "err", err)
				writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
