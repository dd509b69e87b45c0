package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"zchat/internal/domain"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// MembershipChecker reports whether a user belongs to a chat.
type MembershipChecker interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}
	if _, ok := allowed["*"]; ok {
		return func(r *http.Request) bool {
			return true
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

func extractDeviceID(r *http.Request) (string, error) {
	device := strings.TrimSpace(r.Header.Get("X-Device-ID"))
	if device == "" {
		device = strings.TrimSpace(r.URL.Query().Get("device_id"))
	}
	if device == "" {
		return "", wsAuthError{status: http.StatusBadRequest, msg: "missing device id"}
	}
	return device, nil
}

// MakeHandler returns the handler for /ws/chats/{chatID}. The caller is
// authenticated and checked for membership before the upgrade; afterwards the
// connection is handed to the hub's session loop.
func MakeHandler(
	hub *Hub,
	auth Authenticator,
	chats MembershipChecker,
	allowedOrigins []string,
	writeTimeout time.Duration,
	logger *slog.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
		if err != nil || chatID <= 0 {
			http.Error(w, "invalid chat id", http.StatusBadRequest)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			var authErr wsAuthError
			if errors.As(err, &authErr) {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		deviceID, err := extractDeviceID(r)
		if err != nil {
			var authErr wsAuthError
			if errors.As(err, &authErr) {
				http.Error(w, authErr.msg, authErr.status)
			}
			return
		}

		ctx := r.Context()
		user, err := auth.Authenticate(ctx, tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ok, err := chats.IsMember(ctx, chatID, user.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "chat not found", http.StatusNotFound)
			return
		case err != nil:
			logger.ErrorContext(ctx, "ws membership check", "chat_id", chatID, "user_id", user.ID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		case !ok:
			http.Error(w, "user is not a chat member", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		key := Key{ChatID: chatID, UserID: user.ID, DeviceID: deviceID}
		if err := hub.Serve(ctx, key, NewSocket(conn, writeTimeout)); err != nil {
			logger.ErrorContext(ctx, "ws session aborted", "chat_id", chatID, "user_id", user.ID, "err", err)
		}
	}
}
