package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"zchat/internal/config"
	"zchat/internal/domain"
	"zchat/internal/logging"
	"zchat/internal/security"
	"zchat/internal/service"
	"zchat/internal/store/sqlite"
	"zchat/internal/ws"
)

const testOrigin = "http://localhost:3000"

type testServer struct {
	*httptest.Server
	hub *ws.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	cfg := &config.Config{
		AppName:        "zChat test",
		CORSOrigins:    []string{testOrigin},
		MaxConnections: 10,
		WriteTimeout:   time.Second,
	}
	logger := logging.NewWithWriter(io.Discard, "debug", "text")

	users := sqlite.NewUserRepo(db)
	chats := sqlite.NewChatRepo(db)
	messages := sqlite.NewMessageRepo(db)
	engine := service.NewReadStateEngine(messages, sqlite.NewReceiptRepo(db), chats)
	hub := ws.NewHub(ws.NewRegistry(cfg.MaxConnections), engine, chats, logger)

	router := NewRouter(cfg, Services{
		Auth:     service.NewAuthService(users, security.NewTokenService("secret", time.Hour, 24*time.Hour), security.NewPasswordHasher(bcrypt.MinCost)),
		Users:    service.NewUserService(users),
		Chats:    service.NewChatService(chats, users),
		Messages: service.NewMessageService(chats, messages, hub, logger),
	}, hub, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// signUp registers a user and returns its id and access token.
func (s *testServer) signUp(t *testing.T, name string) (int64, string) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": name, "password": "Password1!"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var resp service.TokenResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.User.ID, resp.AccessToken
}

func (s *testServer) dial(t *testing.T, chatID int64, token, device string) *websocket.Conn {
	t.Helper()
	h := http.Header{}
	h.Set("Origin", testOrigin)
	h.Set("Authorization", "Bearer "+token)
	h.Set("X-Device-ID", device)
	url := "ws" + strings.TrimPrefix(s.URL, "http") + fmt.Sprintf("/ws/chats/%d", chatID)
	conn, _, err := websocket.DefaultDialer.Dial(url, h)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) service.MessageResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m service.MessageResponse
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.signUp(t, "alice")

	status, body := srv.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"username":"alice"`)
	assert.NotContains(t, string(body), "password")

	status, _ = srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = srv.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = srv.do(t, http.MethodGet, "/api/users/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "Password1!"})
	require.Equal(t, http.StatusOK, status)
	var login service.TokenResponse
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.RefreshToken)

	// a refresh token does not authenticate requests
	status, _ = srv.do(t, http.MethodGet, "/api/auth/me", login.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = srv.do(t, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{"refresh_token": login.RefreshToken})
	require.Equal(t, http.StatusOK, status, string(body))
	var refreshed service.TokenResponse
	require.NoError(t, json.Unmarshal(body, &refreshed))
	status, _ = srv.do(t, http.MethodGet, "/api/auth/me", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = srv.do(t, http.MethodPost, "/api/auth/token/refresh?token="+login.RefreshToken, "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = srv.do(t, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{"refresh_token": login.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = srv.do(t, http.MethodPost, "/api/auth/token/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestChatEndpoints(t *testing.T) {
	srv := newTestServer(t)
	aliceID, alice := srv.signUp(t, "alice")
	bobID, bob := srv.signUp(t, "bob")
	eveID, eve := srv.signUp(t, "eve")

	status, body := srv.do(t, http.MethodPost, fmt.Sprintf("/api/chats/private/%d", aliceID), bob, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	var chat service.ChatResponse
	require.NoError(t, json.Unmarshal(body, &chat))
	assert.Equal(t, fmt.Sprintf("Private-[%d, %d]", aliceID, bobID), chat.Name)

	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/chats/private/%d", bobID), alice, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d", chat.ID), eve, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = srv.do(t, http.MethodGet, "/api/chats/999", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/chats/%d/members", chat.ID), alice, map[string][]int64{"user_ids": {3}})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = srv.do(t, http.MethodPost, "/api/chats/groups", alice, map[string]any{"name": "team", "member_ids": []int64{bobID}})
	require.Equal(t, http.StatusCreated, status, string(body))
	var group service.ChatResponse
	require.NoError(t, json.Unmarshal(body, &group))
	require.NotNil(t, group.CreatorID)
	assert.Equal(t, aliceID, *group.CreatorID)

	status, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/members", group.ID), eve, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/chats/%d/members", group.ID), bob, map[string][]int64{"user_ids": {eveID}})
	assert.Equal(t, http.StatusForbidden, status)
	status, body = srv.do(t, http.MethodPost, fmt.Sprintf("/api/chats/%d/members", group.ID), alice, map[string][]int64{"user_ids": {eveID}})
	require.Equal(t, http.StatusNoContent, status, string(body))

	status, body = srv.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/members?size=2", group.ID), bob, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var members service.Page[domain.User]
	require.NoError(t, json.Unmarshal(body, &members))
	assert.Equal(t, 3, members.Total)
	assert.Equal(t, 2, members.Pages)
	require.Len(t, members.Items, 2)
	assert.Equal(t, aliceID, members.Items[0].ID)
	assert.NotContains(t, string(body), "password")

	status, body = srv.do(t, http.MethodGet, "/api/chats?size=1", bob, nil)
	require.Equal(t, http.StatusOK, status)
	var page service.Page[service.ChatResponse]
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.Pages)

	status, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/history?size=50", group.ID), alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/history?search_term=ab", group.ID), alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSendMessageAndReadOverWebSocket(t *testing.T) {
	srv := newTestServer(t)
	aliceID, alice := srv.signUp(t, "alice")
	bobID, bob := srv.signUp(t, "bob")

	status, body := srv.do(t, http.MethodPost, fmt.Sprintf("/api/chats/private/%d", bobID), alice, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	var chat service.ChatResponse
	require.NoError(t, json.Unmarshal(body, &chat))

	aliceConn := srv.dial(t, chat.ID, alice, "d1")
	bobConn := srv.dial(t, chat.ID, bob, "d2")
	require.Eventually(t, func() bool { return srv.hub.Registry().Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	msgID := uuid.New()
	status, body = srv.do(t, http.MethodPost, "/api/messages", alice,
		map[string]any{"id": msgID, "chat_id": chat.ID, "text": "hi bob"}, "X-Device-ID", "d1")
	require.Equal(t, http.StatusCreated, status, string(body))

	got := readMessage(t, bobConn)
	assert.Equal(t, msgID, got.ID)
	assert.Equal(t, aliceID, got.SenderID)
	assert.Nil(t, got.ReadAt)
	require.NotNil(t, got.Chat)
	assert.Equal(t, "PRIVATE", string(got.Chat.Type))

	status, _ = srv.do(t, http.MethodPost, "/api/messages", alice,
		map[string]any{"id": msgID, "chat_id": chat.ID, "text": "again"}, "X-Device-ID", "d1")
	assert.Equal(t, http.StatusConflict, status)
	status, _ = srv.do(t, http.MethodPost, "/api/messages", alice,
		map[string]any{"id": uuid.New(), "chat_id": chat.ID, "text": "no device"})
	assert.Equal(t, http.StatusBadRequest, status)

	require.NoError(t, bobConn.WriteMessage(websocket.TextMessage, []byte(`{"message_id": "not-a-uuid"}`)))
	require.NoError(t, bobConn.WriteJSON(map[string]string{"message_id": msgID.String()}))

	read := readMessage(t, aliceConn)
	assert.Equal(t, msgID, read.ID)
	require.NotNil(t, read.ReadAt)

	status, body = srv.do(t, http.MethodGet, "/api/messages/"+msgID.String(), alice, nil)
	require.Equal(t, http.StatusOK, status)
	var stored service.MessageResponse
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.NotNil(t, stored.ReadAt)

	status, body = srv.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/history?sender_id=%d", chat.ID, aliceID), bob, nil)
	require.Equal(t, http.StatusOK, status)
	var history service.Page[service.MessageResponse]
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Equal(t, 1, history.Total)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy","connections":0}`, string(body))
}
