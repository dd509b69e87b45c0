package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"zchat/internal/domain"
	"zchat/internal/service"
)

// Acknowledger applies one read acknowledgement.
type Acknowledger interface {
	Acknowledge(ctx context.Context, messageID uuid.UUID, userID int64) (*service.ReadOutcome, error)
}

// SessionConn is a Conn that can also receive frames.
type SessionConn interface {
	Conn
	ReadMessage() ([]byte, error)
}

// Hub ties the registry, the broadcaster and the read-state engine together
// and runs one session loop per live socket.
type Hub struct {
	registry    *Registry
	broadcaster *Broadcaster
	reads       Acknowledger
	members     service.MemberLister
	log         *slog.Logger

	mu       sync.Mutex // guards closing and session admission
	closing  bool
	sessions sync.WaitGroup
}

func NewHub(registry *Registry, reads Acknowledger, members service.MemberLister, logger *slog.Logger) *Hub {
	return &Hub{
		registry:    registry,
		broadcaster: NewBroadcaster(registry, logger),
		reads:       reads,
		members:     members,
		log:         logger,
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// CloseAll closes every registered socket and turns away new sessions.
// It is safe to call more than once.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closing = true
	conns := h.registry.Drain()
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if len(conns) > 0 {
		h.log.Info("ws connections closed", "count", len(conns))
	}
}

// Shutdown closes every socket and waits for the session loops to return.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.CloseAll()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for ws sessions: %w", ctx.Err())
	}
}

// PublishNewMessage implements service.Publisher.
func (h *Hub) PublishNewMessage(ctx context.Context, msg *domain.Message, memberIDs []int64, originDevice string) {
	if _, err := h.broadcaster.BroadcastMessage(ctx, msg, memberIDs, originDevice); err != nil {
		h.log.ErrorContext(ctx, "broadcast new message", "message_id", msg.ID, "err", err)
	}
}

// PublishRead pushes a message whose read state just became read.
func (h *Hub) PublishRead(ctx context.Context, msg *domain.Message, originDevice string) error {
	memberIDs, err := h.members.ListMemberIDs(ctx, msg.ChatID)
	if err != nil {
		return fmt.Errorf("list members of chat %d: %w", msg.ChatID, err)
	}
	_, err = h.broadcaster.BroadcastMessage(ctx, msg, memberIDs, originDevice)
	return err
}

type ackPayload struct {
	MessageID string `json:"message_id"`
}

var errMalformedAck = errors.New("malformed acknowledgement")

// Serve registers conn under key and processes read acknowledgements until
// the transport fails. It unregisters exactly once on the way out. The only
// error returned is an unsupported chat type; transport failures end the
// session quietly. After CloseAll, conn is closed without being served.
func (h *Hub) Serve(ctx context.Context, key Key, conn SessionConn) error {
	log := h.log.With("chat_id", key.ChatID, "user_id", key.UserID, "device_id", key.DeviceID)

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		log.Debug("ws connection refused, shutting down")
		_ = conn.Close()
		return nil
	}
	h.sessions.Add(1)
	old, oldKey := h.registry.Register(key, conn)
	h.mu.Unlock()
	defer h.sessions.Done()

	if old != nil {
		if oldKey == key {
			log.Debug("ws connection replaced")
		} else {
			log.Debug("ws connection evicted", "evicted_chat_id", oldKey.ChatID, "evicted_user_id", oldKey.UserID, "evicted_device_id", oldKey.DeviceID)
		}
		_ = old.Close()
	}
	log.Debug("ws connection registered")

	defer func() {
		if h.registry.Remove(key, conn) {
			log.Debug("ws connection unregistered")
		}
		_ = conn.Close()
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("ws connection closed", "err", err)
			return nil
		}

		err = h.acknowledge(ctx, key, data)
		switch {
		case err == nil:
		case errors.Is(err, errMalformedAck):
			log.Warn("ws ignored acknowledgement", "err", err)
		case errors.Is(err, domain.ErrUnsupportedChatType):
			log.Error("ws read acknowledgement", "err", err)
			return err
		default:
			log.Error("ws read acknowledgement", "err", err)
		}
	}
}

func (h *Hub) acknowledge(ctx context.Context, key Key, data []byte) error {
	var p ackPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", errMalformedAck, err)
	}
	id, err := uuid.Parse(p.MessageID)
	if err != nil || id == uuid.Nil {
		return fmt.Errorf("%w: message_id %q", errMalformedAck, p.MessageID)
	}

	out, err := h.reads.Acknowledge(ctx, id, key.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: unknown message %s", errMalformedAck, id)
	}
	if err != nil {
		return err
	}
	if out.State != service.ReadStateRead || !out.Changed {
		return nil
	}
	return h.PublishRead(ctx, out.Message, key.DeviceID)
}
