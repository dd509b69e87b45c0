package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"zchat/internal/domain"
	"zchat/internal/service"
)

var tracer = otel.Tracer("zchat/internal/ws")

// Delivery is the outcome of one broadcast.
type Delivery struct {
	Delivered []Key
	Failed    []Key
}

// Broadcaster pushes messages to the live devices of a chat and prunes the
// connections whose send failed.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
}

func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: logger}
}

// BroadcastMessage sends msg to every device connected to its chat whose
// user is in memberIDs, except originDevice. It returns once every send has
// finished.
func (b *Broadcaster) BroadcastMessage(ctx context.Context, msg *domain.Message, memberIDs []int64, originDevice string) (Delivery, error) {
	payload, err := json.Marshal(service.NewMessageResponse(msg))
	if err != nil {
		return Delivery{}, fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	return b.Broadcast(ctx, msg.ChatID, payload, memberIDs, originDevice), nil
}

type target struct {
	key  Key
	conn Conn
}

// Broadcast fans payload out to the matching connections of chatID.
func (b *Broadcaster) Broadcast(ctx context.Context, chatID int64, payload []byte, memberIDs []int64, originDevice string) Delivery {
	_, span := tracer.Start(ctx, "Broadcaster.Broadcast", trace.WithAttributes(
		attribute.Int64("chat.id", chatID),
		attribute.String("origin.device", originDevice),
	))
	defer span.End()

	var targets []target
	for _, m := range b.registry.ConnectedDevices(chatID) {
		if m.DeviceID == originDevice || !slices.Contains(memberIDs, m.UserID) {
			continue
		}
		key := Key{ChatID: chatID, UserID: m.UserID, DeviceID: m.DeviceID}
		// Gone since the snapshot; nothing to send to.
		if conn, ok := b.registry.Lookup(key); ok {
			targets = append(targets, target{key: key, conn: conn})
		}
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		result Delivery
	)
	for _, t := range targets {
		g.Go(func() error {
			err := t.conn.Write(payload)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, t.key)
				b.log.Debug("ws send failed", "chat_id", chatID, "user_id", t.key.UserID, "device_id", t.key.DeviceID, "err", err)
				return nil
			}
			result.Delivered = append(result.Delivered, t.key)
			return nil
		})
	}
	_ = g.Wait()

	for _, t := range targets {
		if !slices.Contains(result.Failed, t.key) {
			continue
		}
		if b.registry.Remove(t.key, t.conn) {
			b.log.Info("ws connection pruned", "chat_id", chatID, "user_id", t.key.UserID, "device_id", t.key.DeviceID)
		}
		_ = t.conn.Close()
	}

	span.SetAttributes(
		attribute.Int("ws.targets", len(targets)),
		attribute.Int("ws.failed", len(result.Failed)),
	)
	return result
}
