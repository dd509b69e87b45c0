package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"zchat/internal/domain"
	"zchat/internal/logging"
	"zchat/internal/service"
)

var errBrokenPipe = errors.New("broken pipe")

type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	fail   bool
	closed bool
	inbox  chan []byte
	done   chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan []byte, 16), done: make(chan struct{})}
}

func failingConn() *fakeConn {
	c := newFakeConn()
	c.fail = true
	return c
}

func (c *fakeConn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return errBrokenPipe
	}
	c.sent = append(c.sent, p)
	return nil
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case p := <-c.inbox:
		return p, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

type ackCall struct {
	messageID uuid.UUID
	userID    int64
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	calls []ackCall
	out   *service.ReadOutcome
	err   error
}

func (a *fakeAcknowledger) Acknowledge(_ context.Context, id uuid.UUID, userID int64) (*service.ReadOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, ackCall{messageID: id, userID: userID})
	if a.err != nil {
		return nil, a.err
	}
	return a.out, nil
}

func (a *fakeAcknowledger) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type staticMembers map[int64][]int64

func (m staticMembers) ListMemberIDs(_ context.Context, chatID int64) ([]int64, error) {
	ids, ok := m[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ids, nil
}

func discardLogger() *slog.Logger {
	return logging.NewWithWriter(io.Discard, "debug", "text")
}
