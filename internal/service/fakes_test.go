package service_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"zchat/internal/domain"
)

// memStore is an in-memory chat, message and receipt store.
type memStore struct {
	mu       sync.Mutex
	nextChat int64
	chats    map[int64]*domain.Chat
	members  map[int64][]int64
	messages map[uuid.UUID]*domain.Message
	receipts map[uuid.UUID][]int64
}

func newMemStore() *memStore {
	return &memStore{
		chats:    map[int64]*domain.Chat{},
		members:  map[int64][]int64{},
		messages: map[uuid.UUID]*domain.Message{},
		receipts: map[uuid.UUID][]int64{},
	}
}

func (s *memStore) addChat(id int64, typ domain.ChatType, members ...int64) *domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &domain.Chat{ID: id, Name: "chat", Type: typ}
	if typ == domain.ChatTypeGroup && len(members) > 0 {
		creator := members[0]
		c.CreatorID = &creator
	}
	s.chats[id] = c
	s.members[id] = slices.Clone(members)
	return c
}

func (s *memStore) addMessage(chatID, senderID int64) *domain.Message {
	m := &domain.Message{ID: uuid.New(), ChatID: chatID, SenderID: senderID, Text: "hi"}
	if err := s.Create(context.Background(), m); err != nil {
		panic(err)
	}
	return m
}

func (s *memStore) message(id uuid.UUID) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.messages[id]
}

// chatRepo exposes the chat half of memStore; Create and GetByID clash with
// the message methods.
type chatRepo struct{ *memStore }

func (r chatRepo) Create(_ context.Context, c *domain.Chat, memberIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.chats {
		if existing.Type == c.Type && existing.Type == domain.ChatTypePrivate && existing.Name == c.Name {
			return domain.ErrConflict
		}
	}
	r.nextChat++
	c.ID = 100 + r.nextChat
	r.chats[c.ID] = c
	r.members[c.ID] = slices.Clone(memberIDs)
	return nil
}

func (r chatRepo) GetByID(_ context.Context, id int64) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r chatRepo) ListForUser(_ context.Context, userID int64, offset, limit int) ([]*domain.Chat, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Chat
	for id, c := range r.chats {
		if slices.Contains(r.members[id], userID) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Chat) int { return int(a.ID - b.ID) })
	if offset >= len(out) {
		return nil, len(out), nil
	}
	return out[offset:min(len(out), offset+limit)], len(out), nil
}

func (r chatRepo) AddMembers(_ context.Context, chatID int64, userIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range userIDs {
		if !slices.Contains(r.members[chatID], id) {
			r.members[chatID] = append(r.members[chatID], id)
		}
	}
	return nil
}

func (s *memStore) ListMemberIDs(_ context.Context, chatID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := slices.Clone(s.members[chatID])
	slices.Sort(ids)
	return ids, nil
}

func (s *memStore) Create(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; ok {
		return domain.ErrConflict
	}
	if m.SendAt.IsZero() {
		m.SendAt = time.Now().UTC()
	}
	cp := *m
	cp.Chat = nil
	s.messages[m.ID] = &cp
	s.receipts[m.ID] = []int64{m.SenderID}
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	if c := s.chats[m.ChatID]; c != nil {
		chat := *c
		cp.Chat = &chat
	}
	return &cp, nil
}

func (s *memStore) ListForChat(_ context.Context, q domain.MessageQuery) ([]*domain.Message, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for _, m := range s.messages {
		if m.ChatID == q.ChatID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Message) int { return a.SendAt.Compare(b.SendAt) })
	total := len(out)
	off := q.Offset()
	if off >= total {
		return nil, total, nil
	}
	return out[off:min(total, off+q.Size)], total, nil
}

func (s *memStore) MarkRead(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if m.ReadAt != nil {
		return false, nil
	}
	m.ReadAt = &at
	return true, nil
}

// receiptRepo exposes the receipt half of memStore.
type receiptRepo struct{ *memStore }

func (r receiptRepo) Record(_ context.Context, messageID uuid.UUID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.receipts[messageID], userID) {
		return false, nil
	}
	r.receipts[messageID] = append(r.receipts[messageID], userID)
	return true, nil
}

func (r receiptRepo) ListReaderIDs(_ context.Context, messageID uuid.UUID) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.receipts[messageID]), nil
}
