package service

import (
	"time"

	"github.com/google/uuid"

	"zchat/internal/domain"
)

// ChatResponse is the chat summary embedded in every message payload.
type ChatResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      domain.ChatType `json:"type"`
	CreatorID *int64          `json:"creator_id,omitempty"`
}

// MessageResponse is the JSON shape used by the HTTP API and pushed over
// live connections.
type MessageResponse struct {
	ID       uuid.UUID     `json:"id"`
	ChatID   int64         `json:"chat_id"`
	SenderID int64         `json:"sender_id"`
	Text     string        `json:"text"`
	SendAt   time.Time     `json:"send_at"`
	ReadAt   *time.Time    `json:"read_at"`
	Chat     *ChatResponse `json:"chat,omitempty"`
}

func NewChatResponse(c *domain.Chat) *ChatResponse {
	if c == nil {
		return nil
	}
	return &ChatResponse{ID: c.ID, Name: c.Name, Type: c.Type, CreatorID: c.CreatorID}
}

func NewMessageResponse(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:       m.ID,
		ChatID:   m.ChatID,
		SenderID: m.SenderID,
		Text:     m.Text,
		SendAt:   m.SendAt,
		ReadAt:   m.ReadAt,
		Chat:     NewChatResponse(m.Chat),
	}
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

func newPage[T any](items []T, total, page, size int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &Page[T]{Items: items, Total: total, Page: page, Size: size, Pages: pages}
}
