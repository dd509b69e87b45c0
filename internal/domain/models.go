package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an application user.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type ChatType string

const (
	ChatTypePrivate ChatType = "PRIVATE"
	ChatTypeGroup   ChatType = "GROUP"
)

// Chat is either a two-member private chat or a multi-member group chat.
// CreatorID is set for group chats only; the creator alone may add members.
type Chat struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      ChatType  `db:"type" json:"type"`
	CreatorID *int64    `db:"creator_id" json:"creator_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// Message is a single chat message. ReadAt stays nil until the message is
// fully read and is never cleared afterwards.
type Message struct {
	ID       uuid.UUID  `db:"id"`
	ChatID   int64      `db:"chat_id"`
	SenderID int64      `db:"sender_id"`
	Text     string     `db:"text"`
	SendAt   time.Time  `db:"send_at"`
	ReadAt   *time.Time `db:"read_at"`

	// Chat is populated by reads that join the chat summary.
	Chat *Chat
}

// MessageQuery filters a page of chat history.
type MessageQuery struct {
	ChatID     int64
	Page       int
	Size       int
	SenderID   *int64
	SearchTerm string
}

func (q MessageQuery) Offset() int {
	return (q.Page - 1) * q.Size
}
