package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
}

// ChatRepository defines persistence operations for chats and their members.
type ChatRepository interface {
	Create(ctx context.Context, c *Chat, memberIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Chat, error)
	// ListForUser returns one page of the user's chats and the total count.
	ListForUser(ctx context.Context, userID int64, offset, limit int) ([]*Chat, int, error)
	AddMembers(ctx context.Context, chatID int64, userIDs []int64) error
	// ListMemberIDs returns member ids in ascending order.
	ListMemberIDs(ctx context.Context, chatID int64) ([]int64, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create stores m together with the sender's own read receipt.
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	ListForChat(ctx context.Context, q MessageQuery) ([]*Message, int, error)
	// MarkRead sets read_at while it is still NULL and reports whether this
	// call performed the transition.
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// ReadReceiptRepository tracks which group members have seen a message.
type ReadReceiptRepository interface {
	Record(ctx context.Context, messageID uuid.UUID, userID int64) (bool, error)
	ListReaderIDs(ctx context.Context, messageID uuid.UUID) ([]int64, error)
}
