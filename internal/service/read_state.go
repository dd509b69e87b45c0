package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"zchat/internal/domain"
)

var tracer = otel.Tracer("zchat/internal/service")

// ReadState is the read status of a message as seen by the whole chat.
type ReadState int

const (
	ReadStateUnread ReadState = iota
	ReadStatePartiallyRead
	ReadStateRead
)

func (s ReadState) String() string {
	switch s {
	case ReadStateUnread:
		return "unread"
	case ReadStatePartiallyRead:
		return "partially-read"
	case ReadStateRead:
		return "read"
	default:
		return fmt.Sprintf("ReadState(%d)", int(s))
	}
}

// ReadOutcome is the result of one acknowledgement.
type ReadOutcome struct {
	Message *domain.Message
	State   ReadState
	// Changed is true only for the acknowledgement that set read_at.
	Changed bool
}

// MemberLister resolves the current membership of a chat.
type MemberLister interface {
	ListMemberIDs(ctx context.Context, chatID int64) ([]int64, error)
}

type readMessageStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// ReadStateEngine applies read acknowledgements to messages.
//
// Private chats flip to read on the first acknowledgement from anyone but the
// sender. Group chats keep one receipt per member and flip to read once every
// current member holds a receipt.
type ReadStateEngine struct {
	messages readMessageStore
	receipts domain.ReadReceiptRepository
	members  MemberLister
	now      func() time.Time
}

func NewReadStateEngine(messages readMessageStore, receipts domain.ReadReceiptRepository, members MemberLister) *ReadStateEngine {
	return &ReadStateEngine{
		messages: messages,
		receipts: receipts,
		members:  members,
		now:      time.Now,
	}
}

// Acknowledge records that userID has seen messageID. Acknowledgements from
// users outside the chat leave everything untouched and are not an error.
func (e *ReadStateEngine) Acknowledge(ctx context.Context, messageID uuid.UUID, userID int64) (out *ReadOutcome, err error) {
	ctx, span := tracer.Start(ctx, "ReadStateEngine.Acknowledge", trace.WithAttributes(
		attribute.String("message.id", messageID.String()),
		attribute.Int64("user.id", userID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("read.state", out.State.String()), attribute.Bool("read.changed", out.Changed))
		}
		span.End()
	}()

	msg, err := e.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}
	if msg.Chat == nil {
		return nil, fmt.Errorf("message %s has no chat summary", messageID)
	}

	chatType := msg.Chat.Type
	if chatType != domain.ChatTypePrivate && chatType != domain.ChatTypeGroup {
		return nil, fmt.Errorf("%w: %q in chat %d", domain.ErrUnsupportedChatType, chatType, msg.ChatID)
	}

	members, err := e.members.ListMemberIDs(ctx, msg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("list members of chat %d: %w", msg.ChatID, err)
	}
	isMember := slices.Contains(members, userID)

	if chatType == domain.ChatTypePrivate {
		return e.acknowledgePrivate(ctx, msg, userID, isMember)
	}
	return e.acknowledgeGroup(ctx, msg, userID, isMember, members)
}

func (e *ReadStateEngine) acknowledgePrivate(ctx context.Context, msg *domain.Message, userID int64, isMember bool) (*ReadOutcome, error) {
	if msg.ReadAt != nil {
		return &ReadOutcome{Message: msg, State: ReadStateRead}, nil
	}
	if !isMember || msg.SenderID == userID {
		return &ReadOutcome{Message: msg, State: ReadStateUnread}, nil
	}
	return e.markRead(ctx, msg)
}

func (e *ReadStateEngine) acknowledgeGroup(ctx context.Context, msg *domain.Message, userID int64, isMember bool, members []int64) (*ReadOutcome, error) {
	if isMember {
		if _, err := e.receipts.Record(ctx, msg.ID, userID); err != nil {
			return nil, fmt.Errorf("record receipt: %w", err)
		}
	}
	if msg.ReadAt != nil {
		return &ReadOutcome{Message: msg, State: ReadStateRead}, nil
	}

	readers, err := e.receipts.ListReaderIDs(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}

	state := groupState(readers, members, msg.SenderID)
	switch {
	case state != ReadStateRead:
		return &ReadOutcome{Message: msg, State: state}, nil
	case !isMember:
		// Outsiders never complete a message; read_at is still unset.
		return &ReadOutcome{Message: msg, State: ReadStatePartiallyRead}, nil
	}
	return e.markRead(ctx, msg)
}

// groupState compares receipts with the membership as it is now, so members
// who joined after the message was sent must also acknowledge it.
func groupState(readers, members []int64, senderID int64) ReadState {
	seen := make(map[int64]struct{}, len(readers))
	for _, id := range readers {
		seen[id] = struct{}{}
	}

	all, others := true, false
	for _, id := range members {
		if _, ok := seen[id]; ok {
			if id != senderID {
				others = true
			}
			continue
		}
		all = false
	}

	switch {
	case all && len(members) > 0:
		return ReadStateRead
	case others:
		return ReadStatePartiallyRead
	default:
		return ReadStateUnread
	}
}

func (e *ReadStateEngine) markRead(ctx context.Context, msg *domain.Message) (*ReadOutcome, error) {
	at := e.now().UTC()
	changed, err := e.messages.MarkRead(ctx, msg.ID, at)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	if !changed {
		// A concurrent acknowledgement won; report the stored timestamp.
		fresh, err := e.messages.GetByID(ctx, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("reload message: %w", err)
		}
		return &ReadOutcome{Message: fresh, State: ReadStateRead}, nil
	}

	updated := *msg
	updated.ReadAt = &at
	return &ReadOutcome{Message: &updated, State: ReadStateRead, Changed: true}, nil
}
