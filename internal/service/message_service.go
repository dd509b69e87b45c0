package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"zchat/internal/domain"
)

const (
	maxMessageRunes = 4096
	maxHistorySize  = 20
	minSearchTerm   = 3
)

// Publisher pushes a freshly stored message to live connections.
type Publisher interface {
	PublishNewMessage(ctx context.Context, msg *domain.Message, memberIDs []int64, originDevice string)
}

type MessageService struct {
	chats     domain.ChatRepository
	messages  domain.MessageRepository
	publisher Publisher
	log       *slog.Logger
}

func NewMessageService(
	chats domain.ChatRepository,
	messages domain.MessageRepository,
	publisher Publisher,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		chats:     chats,
		messages:  messages,
		publisher: publisher,
		log:       logger,
	}
}

type MessageCreateInput struct {
	ID     uuid.UUID
	ChatID int64
	Text   string
}

// SendMessage stores a message and fans it out to every other live device
// of the chat's members.
func (s *MessageService) SendMessage(ctx context.Context, in MessageCreateInput, senderID int64, deviceID string) (*domain.Message, error) {
	if in.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: message id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: message text cannot be empty", domain.ErrInvalidInput)
	}
	if len([]rune(in.Text)) > maxMessageRunes {
		return nil, fmt.Errorf("%w: message text exceeds %d characters", domain.ErrInvalidInput, maxMessageRunes)
	}

	chat, memberIDs, err := s.memberChat(ctx, in.ChatID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:       in.ID,
		ChatID:   chat.ID,
		SenderID: senderID,
		Text:     in.Text,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	msg.Chat = chat

	s.log.DebugContext(ctx, "message stored", "message_id", msg.ID, "chat_id", chat.ID, "sender_id", senderID)
	s.publisher.PublishNewMessage(ctx, msg, memberIDs, deviceID)
	return msg, nil
}

// GetMessage returns a message visible to userID.
func (s *MessageService) GetMessage(ctx context.Context, messageID uuid.UUID, userID int64) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.memberChat(ctx, msg.ChatID, userID); err != nil {
		return nil, err
	}
	return msg, nil
}

type HistoryInput struct {
	ChatID     int64
	Page       int
	Size       int
	SenderID   *int64
	SearchTerm string
}

// History lists a chat's messages oldest first.
func (s *MessageService) History(ctx context.Context, in HistoryInput, userID int64) (*Page[*MessageResponse], error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Size == 0 {
		in.Size = 10
	}
	if in.Page < 1 || in.Size < 1 || in.Size > maxHistorySize {
		return nil, fmt.Errorf("%w: page must be >= 1 and size between 1 and %d", domain.ErrInvalidInput, maxHistorySize)
	}
	if in.SearchTerm != "" && len([]rune(in.SearchTerm)) < minSearchTerm {
		return nil, fmt.Errorf("%w: search term must be at least %d characters", domain.ErrInvalidInput, minSearchTerm)
	}
	if _, _, err := s.memberChat(ctx, in.ChatID, userID); err != nil {
		return nil, err
	}

	msgs, total, err := s.messages.ListForChat(ctx, domain.MessageQuery{
		ChatID:     in.ChatID,
		Page:       in.Page,
		Size:       in.Size,
		SenderID:   in.SenderID,
		SearchTerm: in.SearchTerm,
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	items := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, NewMessageResponse(m))
	}
	return newPage(items, total, in.Page, in.Size), nil
}

func (s *MessageService) memberChat(ctx context.Context, chatID, userID int64) (*domain.Chat, []int64, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("get chat: %w", err)
	}
	memberIDs, err := s.chats.ListMemberIDs(ctx, chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("list members: %w", err)
	}
	if !slices.Contains(memberIDs, userID) {
		return nil, nil, domain.ErrNotChatMember
	}
	return chat, memberIDs, nil
}
