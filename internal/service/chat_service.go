package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"zchat/internal/domain"
)

const (
	minChatName = 3
	maxChatName = 256
	maxChatPage = 20
)

// ErrNotGroupOwner is returned when someone other than the creator changes a group.
var ErrNotGroupOwner = fmt.Errorf("%w: only the group creator can add members", domain.ErrForbidden)

type ChatService struct {
	chats domain.ChatRepository
	users domain.UserRepository
}

func NewChatService(chats domain.ChatRepository, users domain.UserRepository) *ChatService {
	return &ChatService{
		chats: chats,
		users: users,
	}
}

// CreatePrivateChat opens the one-to-one chat between the caller and userID.
func (s *ChatService) CreatePrivateChat(ctx context.Context, userID, currentUserID int64) (*domain.Chat, error) {
	if userID == currentUserID {
		return nil, fmt.Errorf("%w: cannot open a private chat with yourself", domain.ErrInvalidInput)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	ids := []int64{userID, currentUserID}
	slices.Sort(ids)

	chat := &domain.Chat{
		Name: fmt.Sprintf("Private-[%d, %d]", ids[0], ids[1]),
		Type: domain.ChatTypePrivate,
	}
	if err := s.chats.Create(ctx, chat, ids); err != nil {
		return nil, err
	}
	return chat, nil
}

type GroupCreateInput struct {
	Name      string
	MemberIDs []int64
}

// CreateGroupChat creates a group chat whose members are the creator plus MemberIDs.
func (s *ChatService) CreateGroupChat(ctx context.Context, in GroupCreateInput, creatorID int64) (*domain.Chat, error) {
	name := strings.TrimSpace(in.Name)
	if n := len([]rune(name)); n < minChatName || n > maxChatName {
		return nil, fmt.Errorf("%w: chat name must be %d-%d characters", domain.ErrInvalidInput, minChatName, maxChatName)
	}

	uniqueIDs := []int64{creatorID}
	for _, id := range in.MemberIDs {
		if !slices.Contains(uniqueIDs, id) {
			uniqueIDs = append(uniqueIDs, id)
		}
	}

	chat := &domain.Chat{Name: name, Type: domain.ChatTypeGroup, CreatorID: &creatorID}
	if err := s.chats.Create(ctx, chat, uniqueIDs); err != nil {
		return nil, err
	}
	return chat, nil
}

// AddMembers adds users to a group chat. Only the group's creator may do so.
func (s *ChatService) AddMembers(ctx context.Context, chatID int64, userIDs []int64, currentUserID int64) (*domain.Chat, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one user id is required", domain.ErrInvalidInput)
	}
	chat, err := s.GetChat(ctx, chatID, currentUserID)
	if err != nil {
		return nil, err
	}
	if chat.Type != domain.ChatTypeGroup {
		return nil, fmt.Errorf("%w: members can only be added to group chats", domain.ErrForbidden)
	}
	if chat.CreatorID == nil || *chat.CreatorID != currentUserID {
		return nil, ErrNotGroupOwner
	}
	if err := s.chats.AddMembers(ctx, chatID, userIDs); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat returns the chat if currentUserID is one of its members.
func (s *ChatService) GetChat(ctx context.Context, chatID, currentUserID int64) (*domain.Chat, error) {
	chat, _, err := s.memberChat(ctx, chatID, currentUserID)
	return chat, err
}

func (s *ChatService) memberChat(ctx context.Context, chatID, currentUserID int64) (*domain.Chat, []int64, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	memberIDs, err := s.chats.ListMemberIDs(ctx, chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("list members: %w", err)
	}
	if !slices.Contains(memberIDs, currentUserID) {
		return nil, nil, domain.ErrNotChatMember
	}
	return chat, memberIDs, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID int64, page, size int) (*Page[*ChatResponse], error) {
	page, size, err := chatPaging(page, size)
	if err != nil {
		return nil, err
	}
	chats, total, err := s.chats.ListForUser(ctx, userID, (page-1)*size, size)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	items := make([]*ChatResponse, 0, len(chats))
	for _, c := range chats {
		items = append(items, NewChatResponse(c))
	}
	return newPage(items, total, page, size), nil
}

// ListMembers returns one page of a chat's members, ordered by user id.
func (s *ChatService) ListMembers(ctx context.Context, chatID, currentUserID int64, page, size int) (*Page[*domain.User], error) {
	page, size, err := chatPaging(page, size)
	if err != nil {
		return nil, err
	}
	_, memberIDs, err := s.memberChat(ctx, chatID, currentUserID)
	if err != nil {
		return nil, err
	}

	start := min((page-1)*size, len(memberIDs))
	end := min(start+size, len(memberIDs))
	users := make([]*domain.User, 0, end-start)
	for _, id := range memberIDs[start:end] {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get member %d: %w", id, err)
		}
		users = append(users, u)
	}
	return newPage(users, len(memberIDs), page, size), nil
}

func chatPaging(page, size int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = 10
	}
	if page < 1 || size < 1 || size > maxChatPage {
		return 0, 0, fmt.Errorf("%w: page must be >= 1 and size between 1 and %d", domain.ErrInvalidInput, maxChatPage)
	}
	return page, size, nil
}

// IsMember reports whether userID belongs to chatID. A missing chat is ErrNotFound.
func (s *ChatService) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	_, err := s.GetChat(ctx, chatID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotChatMember):
		return false, nil
	default:
		return false, err
	}
}
