package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zchat/internal/domain"
	"zchat/internal/service"
)

func TestCreatePrivateChat(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	users := new(MockUserRepo)
	users.On("GetByID", ctx, int64(2)).Return(&domain.User{ID: 2}, nil)
	users.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrNotFound)
	svc := service.NewChatService(chatRepo{st}, users)

	chat, err := svc.CreatePrivateChat(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "Private-[1, 2]", chat.Name)
	assert.Equal(t, domain.ChatTypePrivate, chat.Type)
	assert.Nil(t, chat.CreatorID)
	members, err := st.ListMemberIDs(ctx, chat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, members)

	_, err = svc.CreatePrivateChat(ctx, 2, 1)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.CreatePrivateChat(ctx, 1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreatePrivateChat(ctx, 9, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateGroupChat(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	svc := service.NewChatService(chatRepo{st}, new(MockUserRepo))

	chat, err := svc.CreateGroupChat(ctx, service.GroupCreateInput{Name: " team ", MemberIDs: []int64{2, 3, 2, 1}}, 1)
	require.NoError(t, err)
	assert.Equal(t, "team", chat.Name)
	assert.Equal(t, domain.ChatTypeGroup, chat.Type)
	require.NotNil(t, chat.CreatorID)
	assert.Equal(t, int64(1), *chat.CreatorID)
	members, err := st.ListMemberIDs(ctx, chat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, members)

	stored, err := chatRepo{st}.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.CreatorID, stored.CreatorID)

	_, err = svc.CreateGroupChat(ctx, service.GroupCreateInput{Name: "ab"}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddMembers(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addChat(5, domain.ChatTypePrivate, 1, 2)
	st.addChat(9, domain.ChatTypeGroup, 1, 2, 3)
	svc := service.NewChatService(chatRepo{st}, new(MockUserRepo))

	_, err := svc.AddMembers(ctx, 9, []int64{4}, 1)
	require.NoError(t, err)
	ok, err := svc.IsMember(ctx, 9, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.AddMembers(ctx, 5, []int64{4}, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// members other than the creator cannot add users
	_, err = svc.AddMembers(ctx, 9, []int64{6}, 2)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, err, service.ErrNotGroupOwner)
	ok, err = svc.IsMember(ctx, 9, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.AddMembers(ctx, 9, []int64{5}, 7)
	assert.ErrorIs(t, err, domain.ErrNotChatMember)

	_, err = svc.AddMembers(ctx, 9, nil, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListChats(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addChat(5, domain.ChatTypePrivate, 1, 2)
	st.addChat(9, domain.ChatTypeGroup, 1, 2, 3)
	st.addChat(11, domain.ChatTypeGroup, 2, 3)
	svc := service.NewChatService(chatRepo{st}, new(MockUserRepo))

	page, err := svc.ListChats(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(5), page.Items[0].ID)
	assert.Equal(t, int64(9), page.Items[1].ID)

	ok, err := svc.IsMember(ctx, 11, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.IsMember(ctx, 404, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.ListChats(ctx, 1, 1, 21)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListChatsPaging(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	for id := int64(1); id <= 5; id++ {
		st.addChat(id, domain.ChatTypeGroup, 1, 2)
	}
	st.addChat(6, domain.ChatTypeGroup, 2, 3)
	svc := service.NewChatService(chatRepo{st}, new(MockUserRepo))

	page, err := svc.ListChats(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)

	last, err := svc.ListChats(ctx, 1, 3, 2)
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, int64(5), last.Items[0].ID)
	assert.Equal(t, 5, last.Total)

	past, err := svc.ListChats(ctx, 1, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.Equal(t, 5, past.Total)
}

func TestListMembers(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addChat(9, domain.ChatTypeGroup, 3, 1, 2)
	users := new(MockUserRepo)
	for _, id := range []int64{1, 2, 3} {
		users.On("GetByID", ctx, id).Return(&domain.User{ID: id}, nil)
	}
	svc := service.NewChatService(chatRepo{st}, users)

	page, err := svc.ListMembers(ctx, 9, 2, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(1), page.Items[0].ID)
	assert.Equal(t, int64(2), page.Items[1].ID)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)

	page, err = svc.ListMembers(ctx, 9, 2, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].ID)

	page, err = svc.ListMembers(ctx, 9, 2, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.ListMembers(ctx, 9, 7, 1, 10)
	assert.ErrorIs(t, err, domain.ErrNotChatMember)

	_, err = svc.ListMembers(ctx, 404, 1, 1, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.ListMembers(ctx, 9, 1, 0, 50)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
