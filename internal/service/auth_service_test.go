package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"zchat/internal/domain"
	"zchat/internal/security"
	"zchat/internal/service"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func newAuth(repo *MockUserRepo) (*service.AuthService, *security.TokenService, *security.PasswordHasher) {
	tokens := security.NewTokenService("secret", time.Hour, 24*time.Hour)
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	return service.NewAuthService(repo, tokens, hasher), tokens, hasher
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc, _, hasher := newAuth(repo)

		repo.On("GetByUsername", ctx, "newuser").Return(nil, domain.ErrNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 7
		}).Return(nil)

		user, err := svc.Register(ctx, service.RegisterInput{Username: " newuser ", Password: "Password1!"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "newuser", user.Username)
		assert.True(t, user.IsActive)
		assert.NoError(t, hasher.Verify("Password1!", user.HashedPassword))
		repo.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc, _, _ := newAuth(repo)

		repo.On("GetByUsername", ctx, "taken").Return(&domain.User{ID: 1, Username: "taken"}, nil)

		_, err := svc.Register(ctx, service.RegisterInput{Username: "taken", Password: "x"})
		assert.ErrorIs(t, err, domain.ErrConflict)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc, _, _ := newAuth(new(MockUserRepo))
		_, err := svc.Register(ctx, service.RegisterInput{Username: "  "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepo)
	svc, tokens, hasher := newAuth(repo)

	hashed, err := hasher.Hash("Password1!")
	require.NoError(t, err)
	repo.On("GetByUsername", ctx, "alice").Return(&domain.User{ID: 3, Username: "alice", HashedPassword: hashed, IsActive: true}, nil)
	repo.On("GetByUsername", ctx, "ghost").Return(nil, domain.ErrNotFound)
	repo.On("GetByUsername", ctx, "banned").Return(&domain.User{ID: 4, Username: "banned", HashedPassword: hashed}, nil)

	t.Run("Success", func(t *testing.T) {
		resp, err := svc.Login(ctx, service.LoginInput{Username: "alice", Password: "Password1!"})
		require.NoError(t, err)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.True(t, resp.RefreshTokenExpiredAt.After(resp.AccessTokenExpiredAt))

		claims, err := tokens.Parse(resp.AccessToken, security.TypeAccess)
		require.NoError(t, err)
		assert.Equal(t, int64(3), claims.UserID)
		assert.Equal(t, "alice", claims.Subject)

		_, err = tokens.Parse(resp.RefreshToken, security.TypeRefresh)
		assert.NoError(t, err)
	})

	for _, in := range []service.LoginInput{
		{Username: "alice", Password: "wrong"},
		{Username: "ghost", Password: "Password1!"},
		{Username: "banned", Password: "Password1!"},
	} {
		t.Run("Rejected/"+in.Username, func(t *testing.T) {
			_, err := svc.Login(ctx, in)
			assert.ErrorIs(t, err, service.ErrBadCredentials)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepo)
	svc, tokens, _ := newAuth(repo)

	repo.On("GetByID", ctx, int64(3)).Return(&domain.User{ID: 3, Username: "alice", IsActive: true}, nil)
	repo.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrNotFound)

	good, err := tokens.Issue(3, "alice")
	require.NoError(t, err)
	user, err := svc.Authenticate(ctx, good.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)

	_, err = svc.Authenticate(ctx, good.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	renamed, err := tokens.Issue(3, "mallory")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, renamed.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	gone, err := tokens.Issue(9, "bob")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, gone.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepo)
	svc, tokens, _ := newAuth(repo)

	repo.On("GetByID", ctx, int64(3)).Return(&domain.User{ID: 3, Username: "alice", IsActive: true}, nil)
	repo.On("GetByID", ctx, int64(4)).Return(&domain.User{ID: 4, Username: "banned"}, nil)
	repo.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrNotFound)

	t.Run("Success", func(t *testing.T) {
		pair, err := tokens.Issue(3, "alice")
		require.NoError(t, err)

		resp, err := svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.User.ID)
		assert.Equal(t, "bearer", resp.TokenType)

		user, err := svc.Authenticate(ctx, resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("AccessTokenRejected", func(t *testing.T) {
		pair, err := tokens.Issue(3, "alice")
		require.NoError(t, err)
		_, err = svc.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	for _, tc := range []struct {
		name     string
		id       int64
		username string
	}{
		{name: "UnknownUser", id: 9, username: "bob"},
		{name: "InactiveUser", id: 4, username: "banned"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pair, err := tokens.Issue(tc.id, tc.username)
			require.NoError(t, err)
			_, err = svc.Refresh(ctx, pair.RefreshToken)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "garbage")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
