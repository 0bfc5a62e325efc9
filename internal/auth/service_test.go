package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/city-weather-tracker/internal/logging"
)

// MockUserStore is a mock implementation of the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetActiveUser(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserStore) FindActiveUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserStore) FindActiveUserByEmailAndRole(ctx context.Context, email, role string) (*User, error) {
	args := m.Called(ctx, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserStore) SoftDeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(store UserStore) *Service {
	return NewService(store, NewTokenManager("test-secret", 7*time.Hour), bcrypt.MinCost, logging.Discard(), nil)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)

		store.On("FindActiveUserByEmail", ctx, "a@x.com").Return(nil, ErrUserNotFound).Once()
		store.On("CreateUser", ctx, mock.MatchedBy(func(u *User) bool {
			return u.Email == "a@x.com" && u.RoleType == DefaultRole && u.PasswordHash != "secret1" && u.ID != ""
		})).Return(nil).Once()

		session, err := svc.Register(ctx, "A", "1", " A@x.com ", "secret1")
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
		assert.Equal(t, "a@x.com", session.User.Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(session.User.PasswordHash), []byte("secret1")))

		claims, err := svc.tokens.Parse(session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, claims.UserID)
		assert.Equal(t, "a@x.com", claims.Email)
		store.AssertExpectations(t)
	})

	t.Run("EmailTaken", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)

		store.On("FindActiveUserByEmail", ctx, "a@x.com").Return(&User{ID: "u1", Email: "a@x.com"}, nil).Once()

		_, err := svc.Register(ctx, "A", "1", "a@x.com", "secret1")
		assert.ErrorIs(t, err, ErrUserExists)
		store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("InsertRace", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)

		store.On("FindActiveUserByEmail", ctx, "a@x.com").Return(nil, ErrUserNotFound).Once()
		store.On("CreateUser", ctx, mock.Anything).Return(ErrUserExists).Once()

		_, err := svc.Register(ctx, "A", "1", "a@x.com", "secret1")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)

		store.On("FindActiveUserByEmail", ctx, "a@x.com").Return(nil, errors.New("database error")).Once()

		_, err := svc.Register(ctx, "A", "1", "a@x.com", "secret1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrUserExists)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	user := &User{ID: "u1", Email: "a@x.com", RoleType: DefaultRole, PasswordHash: hashed(t, "secret1")}

	t.Run("Success", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)
		store.On("FindActiveUserByEmailAndRole", ctx, "a@x.com", "user").Return(user, nil).Once()

		session, err := svc.Login(ctx, "a@x.com", "secret1", "user")
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
		assert.Equal(t, user, session.User)
	})

	t.Run("EmptyRoleDefaultsToUser", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)
		store.On("FindActiveUserByEmailAndRole", ctx, "a@x.com", DefaultRole).Return(user, nil).Once()

		_, err := svc.Login(ctx, "a@x.com", "secret1", "")
		assert.NoError(t, err)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)
		store.On("FindActiveUserByEmailAndRole", ctx, "a@x.com", "user").Return(user, nil).Once()

		_, err := svc.Login(ctx, "a@x.com", "nope", "user")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("WrongRoleLooksLikeWrongPassword", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)
		store.On("FindActiveUserByEmailAndRole", ctx, "a@x.com", "admin").Return(nil, ErrUserNotFound).Once()

		_, err := svc.Login(ctx, "a@x.com", "secret1", "admin")
		assert.Equal(t, ErrInvalidCredentials, err)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store)
		store.On("FindActiveUserByEmailAndRole", ctx, "a@x.com", "user").Return(nil, errors.New("database error")).Once()

		_, err := svc.Login(ctx, "a@x.com", "secret1", "user")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestVerifyToken(t *testing.T) {
	ctx := context.Background()
	user := &User{ID: "u1", Email: "a@x.com", RoleType: DefaultRole}

	store := new(MockUserStore)
	svc := newTestService(store)
	token, err := svc.tokens.Issue(user)
	require.NoError(t, err)

	t.Run("Valid", func(t *testing.T) {
		store.On("GetActiveUser", ctx, "u1").Return(user, nil).Once()

		got, err := svc.VerifyToken(ctx, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		_, err := svc.VerifyToken(ctx, "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		for _, h := range []string{token, "Basic " + token, "Bearer ", "Bearer not-a-jwt"} {
			_, err := svc.VerifyToken(ctx, h)
			assert.ErrorIs(t, err, ErrForbidden, h)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewTokenManager("other-secret", time.Hour).Issue(user)
		require.NoError(t, err)

		_, err = svc.VerifyToken(ctx, "Bearer "+other)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("DeletedUser", func(t *testing.T) {
		store.On("GetActiveUser", ctx, "u1").Return(nil, ErrUserNotFound).Once()

		_, err := svc.VerifyToken(ctx, "Bearer "+token)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestTokenExpiry(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 7*time.Hour)
	tm.now = func() time.Time { return issuedAt }

	token, err := tm.Issue(&User{ID: "u1", Email: "a@x.com"})
	require.NoError(t, err)

	tm.now = func() time.Time { return issuedAt.Add(6*time.Hour + 59*time.Minute) }
	_, err = tm.Parse(token)
	assert.NoError(t, err)

	tm.now = func() time.Time { return issuedAt.Add(7*time.Hour + time.Minute) }
	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.True(t, IsExpired(err))
}

func TestGetProfile(t *testing.T) {
	svc := newTestService(new(MockUserStore))

	user := &User{ID: "u1"}
	got, err := svc.GetProfile(user)
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = svc.GetProfile(nil)
	assert.ErrorIs(t, err, ErrNoUser)
}
