package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/city-weather-tracker/internal/metrics"
)

// Service registers and authenticates users and verifies session tokens.
type Service struct {
	users      UserStore
	tokens     *TokenManager
	bcryptCost int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewService(users UserStore, tokens *TokenManager, bcryptCost int, logger *slog.Logger, m *metrics.Metrics) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "auth")),
		metrics:    m,
	}
}

// Register creates a user and returns a session for it.
func (s *Service) Register(ctx context.Context, name, mobile, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	_, err := s.users.FindActiveUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.metrics.ObserveAuth("register", "conflict")
		return nil, ErrUserExists
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Mobile:       mobile,
		Email:        email,
		PasswordHash: string(hash),
		RoleType:     DefaultRole,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			s.metrics.ObserveAuth("register", "conflict")
		}
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveAuth("register", "ok")
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return &Session{AccessToken: token, User: user}, nil
}

// Login authenticates by email, password and role. The role is part of the
// lookup, so a wrong role fails exactly like a wrong password.
func (s *Service) Login(ctx context.Context, email, password, roleType string) (*Session, error) {
	if roleType == "" {
		roleType = DefaultRole
	}

	user, err := s.users.FindActiveUserByEmailAndRole(ctx, normalizeEmail(email), roleType)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.ObserveAuth("login", "rejected")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.ObserveAuth("login", "rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveAuth("login", "ok")
	return &Session{AccessToken: token, User: user}, nil
}

// VerifyToken checks an Authorization header value ("Bearer <token>") and
// resolves the user it names. The user is reloaded on every call so that a
// soft-deleted account loses access immediately.
func (s *Service) VerifyToken(ctx context.Context, header string) (*User, error) {
	if header == "" {
		return nil, fmt.Errorf("%w: missing authorization header", ErrForbidden)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: malformed authorization header", ErrForbidden)
	}

	claims, err := s.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected", slog.Any("error", err))
		return nil, err
	}

	user, err := s.users.GetActiveUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile returns the already resolved user.
func (s *Service) GetProfile(user *User) (*User, error) {
	if user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
