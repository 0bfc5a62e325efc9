package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/i474232898/city-weather-tracker/internal/auth"
)

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetActiveUser(ctx context.Context, id string) (*auth.User, error) {
	return s.firstActiveUser(ctx, s.db.Where("id = ?", id))
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.firstActiveUser(ctx, s.db.Where("email = ?", email))
}

func (s *Store) FindActiveUserByEmailAndRole(ctx context.Context, email, role string) (*auth.User, error) {
	return s.firstActiveUser(ctx, s.db.Where("email = ? AND role_type = ?", email, role))
}

// SoftDeleteUser flags the user as deleted; the row is kept.
func (s *Store) SoftDeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&auth.User{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return fmt.Errorf("soft delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Store) firstActiveUser(ctx context.Context, scope *gorm.DB) (*auth.User, error) {
	var user auth.User
	err := scope.WithContext(ctx).Where("is_deleted = ?", false).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
