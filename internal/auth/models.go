package auth

import (
	"context"
	"errors"
	"time"
)

// DefaultRole is assigned at registration and assumed when login omits roleType.
const DefaultRole = "user"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoUser             = errors.New("no authenticated user")
)

// User is a registered account. Email is unique among users that are not
// soft-deleted.
type User struct {
	ID           string    `json:"_id" gorm:"primaryKey;size:36"`
	Name         string    `json:"name"`
	Mobile       string    `json:"mobile"`
	Email        string    `json:"email" gorm:"not null;index:idx_users_active_email,unique,where:is_deleted = false"`
	PasswordHash string    `json:"-" gorm:"column:password;not null"`
	RoleType     string    `json:"roleType" gorm:"not null"`
	IsDeleted    bool      `json:"isDeleted" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is what register and login hand back to the client.
type Session struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
}

// UserStore is the persistence contract for users. Lookups only consider
// users that are not soft-deleted and return ErrUserNotFound on a miss;
// CreateUser returns ErrUserExists on an email clash.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetActiveUser(ctx context.Context, id string) (*User, error)
	FindActiveUserByEmail(ctx context.Context, email string) (*User, error)
	FindActiveUserByEmailAndRole(ctx context.Context, email, role string) (*User, error)
	SoftDeleteUser(ctx context.Context, id string) error
}
