package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	SwitchTeam(ctx context.Context, userID, teamID snowflake.ID) (*LoginResponse, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, current, next string) error
	Me(ctx context.Context, userID snowflake.ID) (*UserResponse, error)

	ListUsers(ctx context.Context) ([]UserResponse, error)
	SetActive(ctx context.Context, userID snowflake.ID, active bool) error
	SetGlobalAdmin(ctx context.Context, userID snowflake.ID, admin bool) error
	DeleteUser(ctx context.Context, userID snowflake.ID) error
}

type CreateUserRequest struct {
	Email       string
	DisplayName string
	Password    string
	GlobalAdmin bool
}

type LoginRequest struct {
	Email    string
	Password string
}

type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	IsGlobalAdmin bool       `json:"is_global_admin"`
	Active        bool       `json:"active"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

var (
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserDisabled       = errors.New("user_disabled")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("weak_password")
	ErrNotMember          = errors.New("not_a_member")
)
