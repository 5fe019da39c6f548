package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateUser(ctx context.Context, user User) error
	GetUserByID(ctx context.Context, id snowflake.ID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUserFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	SoftDeleteUser(ctx context.Context, id snowflake.ID) error
}
