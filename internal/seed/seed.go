// Package seed bootstraps the first global admin so a fresh install can be
// administered without touching the database by hand.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EnsureBootstrapAdmin creates the configured global admin account when it
// does not exist yet. Disabled installs and missing passwords are skipped.
func EnsureBootstrapAdmin(db *gorm.DB, node *snowflake.Node, cfg config.BootstrapAdminConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if !cfg.Enabled {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		return nil
	}
	if cfg.Password == "" {
		zap.L().Warn("bootstrap admin enabled but no password configured, skipping",
			zap.String("email", email))
		return nil
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.WithContext(ctx).
			Where("LOWER(email) = ?", email).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = authdomain.User{
			ID:            node.Generate(),
			Email:         email,
			DisplayName:   "Stride Admin",
			PasswordHash:  string(hash),
			IsGlobalAdmin: true,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
		zap.L().Info("bootstrap global admin created", zap.String("email", email))
		return nil
	})
}
