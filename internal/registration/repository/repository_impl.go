package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/registration/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reg domain.Registration) error {
	return r.db.WithContext(ctx).Create(&reg).Error
}

func (r *repository) GetByID(ctx context.Context, teamID, id snowflake.ID) (*domain.Registration, error) {
	var reg domain.Registration
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND id = ?", teamID, id).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repository) List(ctx context.Context, teamID snowflake.ID, status string) ([]domain.Registration, error) {
	query := r.db.WithContext(ctx).Where("team_id = ?", teamID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var regs []domain.Registration
	if err := query.Order("created_at ASC").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repository) HasPendingForEmail(ctx context.Context, teamID snowflake.ID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Registration{}).
		Where("team_id = ? AND LOWER(email) = ? AND status = ?",
			teamID, strings.ToLower(email), domain.StatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id snowflake.ID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Registration{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
