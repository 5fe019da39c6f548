package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/transfer/domain"
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

func (r *repository) Create(ctx context.Context, transfer domain.OwnershipTransfer) error {
	return r.db.WithContext(ctx).Create(&transfer).Error
}

func (r *repository) GetByID(ctx context.Context, teamID, id snowflake.ID) (*domain.OwnershipTransfer, error) {
	var transfer domain.OwnershipTransfer
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND id = ?", teamID, id).
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) GetByTokenHash(ctx context.Context, hash string) (*domain.OwnershipTransfer, error) {
	var transfer domain.OwnershipTransfer
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", hash).
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) GetPendingByTeam(ctx context.Context, teamID snowflake.ID) (*domain.OwnershipTransfer, error) {
	var transfer domain.OwnershipTransfer
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND status = ?", teamID, domain.StatusPending).
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) ListByTeam(ctx context.Context, teamID snowflake.ID) ([]domain.OwnershipTransfer, error) {
	var transfers []domain.OwnershipTransfer
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&domain.OwnershipTransfer{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) CancelOtherPending(ctx context.Context, teamID, keepID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.OwnershipTransfer{}).
		Where("team_id = ? AND status = ? AND id <> ?", teamID, domain.StatusPending, keepID).
		Update("status", domain.StatusCancelled).Error
}
