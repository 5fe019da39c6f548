package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/athlete/domain"
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

func (r *repository) Create(ctx context.Context, athlete domain.Athlete) error {
	return r.db.WithContext(ctx).Create(&athlete).Error
}

func (r *repository) GetByID(ctx context.Context, teamID, id snowflake.ID) (*domain.Athlete, error) {
	var athlete domain.Athlete
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND id = ?", teamID, id).
		First(&athlete).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &athlete, nil
}

func (r *repository) List(ctx context.Context, teamID snowflake.ID, activeOnly bool) ([]domain.Athlete, error) {
	query := r.db.WithContext(ctx).Where("team_id = ?", teamID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var athletes []domain.Athlete
	if err := query.Order("last_name ASC, first_name ASC").Find(&athletes).Error; err != nil {
		return nil, err
	}
	return athletes, nil
}

func (r *repository) CountActive(ctx context.Context, teamID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Athlete{}).
		Where("team_id = ? AND active = ?", teamID, true).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateFields(ctx context.Context, teamID, id snowflake.ID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Athlete{}).
		Where("team_id = ? AND id = ?", teamID, id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, teamID, id snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&domain.Athlete{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
