package repository

import (
	"context"
	"errors"
	"time"

	"tokokredit/internal/model"

	"gorm.io/gorm"
)

type InvestorRepository struct {
	db *gorm.DB
}

func NewInvestorRepository(db *gorm.DB) *InvestorRepository {
	return &InvestorRepository{db: db}
}

func (r *InvestorRepository) Create(ctx context.Context, investor *model.Investor) error {
	return r.db.WithContext(ctx).Create(investor).Error
}

func (r *InvestorRepository) GetByUserID(ctx context.Context, userID int64) (*model.Investor, error) {
	var investor model.Investor
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&investor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestorNotFound
		}
		return nil, err
	}
	return &investor, nil
}

func (r *InvestorRepository) Update(ctx context.Context, investor *model.Investor) error {
	return r.db.WithContext(ctx).Save(investor).Error
}

func (r *InvestorRepository) SoftDelete(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Investor{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvestorNotFound
	}
	return nil
}

func (r *InvestorRepository) List(ctx context.Context, page, pageSize int) ([]*model.Investor, int64, error) {
	var investors []*model.Investor
	var total int64

	// 列表含已软删的投资人，历史分红报表还要用到
	query := r.db.WithContext(ctx).Unscoped().Model(&model.Investor{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&investors).Error

	return investors, total, err
}

// ActiveForYear 某年参与分红的投资人
// 条件：已核验、未删除、投资期与该年有交集
func (r *InvestorRepository) ActiveForYear(ctx context.Context, year int) ([]*model.Investor, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	var investors []*model.Investor
	err := r.db.WithContext(ctx).
		Where("verified_at IS NOT NULL").
		Where("expiry_date >= ?", yearStart).
		Where("start_date < ?", yearEnd).
		Order("principal DESC").
		Find(&investors).Error
	return investors, err
}
