package repository

import (
	"context"
	"errors"
	"time"

	"tokokredit/internal/model"

	"gorm.io/gorm"
)

type RevenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

func (r *RevenueRepository) GetByPeriod(ctx context.Context, year, month int) (*model.RevenueSnapshot, error) {
	var snapshot model.RevenueSnapshot
	err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// Upsert 按 (year, month) 覆盖写快照
// 重算替换旧值并盖 RecomputedAt，同周期永远只有一行
func (r *RevenueRepository) Upsert(ctx context.Context, year, month int, orderRevenue, creditRevenue int64) (*model.RevenueSnapshot, error) {
	existing, err := r.GetByPeriod(ctx, year, month)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if existing == nil {
		snapshot := &model.RevenueSnapshot{
			Year:          year,
			Month:         month,
			OrderRevenue:  orderRevenue,
			CreditRevenue: creditRevenue,
			Total:         orderRevenue + creditRevenue,
			ComputedAt:    now,
		}
		if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
			return nil, err
		}
		return snapshot, nil
	}

	existing.OrderRevenue = orderRevenue
	existing.CreditRevenue = creditRevenue
	existing.Total = orderRevenue + creditRevenue
	existing.RecomputedAt = &now
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// ListByYear 某年的月度快照，按月份排序
func (r *RevenueRepository) ListByYear(ctx context.Context, year int) ([]*model.RevenueSnapshot, error) {
	var snapshots []*model.RevenueSnapshot
	err := r.db.WithContext(ctx).
		Where("year = ?", year).
		Order("month ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// YearTotal 年度汇总行
type YearTotal struct {
	Year  int   `json:"year"`
	Total int64 `json:"total"`
}

// YearlyTotals 最近若干年的年度营收
func (r *RevenueRepository) YearlyTotals(ctx context.Context, sinceYear int) ([]YearTotal, error) {
	var rows []YearTotal
	err := r.db.WithContext(ctx).
		Model(&model.RevenueSnapshot{}).
		Select("year, SUM(total) AS total").
		Where("year >= ?", sinceYear).
		Group("year").
		Order("year ASC").
		Scan(&rows).Error
	return rows, err
}

// YearlyTotal 单年营收合计
func (r *RevenueRepository) YearlyTotal(ctx context.Context, year int) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&model.RevenueSnapshot{}).
		Select("SUM(total)").
		Where("year = ?", year).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
