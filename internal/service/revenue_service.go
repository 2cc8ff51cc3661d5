package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/model"
	"tokokredit/internal/repository"

	"gorm.io/gorm"
)

type RevenueService struct {
	db          *gorm.DB
	cfg         *config.Config
	orderRepo   *repository.OrderRepository
	creditRepo  *repository.CreditRepository
	revenueRepo *repository.RevenueRepository
}

func NewRevenueService(db *gorm.DB, cfg *config.Config) *RevenueService {
	return &RevenueService{
		db:          db,
		cfg:         cfg,
		orderRepo:   repository.NewOrderRepository(db),
		creditRepo:  repository.NewCreditRepository(db),
		revenueRepo: repository.NewRevenueRepository(db),
	}
}

// ComputeMonthly 计算某月营收快照
// 零售口径：SUCCESS 且已核验未取消、支付日期在当月的订单总额。
// 信贷口径：还款中/NPL 且还款期窗口与当月有交集的信贷本金。
// 按 (year, month) 覆盖写，重算替换旧值，不累加
func (s *RevenueService) ComputeMonthly(ctx context.Context, year, month int) (*model.RevenueSnapshot, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: 月份 %d", repository.ErrValidation, month)
	}

	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	orderRevenue, err := s.orderRepo.MonthlyRevenue(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("统计零售营收失败: %w", err)
	}

	creditRevenue, err := s.monthlyCreditRevenue(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("统计信贷营收失败: %w", err)
	}

	snapshot, err := s.revenueRepo.Upsert(ctx, year, month, orderRevenue, creditRevenue)
	if err != nil {
		return nil, err
	}

	log.Printf("[Revenue] 月度快照已更新: %d-%02d, order=%d, credit=%d",
		year, month, orderRevenue, creditRevenue)
	return snapshot, nil
}

// monthlyCreditRevenue 信贷营收：在贷本金合计
// 还款期窗口 [akad, akad+tenor月] 与 [periodStart, periodEnd) 有交集才计入
func (s *RevenueService) monthlyCreditRevenue(ctx context.Context, periodStart, periodEnd time.Time) (int64, error) {
	credits, err := s.creditRepo.ListByStatuses(ctx, []string{
		model.CreditStatusOngoing,
		model.CreditStatusNonPerform,
	}, 0)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, credit := range credits {
		if credit.AkadDate == nil {
			continue
		}
		windowEnd := credit.AkadDate.AddDate(0, credit.Tenor, 0)
		if credit.AkadDate.Before(periodEnd) && !windowEnd.Before(periodStart) {
			total += credit.Principal()
		}
	}
	return total, nil
}

// MonthlySnapshots 某年的月度快照
func (s *RevenueService) MonthlySnapshots(ctx context.Context, year int) ([]*model.RevenueSnapshot, error) {
	return s.revenueRepo.ListByYear(ctx, year)
}

// RollupYearly 最近 yearsBack 年的年度营收，趋势报表用
func (s *RevenueService) RollupYearly(ctx context.Context, yearsBack int) ([]repository.YearTotal, error) {
	if yearsBack <= 0 {
		yearsBack = s.cfg.Business.RollupYearsBack
	}
	sinceYear := time.Now().Year() - yearsBack
	return s.revenueRepo.YearlyTotals(ctx, sinceYear)
}

// YearlyTotal 单年营收合计，分红计算的输入
func (s *RevenueService) YearlyTotal(ctx context.Context, year int) (int64, error) {
	return s.revenueRepo.YearlyTotal(ctx, year)
}
