package service

import (
	"context"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/model"
	"tokokredit/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvestorShare 单个投资人的年度分红
type InvestorShare struct {
	UserID       int64           `json:"user_id"`
	InvestmentNo string          `json:"investment_no"`
	Principal    int64           `json:"principal"`
	Share        decimal.Decimal `json:"share"`
}

// AllocationReport 年度分红方案，只计算不落库
type AllocationReport struct {
	Year             int             `json:"year"`
	YearlyRevenue    int64           `json:"yearly_revenue"`
	TotalPrincipal   int64           `json:"total_principal"`
	DistributionRate float64         `json:"distribution_rate"`
	Shares           []InvestorShare `json:"shares"`
	InvestorTotal    decimal.Decimal `json:"investor_total"`
	OperatorRetained decimal.Decimal `json:"operator_retained"`
}

type SharingService struct {
	cfg          *config.Config
	investorRepo *repository.InvestorRepository
	revenueRepo  *repository.RevenueRepository
}

func NewSharingService(db *gorm.DB, cfg *config.Config) *SharingService {
	return &SharingService{
		cfg:          cfg,
		investorRepo: repository.NewInvestorRepository(db),
		revenueRepo:  repository.NewRevenueRepository(db),
	}
}

// Allocate 计算某年的分红方案
// 份额 = 本金 × 年营收 × 分配比例 / 本金合计，先乘后除避免精度损失。
// 无在投投资人时全额留存给运营方
func (s *SharingService) Allocate(ctx context.Context, year int) (*AllocationReport, error) {
	if year <= 0 {
		year = time.Now().Year()
	}

	revenue, err := s.revenueRepo.YearlyTotal(ctx, year)
	if err != nil {
		return nil, err
	}

	investors, err := s.investorRepo.ActiveForYear(ctx, year)
	if err != nil {
		return nil, err
	}

	rate := s.cfg.Business.DistributionRate
	if rate <= 0 || rate > 1 {
		rate = config.DefaultDistributionRate
	}

	report := &AllocationReport{
		Year:             year,
		YearlyRevenue:    revenue,
		DistributionRate: rate,
		Shares:           make([]InvestorShare, 0, len(investors)),
		InvestorTotal:    decimal.Zero,
		OperatorRetained: decimal.NewFromInt(revenue),
	}

	var totalPrincipal int64
	for _, inv := range investors {
		totalPrincipal += inv.Principal
	}
	report.TotalPrincipal = totalPrincipal
	if totalPrincipal == 0 {
		return report, nil
	}

	revDec := decimal.NewFromInt(revenue)
	rateDec := decimal.NewFromFloat(rate)
	totalDec := decimal.NewFromInt(totalPrincipal)

	investorTotal := decimal.Zero
	for _, inv := range investors {
		share := decimal.NewFromInt(inv.Principal).
			Mul(revDec).
			Mul(rateDec).
			Div(totalDec)
		report.Shares = append(report.Shares, InvestorShare{
			UserID:       inv.UserID,
			InvestmentNo: inv.InvestmentNo,
			Principal:    inv.Principal,
			Share:        share,
		})
		investorTotal = investorTotal.Add(share)
	}

	report.InvestorTotal = investorTotal
	report.OperatorRetained = revDec.Sub(investorTotal)
	return report, nil
}

// ActiveInvestors 某年参与分红的投资人名册
func (s *SharingService) ActiveInvestors(ctx context.Context, year int) ([]*model.Investor, error) {
	if year <= 0 {
		year = time.Now().Year()
	}
	return s.investorRepo.ActiveForYear(ctx, year)
}
