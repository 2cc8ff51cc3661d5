package service

import (
	"context"
	"testing"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func seedInvestor(t *testing.T, db *gorm.DB, userID, principal int64, start time.Time, termMonths int, verified bool) *model.Investor {
	t.Helper()
	inv := &model.Investor{
		UserID:     userID,
		Principal:  principal,
		TermMonths: termMonths,
		StartDate:  start,
		ExpiryDate: start.AddDate(0, termMonths, 0),
	}
	if verified {
		now := time.Now()
		inv.VerifiedAt = &now
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("seed investor: %v", err)
	}
	return inv
}

func seedYearRevenue(t *testing.T, db *gorm.DB, year int, total int64) {
	t.Helper()
	if err := db.Create(&model.RevenueSnapshot{
		Year: year, Month: 12, OrderRevenue: total, Total: total, ComputedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed revenue: %v", err)
	}
}

func TestAllocateProportionalToPrincipal(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewSharingService(db, config.Default())
	ctx := context.Background()

	year := 2026
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	seedInvestor(t, db, 1, 100, start, 24, true)
	seedInvestor(t, db, 2, 300, start, 24, true)
	seedYearRevenue(t, db, year, 1000)

	report, err := svc.Allocate(ctx, year)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if report.TotalPrincipal != 400 {
		t.Errorf("total principal = %d, want 400", report.TotalPrincipal)
	}
	if len(report.Shares) != 2 {
		t.Fatalf("shares = %d, want 2", len(report.Shares))
	}

	// 1000 × 0.65 按本金 100:300 分成 162.5 和 487.5，运营方留 350
	shares := map[int64]decimal.Decimal{}
	for _, s := range report.Shares {
		shares[s.UserID] = s.Share
	}
	if !shares[1].Equal(decimal.RequireFromString("162.5")) {
		t.Errorf("share[1] = %s, want 162.5", shares[1])
	}
	if !shares[2].Equal(decimal.RequireFromString("487.5")) {
		t.Errorf("share[2] = %s, want 487.5", shares[2])
	}
	if !report.InvestorTotal.Equal(decimal.RequireFromString("650")) {
		t.Errorf("investor total = %s, want 650", report.InvestorTotal)
	}
	if !report.OperatorRetained.Equal(decimal.RequireFromString("350")) {
		t.Errorf("operator retained = %s, want 350", report.OperatorRetained)
	}
}

func TestAllocateNoInvestors(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewSharingService(db, config.Default())

	seedYearRevenue(t, db, 2026, 1000)

	report, err := svc.Allocate(context.Background(), 2026)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(report.Shares) != 0 {
		t.Errorf("shares = %d, want 0", len(report.Shares))
	}
	if !report.OperatorRetained.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("operator retained = %s, want 1000", report.OperatorRetained)
	}
}

func TestAllocateSkipsInactiveInvestors(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewSharingService(db, config.Default())
	ctx := context.Background()

	year := 2026
	// 未核验：不参与
	seedInvestor(t, db, 1, 100, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), 24, false)
	// 该年开始前已到期：不参与
	seedInvestor(t, db, 2, 200, time.Date(year-3, 1, 1, 0, 0, 0, 0, time.UTC), 12, true)
	// 在投且已核验：参与
	seedInvestor(t, db, 3, 300, time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC), 12, true)
	seedYearRevenue(t, db, year, 1000)

	report, err := svc.Allocate(ctx, year)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(report.Shares) != 1 || report.Shares[0].UserID != 3 {
		t.Fatalf("expected only investor 3, got %+v", report.Shares)
	}
	// 唯一的在投投资人拿走全部分红额度
	if !report.Shares[0].Share.Equal(decimal.RequireFromString("650")) {
		t.Errorf("share = %s, want 650", report.Shares[0].Share)
	}
}
