package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/model"
	"tokokredit/internal/repository"
)

func TestComputeMonthly(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewRevenueService(db, config.Default())
	ctx := context.Background()

	payDate := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	verifiedAt := time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)

	// 计入：已完成、已核验、支付日期在当月
	db.Create(&model.Order{
		Code: "O1", UserID: 1, Status: model.OrderStatusSuccess,
		GrandTotal: 500, PaymentDate: &payDate, VerifiedAt: &verifiedAt,
	})
	// 不计入：未完成
	db.Create(&model.Order{
		Code: "O2", UserID: 1, Status: model.OrderStatusWaiting, GrandTotal: 999,
	})
	// 不计入：支付日期在别的月份
	otherMonth := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	db.Create(&model.Order{
		Code: "O3", UserID: 1, Status: model.OrderStatusSuccess,
		GrandTotal: 999, PaymentDate: &otherMonth, VerifiedAt: &verifiedAt,
	})

	// 计入：还款期覆盖当月的在贷本金
	akad := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	seedCredit(t, db, "C1", model.CreditStatusOngoing, 1000, 0, 12, &akad)
	// 计入：NPL 本金同样在贷
	seedCredit(t, db, "C2", model.CreditStatusNonPerform, 700, 200, 12, &akad)
	// 不计入：还款期在当月之前已结束
	pastAkad := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedCredit(t, db, "C3", model.CreditStatusOngoing, 999, 0, 6, &pastAkad)
	// 不计入：已结清
	seedCredit(t, db, "C4", model.CreditStatusDone, 999, 0, 12, &akad)

	snapshot, err := svc.ComputeMonthly(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if snapshot.OrderRevenue != 500 {
		t.Errorf("order revenue = %d, want 500", snapshot.OrderRevenue)
	}
	if snapshot.CreditRevenue != 1500 {
		t.Errorf("credit revenue = %d, want 1500", snapshot.CreditRevenue)
	}
	if snapshot.Total != 2000 {
		t.Errorf("total = %d, want 2000", snapshot.Total)
	}
	if snapshot.RecomputedAt != nil {
		t.Error("first compute should not stamp recomputed_at")
	}
}

func TestComputeMonthlyIdempotent(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewRevenueService(db, config.Default())
	ctx := context.Background()

	akad := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	seedCredit(t, db, "C1", model.CreditStatusOngoing, 1000, 0, 12, &akad)

	first, err := svc.ComputeMonthly(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := svc.ComputeMonthly(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}

	// 覆盖写：同周期只有一行，数值一致，重算时间被盖上
	if second.Total != first.Total {
		t.Errorf("total changed on recompute: %d -> %d", first.Total, second.Total)
	}
	if second.RecomputedAt == nil {
		t.Error("recomputed_at not stamped")
	}

	var count int64
	db.Model(&model.RevenueSnapshot{}).Count(&count)
	if count != 1 {
		t.Errorf("snapshot rows = %d, want 1", count)
	}
}

func TestComputeMonthlyValidatesMonth(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewRevenueService(db, config.Default())

	for _, month := range []int{0, 13, -1} {
		if _, err := svc.ComputeMonthly(context.Background(), 2026, month); !errors.Is(err, repository.ErrValidation) {
			t.Errorf("month %d: expected ErrValidation, got %v", month, err)
		}
	}
}

func TestRollupYearly(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewRevenueService(db, config.Default())
	ctx := context.Background()

	now := time.Now()
	thisYear := now.Year()
	db.Create(&model.RevenueSnapshot{Year: thisYear, Month: 1, OrderRevenue: 100, Total: 100, ComputedAt: now})
	db.Create(&model.RevenueSnapshot{Year: thisYear, Month: 2, OrderRevenue: 200, Total: 200, ComputedAt: now})
	db.Create(&model.RevenueSnapshot{Year: thisYear - 1, Month: 12, OrderRevenue: 50, Total: 50, ComputedAt: now})

	rows, err := svc.RollupYearly(ctx, 5)
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	totals := map[int]int64{}
	for _, row := range rows {
		totals[row.Year] = row.Total
	}
	if totals[thisYear] != 300 || totals[thisYear-1] != 50 {
		t.Errorf("totals = %v, want {%d:300, %d:50}", totals, thisYear, thisYear-1)
	}
}
