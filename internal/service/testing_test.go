package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tokokredit/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T, name string) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	return openTestDB(t, dsn)
}

// setupFileDB 落盘数据库，并发用例专用：
// 共享缓存的内存库对并发写会直接报锁冲突，落盘 + WAL + busy_timeout 才能跑多协程
func setupFileDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s/test.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", t.TempDir())
	return openTestDB(t, dsn)
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Credit{},
		&model.CreditDocument{},
		&model.CreditPayment{},
		&model.Investor{},
		&model.RevenueSnapshot{},
		&model.OutboxMessage{},
		&model.UserProfile{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// stubProfileChecker 档案完整性检查桩
type stubProfileChecker struct {
	complete bool
}

func (s *stubProfileChecker) IsComplete(ctx context.Context, userID int64) (bool, error) {
	return s.complete, nil
}

func seedProduct(t *testing.T, db *gorm.DB, code string, price int64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Code: code, Name: "商品" + code, Price: price, Stock: stock}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func seedCartItem(t *testing.T, db *gorm.DB, userID, productID int64, qty int) *model.CartItem {
	t.Helper()
	item := &model.CartItem{UserID: userID, ProductID: productID, Qty: qty}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
	return item
}

func seedCredit(t *testing.T, db *gorm.DB, code, status string, price, downPayment int64, tenor int, akad *time.Time) *model.Credit {
	t.Helper()
	c := &model.Credit{
		Code:        code,
		UserID:      1,
		Status:      status,
		Price:       price,
		DownPayment: downPayment,
		Installment: 100,
		Tenor:       tenor,
		SubmittedAt: time.Now(),
		AkadDate:    akad,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	return c
}

func timePtr(t time.Time) *time.Time {
	return &t
}
