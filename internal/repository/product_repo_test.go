package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

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

func seedProduct(t *testing.T, db *gorm.DB, code string, price int64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Code: code, Name: "商品" + code, Price: price, Stock: stock}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestDeductKeepsStockNonNegative(t *testing.T) {
	db := setupTestDB(t, t.Name())
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "P1", 100, 5)

	if err := repo.Deduct(ctx, nil, []StockLine{{ProductID: p.ID, Qty: 3}}); err != nil {
		t.Fatalf("first deduct: %v", err)
	}

	// 剩 2 件，再扣 3 必须失败且库存不变
	err := repo.Deduct(ctx, nil, []StockLine{{ProductID: p.ID, Qty: 3}})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != p.ID {
		t.Errorf("ProductID = %d, want %d", stockErr.ProductID, p.ID)
	}

	var got model.Product
	if err := db.First(&got, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Stock != 2 {
		t.Errorf("stock = %d, want 2", got.Stock)
	}
}

func TestDeductConcurrentOneLoser(t *testing.T) {
	db := setupFileDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	// 库存 5，两个协程各扣 3：合计超过库存，必须恰好一个失败
	p := seedProduct(t, db, "P1", 100, 5)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Deduct(ctx, nil, []StockLine{{ProductID: p.ID, Qty: 3}})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		var stockErr *InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("unexpected error: %v", err)
		}
		insufficient++
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("ok = %d, insufficient = %d, want 1/1", ok, insufficient)
	}

	var got model.Product
	if err := db.First(&got, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Stock != 2 {
		t.Errorf("stock = %d, want 2", got.Stock)
	}
}

func TestDeductUnknownProduct(t *testing.T) {
	db := setupTestDB(t, t.Name())
	repo := NewProductRepository(db)

	err := repo.Deduct(context.Background(), nil, []StockLine{{ProductID: 9999, Qty: 1}})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestDeductBatchRollsBackInTransaction(t *testing.T) {
	db := setupTestDB(t, t.Name())
	repo := NewProductRepository(db)
	ctx := context.Background()

	p1 := seedProduct(t, db, "P1", 100, 10)
	p2 := seedProduct(t, db, "P2", 200, 1)

	// 第二行扣不动，整个事务回滚，第一行的扣减也要撤销
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.Deduct(ctx, tx, []StockLine{
			{ProductID: p1.ID, Qty: 2},
			{ProductID: p2.ID, Qty: 5},
		})
	})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	var got1, got2 model.Product
	db.First(&got1, p1.ID)
	db.First(&got2, p2.ID)
	if got1.Stock != 10 || got2.Stock != 1 {
		t.Errorf("stock = (%d, %d), want (10, 1)", got1.Stock, got2.Stock)
	}
}

func TestReturnAddsStockBack(t *testing.T) {
	db := setupTestDB(t, t.Name())
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "P1", 100, 2)

	if err := repo.Return(ctx, nil, []StockLine{{ProductID: p.ID, Qty: 3}}); err != nil {
		t.Fatalf("return: %v", err)
	}

	var got model.Product
	db.First(&got, p.ID)
	if got.Stock != 5 {
		t.Errorf("stock = %d, want 5", got.Stock)
	}
}

func TestListLowStock(t *testing.T) {
	db := setupTestDB(t, t.Name())
	repo := NewProductRepository(db)

	seedProduct(t, db, "P1", 100, 50)
	low := &model.Product{Code: "P2", Name: "低库存", Price: 100, Stock: 2, ReorderLevel: 5}
	if err := db.Create(low).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	products, err := repo.ListLowStock(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 || products[0].Code != "P2" {
		t.Fatalf("expected only P2, got %d rows", len(products))
	}
}
