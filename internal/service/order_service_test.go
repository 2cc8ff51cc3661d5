package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tokokredit/internal/config"
	"tokokredit/internal/model"
	"tokokredit/internal/repository"
)

func TestCheckoutHappyPath(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()
	buyer := Actor{ID: 7, Level: "buyer"}

	p := seedProduct(t, db, "P1", 10, 5)
	cart := seedCartItem(t, db, buyer.ID, p.ID, 2)

	order, err := svc.Checkout(ctx, buyer, []int64{cart.ID})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Status != model.OrderStatusWaiting {
		t.Errorf("status = %s, want %s", order.Status, model.OrderStatusWaiting)
	}
	if order.GrandTotal != 20 || order.TotalItem != 2 {
		t.Errorf("total = (%d, %d), want (20, 2)", order.GrandTotal, order.TotalItem)
	}
	if len(order.Code) == 0 {
		t.Error("order code empty")
	}

	// 库存已扣
	var got model.Product
	db.First(&got, p.ID)
	if got.Stock != 3 {
		t.Errorf("stock = %d, want 3", got.Stock)
	}

	// 购物车行已消费
	var cartCount int64
	db.Model(&model.CartItem{}).Count(&cartCount)
	if cartCount != 0 {
		t.Errorf("cart rows = %d, want 0", cartCount)
	}

	// 明细带单价快照
	var items []model.OrderItem
	db.Where("order_code = ?", order.Code).Find(&items)
	if len(items) != 1 {
		t.Fatalf("order items = %d, want 1", len(items))
	}
	if items[0].UnitPrice != 10 || items[0].TotalPrice != 20 {
		t.Errorf("item price = (%d, %d), want (10, 20)", items[0].UnitPrice, items[0].TotalPrice)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()

	if _, err := svc.Checkout(ctx, Actor{ID: 7}, nil); !errors.Is(err, repository.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart for empty ids, got %v", err)
	}

	// 别人的购物车行对本人不可见，等同空车
	p := seedProduct(t, db, "P1", 10, 5)
	other := seedCartItem(t, db, 99, p.ID, 1)
	if _, err := svc.Checkout(ctx, Actor{ID: 7}, []int64{other.ID}); !errors.Is(err, repository.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart for foreign cart row, got %v", err)
	}
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()
	buyer := Actor{ID: 7}

	p := seedProduct(t, db, "P1", 10, 5)
	cart := seedCartItem(t, db, buyer.ID, p.ID, 10)

	_, err := svc.Checkout(ctx, buyer, []int64{cart.ID})
	var stockErr *repository.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	// 整体回滚：没有订单、没有明细、购物车还在、库存不变
	var orderCount, itemCount, cartCount int64
	db.Model(&model.Order{}).Count(&orderCount)
	db.Model(&model.OrderItem{}).Count(&itemCount)
	db.Model(&model.CartItem{}).Count(&cartCount)
	if orderCount != 0 || itemCount != 0 || cartCount != 1 {
		t.Errorf("counts = (%d, %d, %d), want (0, 0, 1)", orderCount, itemCount, cartCount)
	}

	var got model.Product
	db.First(&got, p.ID)
	if got.Stock != 5 {
		t.Errorf("stock = %d, want 5", got.Stock)
	}
}

func TestCheckoutConcurrentOneLoser(t *testing.T) {
	db := setupFileDB(t)
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()

	// 库存 5，两个买家各下 3 件：恰好一单成交、一单因库存不足失败
	p := seedProduct(t, db, "P1", 10, 5)
	cartA := seedCartItem(t, db, 7, p.ID, 3)
	cartB := seedCartItem(t, db, 8, p.ID, 3)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, c := range []struct {
		buyer  Actor
		cartID int64
	}{
		{Actor{ID: 7}, cartA.ID},
		{Actor{ID: 8}, cartB.ID},
	} {
		wg.Add(1)
		go func(buyer Actor, cartID int64) {
			defer wg.Done()
			_, err := svc.Checkout(ctx, buyer, []int64{cartID})
			errs <- err
		}(c.buyer, c.cartID)
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		var stockErr *repository.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("unexpected error: %v", err)
		}
		insufficient++
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("ok = %d, insufficient = %d, want 1/1", ok, insufficient)
	}

	var got model.Product
	db.First(&got, p.ID)
	if got.Stock != 2 {
		t.Errorf("stock = %d, want 2", got.Stock)
	}

	// 赢家的订单在，输家没有留下任何痕迹
	var orderCount int64
	db.Model(&model.Order{}).Count(&orderCount)
	if orderCount != 1 {
		t.Errorf("orders = %d, want 1", orderCount)
	}
}

func TestCheckoutRetriesOnCodeCollision(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()
	buyer := Actor{ID: 7}

	p := seedProduct(t, db, "P1", 10, 9)

	// 占住编号 TAKEN01
	if err := db.Create(&model.Order{Code: "TAKEN01", UserID: 99, Status: model.OrderStatusWaiting}).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	// 第一次生成撞号，第二次换到空闲编号
	codes := []string{"TAKEN01", "FRESH01"}
	svc.genCode = func() string {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code
	}

	cart := seedCartItem(t, db, buyer.ID, p.ID, 2)
	order, err := svc.Checkout(ctx, buyer, []int64{cart.ID})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if order.Code != "FRESH01" {
		t.Errorf("code = %s, want FRESH01", order.Code)
	}

	// 撞号那轮已整体回滚，成功轮才扣库存
	var got model.Product
	db.First(&got, p.ID)
	if got.Stock != 7 {
		t.Errorf("stock = %d, want 7", got.Stock)
	}
}

func TestCheckoutDuplicateCodeExhausted(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()
	buyer := Actor{ID: 7}

	p := seedProduct(t, db, "P1", 10, 9)
	if err := db.Create(&model.Order{Code: "TAKEN01", UserID: 99, Status: model.OrderStatusWaiting}).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	svc.genCode = func() string { return "TAKEN01" }

	cart := seedCartItem(t, db, buyer.ID, p.ID, 2)
	if _, err := svc.Checkout(ctx, buyer, []int64{cart.ID}); !errors.Is(err, repository.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}

	// 次次回滚：库存和购物车都原封不动
	var got model.Product
	db.First(&got, p.ID)
	if got.Stock != 9 {
		t.Errorf("stock = %d, want 9", got.Stock)
	}
	var cartCount int64
	db.Model(&model.CartItem{}).Count(&cartCount)
	if cartCount != 1 {
		t.Errorf("cart rows = %d, want 1", cartCount)
	}
}

func TestOrderLifecycle(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()
	buyer := Actor{ID: 7}
	admin := Actor{ID: 42, Level: "owner"}

	p := seedProduct(t, db, "P1", 10, 5)
	cart := seedCartItem(t, db, buyer.ID, p.ID, 1)

	order, err := svc.Checkout(ctx, buyer, []int64{cart.ID})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// waiting -> paid
	order, err = svc.RecordPayment(ctx, buyer, order.Code, PaymentRequest{
		Method:   model.PaymentMethodTransfer,
		BankName: "BCA",
		RefNo:    "TRX-001",
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if order.Status != model.OrderStatusPaid {
		t.Errorf("status = %s, want %s", order.Status, model.OrderStatusPaid)
	}
	if order.PaymentDate == nil || order.PaymentMethod != model.PaymentMethodTransfer {
		t.Error("payment fields not stamped")
	}

	// 重复支付被状态机拒绝
	if _, err := svc.RecordPayment(ctx, buyer, order.Code, PaymentRequest{Method: model.PaymentMethodCash}); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double pay, got %v", err)
	}

	// paid -> proceed
	order, err = svc.Verify(ctx, admin, order.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if order.Status != model.OrderStatusProceed {
		t.Errorf("status = %s, want %s", order.Status, model.OrderStatusProceed)
	}
	if order.VerificatorID == nil || *order.VerificatorID != admin.ID {
		t.Error("verificator not stamped")
	}

	// proceed -> success
	order, err = svc.Complete(ctx, admin, order.Code)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if order.Status != model.OrderStatusSuccess {
		t.Errorf("status = %s, want %s", order.Status, model.OrderStatusSuccess)
	}

	// 终态后不能再取消
	if _, err := svc.Abort(ctx, admin, order.Code); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after terminal, got %v", err)
	}
}

func TestAbortReturnsStock(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()
	buyer := Actor{ID: 7}

	p := seedProduct(t, db, "P1", 10, 5)
	cart := seedCartItem(t, db, buyer.ID, p.ID, 2)

	order, err := svc.Checkout(ctx, buyer, []int64{cart.ID})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order, err = svc.Abort(ctx, buyer, order.Code)
	if err != nil {
		t.Fatalf("abort: %v", err)
	}
	if order.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want %s", order.Status, model.OrderStatusCanceled)
	}
	if order.CanceledAt == nil {
		t.Error("canceled_at not stamped")
	}

	var got model.Product
	db.First(&got, p.ID)
	if got.Stock != 5 {
		t.Errorf("stock = %d, want 5", got.Stock)
	}

	// 补偿只能执行一次
	if _, err := svc.Abort(ctx, buyer, order.Code); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second abort, got %v", err)
	}
	db.First(&got, p.ID)
	if got.Stock != 5 {
		t.Errorf("stock after second abort = %d, want 5", got.Stock)
	}
}

func TestRecordPaymentRejectsUnknownMethod(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)

	_, err := svc.RecordPayment(context.Background(), Actor{ID: 7}, "whatever", PaymentRequest{Method: "BARTER"})
	if !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetOrderOwnerScope(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewOrderService(db, nil, config.Default(), nil)
	ctx := context.Background()
	buyer := Actor{ID: 7}

	p := seedProduct(t, db, "P1", 10, 5)
	cart := seedCartItem(t, db, buyer.ID, p.ID, 1)
	order, err := svc.Checkout(ctx, buyer, []int64{cart.ID})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// 他人的订单对普通用户不可见
	if _, err := svc.GetOrder(ctx, Actor{ID: 8}, order.Code); !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign buyer, got %v", err)
	}
	// 店主可见
	if _, err := svc.GetOrder(ctx, Actor{ID: 1, Level: "owner"}, order.Code); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}
