package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/infrastructure/lock"
	"tokokredit/internal/model"
	"tokokredit/internal/repository"
	"tokokredit/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type OrderService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	orderRepo   *repository.OrderRepository
	productRepo *repository.ProductRepository
	cartRepo    *repository.CartRepository
	outboxRepo  *repository.OutboxRepository
	docStore    DocumentStore
	genCode     func() string
}

func NewOrderService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, docStore DocumentStore) *OrderService {
	return &OrderService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		orderRepo:   repository.NewOrderRepository(db),
		productRepo: repository.NewProductRepository(db),
		cartRepo:    repository.NewCartRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		docStore:    docStore,
		genCode:     idgen.GenerateOrderCode,
	}
}

// Checkout 从购物车创建订单
// 购物车读取、库存扣减、订单落库、购物车清理是同一个数据库事务：
// 任何一步失败整体回滚，不会出现扣了库存却没有订单的中间态
func (s *OrderService) Checkout(ctx context.Context, actor Actor, cartIDs []int64) (*model.Order, error) {
	if len(cartIDs) == 0 {
		return nil, repository.ErrEmptyCart
	}

	// 按买家维度加锁，挡掉网络抖动导致的重复提交
	if s.redisClient != nil {
		checkoutLock := lock.NewCheckoutLock(s.redisClient, actor.ID)
		if err := checkoutLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer checkoutLock.Unlock(ctx)
	}

	// 单号在事务内靠唯一索引兜底：撞号时整体回滚并换号重试
	var order *model.Order
	for attempt := 0; attempt < s.cfg.Business.CodeMaxRetries; attempt++ {
		code := s.genCode()

		err := s.db.Transaction(func(tx *gorm.DB) error {
			cartItems, err := s.cartRepo.ListByIDs(ctx, tx, actor.ID, cartIDs)
			if err != nil {
				return fmt.Errorf("读取购物车失败: %w", err)
			}
			if len(cartItems) == 0 {
				return repository.ErrEmptyCart
			}

			// 逐行生成订单项：单价取商品当前售价并固化为快照
			var (
				orderItems []*model.OrderItem
				stockLines []repository.StockLine
				totalItem  int
				grandTotal int64
			)
			for _, item := range cartItems {
				if item.Qty <= 0 {
					return fmt.Errorf("%w: 购物车行 %d 数量不合法", repository.ErrValidation, item.ID)
				}
				if item.Product == nil {
					return repository.ErrProductNotFound
				}

				lineTotal := int64(item.Qty) * item.Product.Price
				totalItem += item.Qty
				grandTotal += lineTotal

				orderItems = append(orderItems, &model.OrderItem{
					OrderCode:  code,
					ProductID:  item.ProductID,
					Qty:        item.Qty,
					UnitPrice:  item.Product.Price,
					TotalPrice: lineTotal,
				})
				stockLines = append(stockLines, repository.StockLine{
					ProductID: item.ProductID,
					Qty:       item.Qty,
				})
			}

			if err := s.productRepo.Deduct(ctx, tx, stockLines); err != nil {
				return err
			}

			order = &model.Order{
				Code:       code,
				UserID:     actor.ID,
				TotalItem:  totalItem,
				GrandTotal: grandTotal,
				Status:     model.OrderStatusWaiting,
			}
			if err := s.orderRepo.Create(ctx, tx, order); err != nil {
				return fmt.Errorf("创建订单失败: %w", err)
			}
			if err := s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
				return fmt.Errorf("写入订单明细失败: %w", err)
			}

			if err := s.cartRepo.DeleteByIDs(ctx, tx, actor.ID, cartIDs); err != nil {
				return fmt.Errorf("清理购物车失败: %w", err)
			}

			return s.writeOrderEvent(ctx, tx, order, "order.created")
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				log.Printf("[Order] 订单号撞号重试: code=%s, attempt=%d", code, attempt+1)
				continue
			}
			return nil, err
		}

		log.Printf("[Order] 下单成功: code=%s, userID=%d, total=%d", order.Code, actor.ID, order.GrandTotal)
		return order, nil
	}

	return nil, repository.ErrDuplicateCode
}

// PaymentRequest 支付登记请求
type PaymentRequest struct {
	Method   string
	BankName string
	RefNo    string
	Evidence []byte // 支付凭证，可为空
}

// RecordPayment 登记支付：waiting -> paid
func (s *OrderService) RecordPayment(ctx context.Context, actor Actor, code string, req PaymentRequest) (*model.Order, error) {
	switch req.Method {
	case model.PaymentMethodCash, model.PaymentMethodTransfer, model.PaymentMethodDeduction:
	default:
		return nil, fmt.Errorf("%w: 不支持的支付方式 %q", repository.ErrValidation, req.Method)
	}

	now := time.Now()
	extra := map[string]interface{}{
		"payment_method": req.Method,
		"bank_name":      req.BankName,
		"ref_no":         req.RefNo,
		"payment_date":   now,
	}
	order, err := s.applyAction(ctx, code, model.OrderActionPay, extra)
	if err != nil {
		return nil, err
	}

	// 凭证文件放外部存储，失败只记日志，不影响已登记的支付
	if s.docStore != nil && len(req.Evidence) > 0 {
		manifest, err := s.docStore.Place("order/"+code, map[string][]byte{"evidence": req.Evidence})
		if err != nil {
			log.Printf("[Order] 支付凭证保存失败: code=%s, err=%v", code, err)
		} else if name, ok := manifest["evidence"]; ok {
			if err := s.db.WithContext(ctx).Model(&model.Order{}).
				Where("code = ?", code).
				Update("evidence_file", name).Error; err != nil {
				log.Printf("[Order] 回写凭证文件名失败: code=%s, err=%v", code, err)
			}
		}
	}

	return order, nil
}

// Verify 审核支付：paid -> proceed
func (s *OrderService) Verify(ctx context.Context, actor Actor, code string) (*model.Order, error) {
	now := time.Now()
	return s.applyAction(ctx, code, model.OrderActionVerify, map[string]interface{}{
		"verificator_id": actor.ID,
		"verified_at":    now,
	})
}

// Complete 完成订单：proceed -> success
func (s *OrderService) Complete(ctx context.Context, actor Actor, code string) (*model.Order, error) {
	return s.applyAction(ctx, code, model.OrderActionComplete, nil)
}

// Abort 取消订单并回补库存
// 这是撤销已提交扣减的唯一路径：状态守卫保证补偿只会执行一次
func (s *OrderService) Abort(ctx context.Context, actor Actor, code string) (*model.Order, error) {
	order, err := s.orderRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	next, ok := model.NextOrderStatus(order.Status, model.OrderActionCancel)
	if !ok {
		return nil, repository.ErrInvalidTransition
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.UpdateStatus(ctx, tx, code, order.Status, next, map[string]interface{}{
			"canceled_at": now,
		}); err != nil {
			return err
		}

		var stockLines []repository.StockLine
		for _, item := range order.Items {
			stockLines = append(stockLines, repository.StockLine{
				ProductID: item.ProductID,
				Qty:       item.Qty,
			})
		}
		if err := s.productRepo.Return(ctx, tx, stockLines); err != nil {
			return fmt.Errorf("回补库存失败: %w", err)
		}

		return s.writeOrderEvent(ctx, tx, order, "order.canceled")
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Order] 订单已取消并回补库存: code=%s", code)
	return s.orderRepo.GetByCode(ctx, code)
}

// applyAction 查迁移表后做守卫更新，并发下被抢先的迁移会拿到 ErrInvalidTransition
func (s *OrderService) applyAction(ctx context.Context, code string, action model.OrderAction, extra map[string]interface{}) (*model.Order, error) {
	order, err := s.orderRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	next, ok := model.NextOrderStatus(order.Status, action)
	if !ok {
		return nil, repository.ErrInvalidTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.UpdateStatus(ctx, tx, code, order.Status, next, extra); err != nil {
			return err
		}
		return s.writeOrderEvent(ctx, tx, order, "order."+string(action))
	})
	if err != nil {
		return nil, err
	}

	return s.orderRepo.GetByCode(ctx, code)
}

func (s *OrderService) writeOrderEvent(ctx context.Context, tx *gorm.DB, order *model.Order, event string) error {
	if s.cfg.Kafka.Topic.OrderEvent == "" {
		return nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"event":       event,
		"code":        order.Code,
		"user_id":     order.UserID,
		"grand_total": order.GrandTotal,
		"at":          time.Now().Format(time.RFC3339),
	})

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: order.Code,
		Topic:      s.cfg.Kafka.Topic.OrderEvent,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, code string) (*model.Order, error) {
	order, err := s.orderRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	// 普通用户只能看自己的订单
	if actor.Level != "owner" && order.UserID != actor.ID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, actor Actor, param repository.OrderListParams) ([]*model.Order, int64, error) {
	if actor.Level != "owner" {
		param.UserID = actor.ID
	}
	return s.orderRepo.List(ctx, param)
}

// OrderStatistics 近七天订单统计
type OrderStatistics struct {
	ByStatus []repository.StatusCount `json:"by_status"`
}

func (s *OrderService) Statistics(ctx context.Context) (*OrderStatistics, error) {
	since := time.Now().AddDate(0, 0, -7)
	rows, err := s.orderRepo.CountByStatusSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return &OrderStatistics{ByStatus: rows}, nil
}

// MonthlySales 某月各商品销量（完成订单口径）
func (s *OrderService) MonthlySales(ctx context.Context, year, month int) ([]repository.ProductSales, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: 月份 %d", repository.ErrValidation, month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return s.orderRepo.SalesByProduct(ctx, start, start.AddDate(0, 1, 0))
}
