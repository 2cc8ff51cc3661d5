package repository

import (
	"context"
	"errors"
	"time"

	"tokokredit/internal/model"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(items).Error
}

func (r *OrderRepository) GetByCode(ctx context.Context, code string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("code = ?", code).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 带前置状态守卫的状态更新
// WHERE code AND status 保证同一订单的并发写串行化：状态已被别人改走时影响行数为 0
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, code, fromStatus, toStatus string, extra map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("code = ? AND status = ?", code, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// OrderListParams 列表过滤条件
type OrderListParams struct {
	UserID        int64 // 0 表示不按用户过滤（管理端）
	Status        string
	PaymentMethod string
	Code          string
	DateStart     *time.Time
	DateEnd       *time.Time
	Page          int
	PageSize      int
}

func (r *OrderRepository) List(ctx context.Context, param OrderListParams) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{})

	if param.UserID > 0 {
		query = query.Where("user_id = ?", param.UserID)
	}
	if param.Status != "" {
		query = query.Where("status = ?", param.Status)
	}
	if param.PaymentMethod != "" {
		query = query.Where("payment_method = ?", param.PaymentMethod)
	}
	if param.Code != "" {
		query = query.Where("code = ?", param.Code)
	}
	if param.DateStart != nil {
		query = query.Where("created_at >= ?", param.DateStart)
	}
	if param.DateEnd != nil {
		query = query.Where("created_at < ?", param.DateEnd)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := param.Page
	if page < 1 {
		page = 1
	}
	pageSize := param.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

// MonthlyRevenue 某月零售营收
// 口径：状态 SUCCESS、已核验、未取消、支付日期落在该月
func (r *OrderRepository) MonthlyRevenue(ctx context.Context, periodStart, periodEnd time.Time) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("SUM(grand_total)").
		Where("status = ?", model.OrderStatusSuccess).
		Where("payment_date IS NOT NULL AND payment_date >= ? AND payment_date < ?", periodStart, periodEnd).
		Where("verified_at IS NOT NULL").
		Where("canceled_at IS NULL").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// StatusCount 周报统计行
type StatusCount struct {
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

// CountByStatusSince 按状态统计某时间之后创建的订单
func (r *OrderRepository) CountByStatusSince(ctx context.Context, since time.Time) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, COUNT(id) AS total").
		Where("created_at >= ?", since).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// ProductSales 商品月度销量行
type ProductSales struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	TotalQty  int64  `json:"total_qty"`
}

// SalesByProduct 按商品汇总某周期内完成订单的销量
func (r *OrderRepository) SalesByProduct(ctx context.Context, periodStart, periodEnd time.Time) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Select("order_item.product_id, product.name, SUM(order_item.qty) AS total_qty").
		Joins("JOIN `order` ON `order`.code = order_item.order_code").
		Joins("JOIN product ON product.id = order_item.product_id").
		Where("`order`.status = ?", model.OrderStatusSuccess).
		Where("order_item.created_at >= ? AND order_item.created_at < ?", periodStart, periodEnd).
		Group("order_item.product_id, product.name").
		Scan(&rows).Error
	return rows, err
}
