package repository

import (
	"context"
	"errors"

	"tokokredit/internal/model"

	"gorm.io/gorm"
)

// StockLine 一次库存变更里的一行 (商品, 数量)
type StockLine struct {
	ProductID int64
	Qty       int
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Deduct 批量扣减库存
// 条件更新 stock >= qty 保证库存永不为负；任何一行扣不动就返回错误，
// 由外层事务整体回滚，批次内不会留下部分扣减
func (r *ProductRepository) Deduct(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	if tx == nil {
		tx = r.db
	}
	for _, line := range lines {
		result := tx.WithContext(ctx).
			Model(&model.Product{}).
			Where("id = ? AND stock >= ?", line.ProductID, line.Qty).
			Updates(map[string]interface{}{
				"stock":   gorm.Expr("stock - ?", line.Qty),
				"version": gorm.Expr("version + 1"),
			})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// 区分商品不存在和库存不够
			var count int64
			if err := tx.WithContext(ctx).Model(&model.Product{}).
				Where("id = ?", line.ProductID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrProductNotFound
			}
			return &InsufficientStockError{ProductID: line.ProductID}
		}
	}
	return nil
}

// Return 批量回补库存，取消订单的补偿动作
func (r *ProductRepository) Return(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	if tx == nil {
		tx = r.db
	}
	for _, line := range lines {
		result := tx.WithContext(ctx).
			Model(&model.Product{}).
			Where("id = ?", line.ProductID).
			Updates(map[string]interface{}{
				"stock":   gorm.Expr("stock + ?", line.Qty),
				"version": gorm.Expr("version + 1"),
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, page, pageSize int) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error

	return products, total, err
}

// ListLowStock 库存不高于补货阈值的商品
func (r *ProductRepository) ListLowStock(ctx context.Context, limit int) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("stock <= reorder_level").
		Order("stock ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}
