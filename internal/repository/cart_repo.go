package repository

import (
	"context"

	"tokokredit/internal/model"

	"gorm.io/gorm"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// ListByIDs 按 ID 集合读取某个用户的购物车行，带商品信息
// 只返回归属该用户的行，别人的 cart id 混进来会被直接过滤掉；
// 下单时传入事务句柄，保证读到的是同一快照
func (r *CartRepository) ListByIDs(ctx context.Context, tx *gorm.DB, userID int64, ids []int64) ([]*model.CartItem, error) {
	if tx == nil {
		tx = r.db
	}
	var items []*model.CartItem
	err := tx.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&items).Error
	return items, err
}

// DeleteByIDs 下单成功后整批删除已消费的购物车行
func (r *CartRepository) DeleteByIDs(ctx context.Context, tx *gorm.DB, userID int64, ids []int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.CartItem{}).Error
}
