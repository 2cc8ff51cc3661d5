package model

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品主数据
// Stock 只允许通过扣减/回补操作变更，工作流里不做整体覆盖写
type Product struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"` // 商品编码
	Name         string         `gorm:"type:varchar(200);not null" json:"name"`
	Price        int64          `gorm:"not null;default:0" json:"price"`         // 零售单价
	Stock        int            `gorm:"not null;default:0" json:"stock"`         // 可用库存，恒 >= 0
	ReorderLevel int            `gorm:"not null;default:0" json:"reorder_level"` // 补货阈值
	Version      int            `gorm:"not null;default:0" json:"version"`       // 乐观锁版本号
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "product"
}

// NeedsReorder 库存是否已低于补货阈值
func (p *Product) NeedsReorder() bool {
	return p.Stock <= p.ReorderLevel
}
