package model

import (
	"time"
)

// CartItem 购物车行
// 属于临时数据：下单时整批消费并删除
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	ProductID int64     `gorm:"index;not null" json:"product_id"`
	Qty       int       `gorm:"not null;default:1" json:"qty"`
	Note      string    `gorm:"type:varchar(256)" json:"note"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_item"
}
