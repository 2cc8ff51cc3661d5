package model

import (
	"time"
)

// RevenueSnapshot 月度营收快照
// 按 (year, month) 幂等重算：重算覆盖旧值并记 RecomputedAt，不会产生重复行
type RevenueSnapshot struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Year          int        `gorm:"not null;uniqueIndex:idx_revenue_period" json:"year"`
	Month         int        `gorm:"not null;uniqueIndex:idx_revenue_period" json:"month"`
	OrderRevenue  int64      `gorm:"not null;default:0" json:"order_revenue"`  // 零售营收
	CreditRevenue int64      `gorm:"not null;default:0" json:"credit_revenue"` // 在贷本金口径的信贷营收
	Total         int64      `gorm:"not null;default:0" json:"total"`
	ComputedAt    time.Time  `gorm:"not null" json:"computed_at"`
	RecomputedAt  *time.Time `json:"recomputed_at"`
}

func (RevenueSnapshot) TableName() string {
	return "revenue_snapshot"
}
