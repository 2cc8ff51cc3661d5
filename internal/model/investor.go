package model

import (
	"time"

	"gorm.io/gorm"
)

// Investor 出资人
// ExpiryDate 恒等于 StartDate + TermMonths 个月，只在创建/改期时重算
type Investor struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64          `gorm:"uniqueIndex;not null" json:"user_id"`
	InvestmentNo string         `gorm:"type:varchar(50)" json:"investment_no"`
	Principal    int64          `gorm:"not null;default:0" json:"principal"` // 出资额
	TermMonths   int            `gorm:"not null;default:0" json:"term_months"`
	BankName     string         `gorm:"type:varchar(200)" json:"bank_name"`
	AccountNo    string         `gorm:"type:varchar(200)" json:"account_no"`
	StartDate    time.Time      `gorm:"not null" json:"start_date"`
	ExpiryDate   time.Time      `gorm:"not null;index" json:"expiry_date"`
	VerifiedAt   *time.Time     `json:"verified_at"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Investor) TableName() string {
	return "investor"
}

// ActiveInYear 当年是否计入分红：已核验且投资期与该年有交集
func (i *Investor) ActiveInYear(year int) bool {
	if i.VerifiedAt == nil {
		return false
	}
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return !i.ExpiryDate.Before(yearStart) && !i.StartDate.After(yearEnd)
}
