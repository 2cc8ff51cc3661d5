package model

import (
	"time"
)

// UserProfile 用户档案（由身份服务维护，这里只读）
// 信贷申请要求档案完整：工作信息和推荐人都已填写
type UserProfile struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Name       string    `gorm:"type:varchar(200)" json:"name"`
	Phone      string    `gorm:"type:varchar(50)" json:"phone"`
	Employment string    `gorm:"type:varchar(200)" json:"employment"` // 工作信息
	Reference  string    `gorm:"type:varchar(200)" json:"reference"`  // 推荐人
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profile"
}

// Complete 档案是否完整
func (p *UserProfile) Complete() bool {
	return p.Employment != "" && p.Reference != ""
}
