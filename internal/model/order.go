package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	OrderStatusWaiting  = "WAITING" // 待支付
	OrderStatusPaid     = "PAID"    // 已支付，待审核
	OrderStatusProceed  = "PROCEED" // 审核通过，处理中
	OrderStatusSuccess  = "SUCCESS" // 完成（终态）
	OrderStatusCanceled = "CANCELED" // 已取消（终态）
)

const (
	PaymentMethodCash      = "CASH"
	PaymentMethodTransfer  = "TRANSFER"
	PaymentMethodDeduction = "SALARY DEDUCTION" // 工资代扣
)

// OrderAction 订单状态机动作
type OrderAction string

const (
	OrderActionPay      OrderAction = "pay"
	OrderActionVerify   OrderAction = "verify"
	OrderActionComplete OrderAction = "complete"
	OrderActionCancel   OrderAction = "cancel"
)

type orderTransition struct {
	Status string
	Action OrderAction
}

// 状态迁移表：(当前状态, 动作) -> 下一状态
// 不在表里的组合一律拒绝，避免各处 if 分支各改各的状态
var orderTransitions = map[orderTransition]string{
	{OrderStatusWaiting, OrderActionPay}:      OrderStatusPaid,
	{OrderStatusPaid, OrderActionVerify}:      OrderStatusProceed,
	{OrderStatusProceed, OrderActionComplete}: OrderStatusSuccess,
	{OrderStatusWaiting, OrderActionCancel}:   OrderStatusCanceled,
	{OrderStatusPaid, OrderActionCancel}:      OrderStatusCanceled,
	{OrderStatusProceed, OrderActionCancel}:   OrderStatusCanceled,
}

// NextOrderStatus 查迁移表，返回目标状态；组合非法时 ok 为 false
func NextOrderStatus(current string, action OrderAction) (string, bool) {
	next, ok := orderTransitions[orderTransition{current, action}]
	return next, ok
}

// IsOrderTerminal 终态订单不再接受任何动作
func IsOrderTerminal(status string) bool {
	return status == OrderStatusSuccess || status == OrderStatusCanceled
}

// Order 销售订单
// 行项目写入后不可变（价格快照），GrandTotal = 各行 TotalPrice 之和
type Order struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string         `gorm:"type:varchar(8);uniqueIndex;not null" json:"code"` // 交易码
	UserID        int64          `gorm:"index;not null" json:"user_id"`
	TotalItem     int            `gorm:"not null;default:0" json:"total_item"`
	GrandTotal    int64          `gorm:"not null;default:0" json:"grand_total"`
	Status        string         `gorm:"type:varchar(20);index;not null" json:"status"`
	PaymentMethod string         `gorm:"type:varchar(20)" json:"payment_method"`
	BankName      string         `gorm:"type:varchar(200)" json:"bank_name"`
	RefNo         string         `gorm:"type:varchar(200)" json:"ref_no"`
	EvidenceFile  string         `gorm:"type:varchar(200)" json:"evidence_file"` // 支付凭证文件名
	PaymentDate   *time.Time     `json:"payment_date"`
	VerificatorID *int64         `json:"verificator_id"`
	VerifiedAt    *time.Time     `json:"verified_at"`
	CanceledAt    *time.Time     `json:"canceled_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderCode;references:Code" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "order"
}

// OrderItem 订单行，下单时锁定单价
type OrderItem struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderCode  string    `gorm:"type:varchar(8);index;not null" json:"order_code"`
	ProductID  int64     `gorm:"index;not null" json:"product_id"`
	Qty        int       `gorm:"not null;default:1" json:"qty"`
	UnitPrice  int64     `gorm:"not null" json:"unit_price"`  // 下单时的单价快照
	TotalPrice int64     `gorm:"not null" json:"total_price"` // Qty * UnitPrice
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_item"
}
