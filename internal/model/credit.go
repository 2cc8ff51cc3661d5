package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	CreditStatusWaiting    = "WAITING"     // 待确认
	CreditStatusVerified   = "VERIFIED"    // 已核验
	CreditStatusApproved   = "APPROVED"    // 已批准
	CreditStatusOngoing    = "ONGOING"     // 还款中
	CreditStatusDone       = "DONE"        // 已结清（终态）
	CreditStatusReject     = "REJECT"      // 已拒绝（终态）
	CreditStatusNonPerform = "NON_PERFORM" // 逾期未还 / NPL
)

// CreditAction 信贷状态机动作
type CreditAction string

const (
	CreditActionVerify   CreditAction = "verify"
	CreditActionApprove  CreditAction = "approve"
	CreditActionReject   CreditAction = "reject"
	CreditActionActivate CreditAction = "activate" // 签约放款，进入还款期
	CreditActionFinish   CreditAction = "finish"
	CreditActionMarkNPL  CreditAction = "mark_npl"
)

type creditTransition struct {
	Status string
	Action CreditAction
}

// 状态迁移表：(当前状态, 动作) -> 下一状态
// reject 只能发生在放款之前；NPL 结清后允许 finish 关账
var creditTransitions = map[creditTransition]string{
	{CreditStatusWaiting, CreditActionVerify}:    CreditStatusVerified,
	{CreditStatusVerified, CreditActionApprove}:  CreditStatusApproved,
	{CreditStatusApproved, CreditActionActivate}: CreditStatusOngoing,
	{CreditStatusOngoing, CreditActionFinish}:    CreditStatusDone,
	{CreditStatusWaiting, CreditActionReject}:    CreditStatusReject,
	{CreditStatusVerified, CreditActionReject}:   CreditStatusReject,
	{CreditStatusApproved, CreditActionReject}:   CreditStatusReject,
	{CreditStatusOngoing, CreditActionMarkNPL}:   CreditStatusNonPerform,
	{CreditStatusNonPerform, CreditActionFinish}: CreditStatusDone,
}

// NextCreditStatus 查迁移表，返回目标状态；组合非法时 ok 为 false
func NextCreditStatus(current string, action CreditAction) (string, bool) {
	next, ok := creditTransitions[creditTransition{current, action}]
	return next, ok
}

// IsCreditTerminal 终态信贷不再接受任何动作
func IsCreditTerminal(status string) bool {
	return status == CreditStatusDone || status == CreditStatusReject
}

// Credit 分期信贷申请
// 本金 = 商品价格 - 首付，见 Principal()
type Credit struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string         `gorm:"type:varchar(8);uniqueIndex;not null" json:"code"`
	UserID        int64          `gorm:"index;not null" json:"user_id"`
	Status        string         `gorm:"type:varchar(20);index;not null" json:"status"`
	FinancingType string         `gorm:"type:varchar(20)" json:"financing_type"` // 融资类别
	ItemName      string         `gorm:"type:varchar(200)" json:"item_name"`
	ItemSpec      string         `gorm:"type:varchar(256)" json:"item_spec"`
	Price         int64          `gorm:"not null;default:0" json:"price"`
	DownPayment   int64          `gorm:"not null;default:0" json:"down_payment"`
	Installment   int64          `gorm:"not null;default:0" json:"installment"` // 每月应还
	Tenor         int            `gorm:"not null;default:0" json:"tenor"`       // 期数（月）
	SubmittedAt   time.Time      `gorm:"not null" json:"submitted_at"`
	VerifiedAt    *time.Time     `json:"verified_at"`
	VerificatorID *int64         `json:"verificator_id"`
	ApprovedAt    *time.Time     `json:"approved_at"`
	ApproverID    *int64         `json:"approver_id"`
	AkadDate      *time.Time     `json:"akad_date"` // 签约放款日，ongoing 起算点
	RejectedAt    *time.Time     `json:"rejected_at"`
	RejectReason  string         `gorm:"type:varchar(256)" json:"reject_reason"`
	LastPayment   *time.Time     `json:"last_payment"` // 最近一笔已核验还款日，派生字段
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Document *CreditDocument `gorm:"foreignKey:CreditCode;references:Code" json:"document,omitempty"`
}

func (Credit) TableName() string {
	return "credit"
}

// Principal 信贷本金
func (c *Credit) Principal() int64 {
	return c.Price - c.DownPayment
}

// CreditDocument 申请材料清单，与信贷一对一
type CreditDocument struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreditCode      string    `gorm:"type:varchar(8);uniqueIndex;not null" json:"credit_code"`
	IDCardFile      string    `gorm:"type:varchar(50)" json:"id_card_file"`
	FamilyCardFile  string    `gorm:"type:varchar(50)" json:"family_card_file"`
	PayslipFile     string    `gorm:"type:varchar(50)" json:"payslip_file"`
	BankStmtFile    string    `gorm:"type:varchar(50)" json:"bank_stmt_file"`
	StatementFile   string    `gorm:"type:varchar(50)" json:"statement_file"` // 承诺书
	DownPaymentFile string    `gorm:"type:varchar(50)" json:"down_payment_file"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CreditDocument) TableName() string {
	return "credit_document"
}

// CreditPayment 还款台账
// 只追加不修改；信贷的 LastPayment 从这里的已核验记录推导
type CreditPayment struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo     string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"payment_no"` // 还款流水号
	CreditCode    string     `gorm:"type:varchar(8);index;not null" json:"credit_code"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Method        string     `gorm:"type:varchar(20);not null" json:"method"`
	BankName      string     `gorm:"type:varchar(200)" json:"bank_name"`
	AccountNo     string     `gorm:"type:varchar(200)" json:"account_no"`
	AccountHolder string     `gorm:"type:varchar(200)" json:"account_holder"`
	DestAccount   string     `gorm:"type:varchar(200)" json:"dest_account"`
	RefNo         string     `gorm:"type:varchar(200)" json:"ref_no"`
	EvidenceFile  string     `gorm:"type:varchar(200)" json:"evidence_file"`
	PayDate       time.Time  `gorm:"not null;index" json:"pay_date"`
	VerifiedAt    *time.Time `json:"verified_at"`
	VerificatorID *int64     `json:"verificator_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CreditPayment) TableName() string {
	return "credit_payment"
}
