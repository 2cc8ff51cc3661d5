package repository

import (
	"context"
	"errors"
	"time"

	"tokokredit/internal/model"

	"gorm.io/gorm"
)

type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) Create(ctx context.Context, tx *gorm.DB, credit *model.Credit) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(credit).Error
}

func (r *CreditRepository) CreateDocument(ctx context.Context, tx *gorm.DB, doc *model.CreditDocument) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(doc).Error
}

func (r *CreditRepository) GetByCode(ctx context.Context, code string) (*model.Credit, error) {
	var credit model.Credit
	err := r.db.WithContext(ctx).
		Preload("Document").
		Where("code = ?", code).
		First(&credit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	return &credit, nil
}

// UpdateStatus 带前置状态守卫的状态更新，守卫同订单仓储
func (r *CreditRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, code, fromStatus, toStatus string, extra map[string]interface{}) error {
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
		Model(&model.Credit{}).
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

// CreditListParams 列表过滤条件
type CreditListParams struct {
	UserID        int64
	Status        string
	Code          string
	FinancingType string
	Page          int
	PageSize      int
}

func (r *CreditRepository) List(ctx context.Context, param CreditListParams) ([]*model.Credit, int64, error) {
	var credits []*model.Credit
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Credit{})

	if param.UserID > 0 {
		query = query.Where("user_id = ?", param.UserID)
	}
	if param.Status != "" {
		query = query.Where("status = ?", param.Status)
	}
	if param.Code != "" {
		query = query.Where("code = ?", param.Code)
	}
	if param.FinancingType != "" {
		query = query.Where("financing_type = ?", param.FinancingType)
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
		Preload("Document").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&credits).Error

	return credits, total, err
}

// ListByStatuses 按状态取信贷，逾期扫描和营收统计用
func (r *CreditRepository) ListByStatuses(ctx context.Context, statuses []string, limit int) ([]*model.Credit, error) {
	var credits []*model.Credit
	query := r.db.WithContext(ctx).Where("status IN ?", statuses)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&credits).Error
	return credits, err
}

// AppendPayment 追加一笔还款台账
func (r *CreditRepository) AppendPayment(ctx context.Context, tx *gorm.DB, payment *model.CreditPayment) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(payment).Error
}

// ListPayments 某笔信贷的还款台账，按还款日期倒序
func (r *CreditRepository) ListPayments(ctx context.Context, code string) ([]*model.CreditPayment, error) {
	var payments []*model.CreditPayment
	err := r.db.WithContext(ctx).
		Where("credit_code = ?", code).
		Order("pay_date DESC").
		Find(&payments).Error
	return payments, err
}

// PaymentListParams 还款记录列表过滤
type PaymentListParams struct {
	Code     string
	Method   string
	Page     int
	PageSize int
}

func (r *CreditRepository) ListAllPayments(ctx context.Context, param PaymentListParams) ([]*model.CreditPayment, int64, error) {
	var payments []*model.CreditPayment
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CreditPayment{})
	if param.Code != "" {
		query = query.Where("credit_code = ?", param.Code)
	}
	if param.Method != "" {
		query = query.Where("method = ?", param.Method)
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
		Order("pay_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error

	return payments, total, err
}

// AdvanceLastPayment 单调推进最近还款日
// 只有新日期比现值更晚才写，保证 LastPayment 永不回退
func (r *CreditRepository) AdvanceLastPayment(ctx context.Context, tx *gorm.DB, code string, payDate time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Credit{}).
		Where("code = ? AND (last_payment IS NULL OR last_payment < ?)", code, payDate).
		Update("last_payment", payDate).Error
}

// MethodAmount 还款方式金额统计行
type MethodAmount struct {
	Method string `json:"method"`
	Total  int64  `json:"total"`
}

// PaymentStatsSince 按还款方式统计某时间之后的已核验还款额
func (r *CreditRepository) PaymentStatsSince(ctx context.Context, since time.Time) ([]MethodAmount, error) {
	var rows []MethodAmount
	err := r.db.WithContext(ctx).
		Model(&model.CreditPayment{}).
		Select("method, SUM(amount) AS total").
		Where("created_at >= ?", since).
		Where("verified_at IS NOT NULL").
		Group("method").
		Scan(&rows).Error
	return rows, err
}
