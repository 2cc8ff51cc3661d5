package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/model"
	"tokokredit/internal/repository"
	"tokokredit/pkg/idgen"

	"gorm.io/gorm"
)

type CreditService struct {
	db             *gorm.DB
	cfg            *config.Config
	creditRepo     *repository.CreditRepository
	outboxRepo     *repository.OutboxRepository
	profileChecker ProfileChecker
	docStore       DocumentStore
	genCode        func() string
}

func NewCreditService(db *gorm.DB, cfg *config.Config, profileChecker ProfileChecker, docStore DocumentStore) *CreditService {
	return &CreditService{
		db:             db,
		cfg:            cfg,
		creditRepo:     repository.NewCreditRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
		profileChecker: profileChecker,
		docStore:       docStore,
		genCode:        idgen.GenerateCreditCode,
	}
}

// SubmitCreditRequest 信贷申请
type SubmitCreditRequest struct {
	UserID        int64
	FinancingType string
	ItemName      string
	ItemSpec      string
	Price         int64
	DownPayment   int64
	Installment   int64
	Tenor         int
	Files         map[string][]byte // 字段名 -> 文件内容
}

// 申请材料字段与 CreditDocument 列的对应关系
var documentFields = map[string]string{
	"id_card":      "id_card_file",
	"family_card":  "family_card_file",
	"payslip":      "payslip_file",
	"bank_stmt":    "bank_stmt_file",
	"statement":    "statement_file",
	"down_payment": "down_payment_file",
}

// Submit 提交信贷申请
// 前置条件：申请人档案完整（工作信息 + 推荐人）。
// 信贷主记录和材料清单一起落库；材料文件随后写外部存储，
// 写失败只记日志，已提交的信贷记录不受影响
func (s *CreditService) Submit(ctx context.Context, actor Actor, req SubmitCreditRequest) (*model.Credit, error) {
	if req.Tenor <= 0 {
		return nil, fmt.Errorf("%w: 期数必须大于 0", repository.ErrValidation)
	}
	if req.Price <= 0 || req.DownPayment < 0 || req.DownPayment >= req.Price {
		return nil, fmt.Errorf("%w: 价格或首付不合法", repository.ErrValidation)
	}
	if req.Installment <= 0 {
		return nil, fmt.Errorf("%w: 每月应还必须大于 0", repository.ErrValidation)
	}

	complete, err := s.profileChecker.IsComplete(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("档案检查失败: %w", err)
	}
	if !complete {
		return nil, repository.ErrIncompleteProfile
	}

	// 申请编号不做存在性预查，唯一索引冲突时换号重试
	for attempt := 0; attempt < s.cfg.Business.CodeMaxRetries; attempt++ {
		code := s.genCode()

		credit := &model.Credit{
			Code:          code,
			UserID:        req.UserID,
			Status:        model.CreditStatusWaiting,
			FinancingType: req.FinancingType,
			ItemName:      req.ItemName,
			ItemSpec:      req.ItemSpec,
			Price:         req.Price,
			DownPayment:   req.DownPayment,
			Installment:   req.Installment,
			Tenor:         req.Tenor,
			SubmittedAt:   time.Now(),
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.creditRepo.Create(ctx, tx, credit); err != nil {
				return fmt.Errorf("创建信贷记录失败: %w", err)
			}
			if err := s.creditRepo.CreateDocument(ctx, tx, &model.CreditDocument{
				CreditCode: code,
			}); err != nil {
				return fmt.Errorf("创建材料清单失败: %w", err)
			}
			return s.writeCreditEvent(ctx, tx, credit, "credit.submitted")
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				log.Printf("[Credit] 申请编号撞号重试: code=%s, attempt=%d", code, attempt+1)
				continue
			}
			return nil, err
		}

		s.placeDocuments(ctx, code, req.Files)

		log.Printf("[Credit] 信贷申请已提交: code=%s, userID=%d, principal=%d", code, req.UserID, credit.Principal())
		return s.creditRepo.GetByCode(ctx, code)
	}

	return nil, repository.ErrDuplicateCode
}

// placeDocuments 材料落盘并回填文件名，尽力而为
func (s *CreditService) placeDocuments(ctx context.Context, code string, files map[string][]byte) {
	if s.docStore == nil || len(files) == 0 {
		return
	}

	manifest, err := s.docStore.Place("kredit/"+code, files)
	if err != nil {
		log.Printf("[Credit] 申请材料保存失败: code=%s, err=%v", code, err)
	}

	updates := map[string]interface{}{}
	for field, name := range manifest {
		if column, ok := documentFields[field]; ok {
			updates[column] = name
		}
	}
	if len(updates) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).Model(&model.CreditDocument{}).
		Where("credit_code = ?", code).
		Updates(updates).Error; err != nil {
		log.Printf("[Credit] 回填材料清单失败: code=%s, err=%v", code, err)
	}
}

// Verify 核验申请：waiting -> verified
func (s *CreditService) Verify(ctx context.Context, actor Actor, code string) (*model.Credit, error) {
	now := time.Now()
	return s.applyAction(ctx, code, model.CreditActionVerify, map[string]interface{}{
		"verified_at":    now,
		"verificator_id": actor.ID,
	})
}

// Approve 批准申请：verified -> approved
func (s *CreditService) Approve(ctx context.Context, actor Actor, code string) (*model.Credit, error) {
	now := time.Now()
	return s.applyAction(ctx, code, model.CreditActionApprove, map[string]interface{}{
		"approved_at": now,
		"approver_id": actor.ID,
	})
}

// Reject 拒绝申请，必须给出理由；放款前的任何阶段都可拒绝
func (s *CreditService) Reject(ctx context.Context, actor Actor, code, reason string) (*model.Credit, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: 拒绝必须填写理由", repository.ErrValidation)
	}
	now := time.Now()
	return s.applyAction(ctx, code, model.CreditActionReject, map[string]interface{}{
		"rejected_at":   now,
		"reject_reason": reason,
	})
}

// Activate 签约放款：approved -> ongoing，盖签约日（akad）
func (s *CreditService) Activate(ctx context.Context, actor Actor, code string, akadDate time.Time) (*model.Credit, error) {
	if akadDate.IsZero() {
		akadDate = time.Now()
	}
	return s.applyAction(ctx, code, model.CreditActionActivate, map[string]interface{}{
		"akad_date": akadDate,
	})
}

// Finish 结清关账：ongoing/non_perform -> done
func (s *CreditService) Finish(ctx context.Context, actor Actor, code string) (*model.Credit, error) {
	return s.applyAction(ctx, code, model.CreditActionFinish, nil)
}

// CreditPaymentRequest 还款登记
type CreditPaymentRequest struct {
	Amount        int64
	Method        string
	BankName      string
	AccountNo     string
	AccountHolder string
	DestAccount   string
	RefNo         string
	PayDate       time.Time
	Evidence      []byte
}

// RecordPayment 登记一笔还款
// 台账只追加；柜面录入视为已核验，LastPayment 单调推进到最晚还款日。
// 登记本身不改信贷状态
func (s *CreditService) RecordPayment(ctx context.Context, actor Actor, code string, req CreditPaymentRequest) (*model.CreditPayment, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: 还款金额必须大于 0", repository.ErrValidation)
	}
	if req.PayDate.IsZero() {
		return nil, fmt.Errorf("%w: 还款日期不能为空", repository.ErrValidation)
	}

	credit, err := s.creditRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment := &model.CreditPayment{
		PaymentNo:     idgen.GeneratePaymentNo(),
		CreditCode:    credit.Code,
		Amount:        req.Amount,
		Method:        req.Method,
		BankName:      req.BankName,
		AccountNo:     req.AccountNo,
		AccountHolder: req.AccountHolder,
		DestAccount:   req.DestAccount,
		RefNo:         req.RefNo,
		PayDate:       req.PayDate,
		VerifiedAt:    &now,
		VerificatorID: &actor.ID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.creditRepo.AppendPayment(ctx, tx, payment); err != nil {
			return fmt.Errorf("写入还款台账失败: %w", err)
		}
		return s.creditRepo.AdvanceLastPayment(ctx, tx, code, req.PayDate)
	})
	if err != nil {
		return nil, err
	}

	if s.docStore != nil && len(req.Evidence) > 0 {
		manifest, err := s.docStore.Place("kredit/"+code+"/payment", map[string][]byte{"evidence": req.Evidence})
		if err != nil {
			log.Printf("[Credit] 还款凭证保存失败: code=%s, err=%v", code, err)
		} else if name, ok := manifest["evidence"]; ok {
			if err := s.db.WithContext(ctx).Model(&model.CreditPayment{}).
				Where("id = ?", payment.ID).
				Update("evidence_file", name).Error; err != nil {
				log.Printf("[Credit] 回写还款凭证失败: id=%d, err=%v", payment.ID, err)
			}
		}
	}

	log.Printf("[Credit] 还款已登记: code=%s, amount=%d, payDate=%s",
		code, req.Amount, req.PayDate.Format("2006-01-02"))
	return payment, nil
}

// IsDelinquent 逾期判定，纯函数
// 下一期应还日 = 签约日 + (已核验还款笔数 + 1) 个月；
// asOf 超过应还日加宽限期且期间没有新的已核验还款即判定逾期。
// 不改任何状态，反复执行结果一致
func IsDelinquent(credit *model.Credit, payments []*model.CreditPayment, asOf time.Time, graceDays int) bool {
	if credit.Status != model.CreditStatusOngoing || credit.AkadDate == nil {
		return false
	}

	settled := 0
	for _, p := range payments {
		if p.VerifiedAt != nil {
			settled++
		}
	}
	if settled >= credit.Tenor {
		// 全部期数已还，等关账
		return false
	}

	due := credit.AkadDate.AddDate(0, settled+1, 0)
	deadline := due.AddDate(0, 0, graceDays)
	return asOf.After(deadline)
}

// MarkNonPerforming 把逾期信贷标记为 NPL：ongoing -> non_perform
func (s *CreditService) MarkNonPerforming(ctx context.Context, code string) (*model.Credit, error) {
	return s.applyAction(ctx, code, model.CreditActionMarkNPL, nil)
}

// SweepDelinquent 扫描所有还款中的信贷，逾期的标记 NPL
// 幂等：已标记的信贷不在扫描范围内，重复跑不会重复标记
func (s *CreditService) SweepDelinquent(ctx context.Context, asOf time.Time) (int, error) {
	credits, err := s.creditRepo.ListByStatuses(ctx, []string{model.CreditStatusOngoing}, 0)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, credit := range credits {
		payments, err := s.creditRepo.ListPayments(ctx, credit.Code)
		if err != nil {
			log.Printf("[Credit] 读取还款台账失败: code=%s, err=%v", credit.Code, err)
			continue
		}
		if !IsDelinquent(credit, payments, asOf, s.cfg.Business.GracePeriodDays) {
			continue
		}
		if _, err := s.MarkNonPerforming(ctx, credit.Code); err != nil {
			log.Printf("[Credit] 标记 NPL 失败: code=%s, err=%v", credit.Code, err)
			continue
		}
		flagged++
		log.Printf("[Credit] 信贷已标记为 NPL: code=%s", credit.Code)
	}
	return flagged, nil
}

// applyAction 查迁移表后做守卫更新，同订单工作流
func (s *CreditService) applyAction(ctx context.Context, code string, action model.CreditAction, extra map[string]interface{}) (*model.Credit, error) {
	credit, err := s.creditRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	next, ok := model.NextCreditStatus(credit.Status, action)
	if !ok {
		return nil, repository.ErrInvalidTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.creditRepo.UpdateStatus(ctx, tx, code, credit.Status, next, extra); err != nil {
			return err
		}
		return s.writeCreditEvent(ctx, tx, credit, "credit."+string(action))
	})
	if err != nil {
		return nil, err
	}

	return s.creditRepo.GetByCode(ctx, code)
}

func (s *CreditService) writeCreditEvent(ctx context.Context, tx *gorm.DB, credit *model.Credit, event string) error {
	if s.cfg.Kafka.Topic.CreditEvent == "" {
		return nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"event":     event,
		"code":      credit.Code,
		"user_id":   credit.UserID,
		"principal": credit.Principal(),
		"at":        time.Now().Format(time.RFC3339),
	})

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: credit.Code,
		Topic:      s.cfg.Kafka.Topic.CreditEvent,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}

func (s *CreditService) GetCredit(ctx context.Context, actor Actor, code string) (*model.Credit, error) {
	credit, err := s.creditRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if actor.Level != "owner" && credit.UserID != actor.ID {
		return nil, repository.ErrCreditNotFound
	}
	return credit, nil
}

func (s *CreditService) ListCredits(ctx context.Context, actor Actor, param repository.CreditListParams) ([]*model.Credit, int64, error) {
	if actor.Level != "owner" {
		param.UserID = actor.ID
	}
	return s.creditRepo.List(ctx, param)
}

func (s *CreditService) ListPayments(ctx context.Context, param repository.PaymentListParams) ([]*model.CreditPayment, int64, error) {
	return s.creditRepo.ListAllPayments(ctx, param)
}

// PaymentStatistics 近七天还款统计（按方式）
func (s *CreditService) PaymentStatistics(ctx context.Context) ([]repository.MethodAmount, error) {
	since := time.Now().AddDate(0, 0, -7)
	return s.creditRepo.PaymentStatsSince(ctx, since)
}
