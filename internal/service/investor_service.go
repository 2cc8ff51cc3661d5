package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tokokredit/internal/model"
	"tokokredit/internal/repository"
	"tokokredit/pkg/idgen"

	"gorm.io/gorm"
)

type InvestorService struct {
	investorRepo *repository.InvestorRepository
}

func NewInvestorService(db *gorm.DB) *InvestorService {
	return &InvestorService{
		investorRepo: repository.NewInvestorRepository(db),
	}
}

// InvestorRequest 登记/修改投资人
type InvestorRequest struct {
	UserID     int64     `json:"user_id"`
	Principal  int64     `json:"principal"`
	TermMonths int       `json:"term_months"`
	BankName   string    `json:"bank_name"`
	AccountNo  string    `json:"account_no"`
	StartDate  time.Time `json:"start_date"`
	Verified   bool      `json:"verified"`
}

// Create 登记投资人，一个用户只能有一条在册记录
func (s *InvestorService) Create(ctx context.Context, req *InvestorRequest) (*model.Investor, error) {
	if req.Principal <= 0 {
		return nil, fmt.Errorf("%w: 出资额必须大于 0", repository.ErrValidation)
	}
	if req.TermMonths <= 0 {
		return nil, fmt.Errorf("%w: 投资期限必须大于 0", repository.ErrValidation)
	}

	if _, err := s.investorRepo.GetByUserID(ctx, req.UserID); err == nil {
		return nil, repository.ErrInvestorExists
	} else if !errors.Is(err, repository.ErrInvestorNotFound) {
		return nil, err
	}

	start := req.StartDate
	if start.IsZero() {
		start = time.Now().UTC()
	}

	investor := &model.Investor{
		UserID:       req.UserID,
		InvestmentNo: idgen.GenerateInvestmentNo(),
		Principal:    req.Principal,
		TermMonths:   req.TermMonths,
		BankName:     req.BankName,
		AccountNo:    req.AccountNo,
		StartDate:    start,
		ExpiryDate:   start.AddDate(0, req.TermMonths, 0),
	}
	if req.Verified {
		now := time.Now()
		investor.VerifiedAt = &now
	}

	if err := s.investorRepo.Create(ctx, investor); err != nil {
		return nil, fmt.Errorf("登记投资人失败: %w", err)
	}
	return investor, nil
}

// Update 修改在册投资人，已到期的不允许再改
func (s *InvestorService) Update(ctx context.Context, req *InvestorRequest) (*model.Investor, error) {
	investor, err := s.investorRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if investor.ExpiryDate.Before(time.Now()) {
		return nil, repository.ErrInvestorExpired
	}

	if req.Principal > 0 {
		investor.Principal = req.Principal
	}
	if req.BankName != "" {
		investor.BankName = req.BankName
	}
	if req.AccountNo != "" {
		investor.AccountNo = req.AccountNo
	}
	if req.TermMonths > 0 && req.TermMonths != investor.TermMonths {
		investor.TermMonths = req.TermMonths
		investor.ExpiryDate = investor.StartDate.AddDate(0, req.TermMonths, 0)
	}

	if err := s.investorRepo.Update(ctx, investor); err != nil {
		return nil, err
	}
	return investor, nil
}

// Verify 核验投资人，核验后才参与分红
func (s *InvestorService) Verify(ctx context.Context, userID int64) (*model.Investor, error) {
	investor, err := s.investorRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if investor.VerifiedAt == nil {
		now := time.Now()
		investor.VerifiedAt = &now
		if err := s.investorRepo.Update(ctx, investor); err != nil {
			return nil, err
		}
	}
	return investor, nil
}

// Remove 软删投资人，历史报表仍可见
func (s *InvestorService) Remove(ctx context.Context, userID int64) error {
	return s.investorRepo.SoftDelete(ctx, userID)
}

func (s *InvestorService) Get(ctx context.Context, userID int64) (*model.Investor, error) {
	return s.investorRepo.GetByUserID(ctx, userID)
}

func (s *InvestorService) List(ctx context.Context, page, pageSize int) ([]*model.Investor, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.investorRepo.List(ctx, page, pageSize)
}
