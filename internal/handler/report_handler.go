package handler

import (
	"strconv"
	"time"

	"tokokredit/internal/service"
	"tokokredit/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 营收与分红接口
// ============================================================

// ComputeRevenue 重算某月营收快照
// POST /api/v1/revenue/compute
func (h *Handler) ComputeRevenue(c *gin.Context) {
	var req struct {
		Year  int `json:"year" binding:"required"`
		Month int `json:"month" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	snapshot, err := h.revenueService.ComputeMonthly(c.Request.Context(), req.Year, req.Month)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "快照已更新", snapshot)
}

// MonthlyRevenue 某年的月度营收快照
// GET /api/v1/revenue/monthly?year=2026
func (h *Handler) MonthlyRevenue(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		year = time.Now().Year()
	}

	snapshots, err := h.revenueService.MonthlySnapshots(c.Request.Context(), year)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", snapshots)
}

// YearlyRevenue 近几年的年度营收汇总
// GET /api/v1/revenue/yearly?years_back=5
func (h *Handler) YearlyRevenue(c *gin.Context) {
	yearsBack, _ := strconv.Atoi(c.Query("years_back"))

	rows, err := h.revenueService.RollupYearly(c.Request.Context(), yearsBack)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", rows)
}

// SharingReport 年度分红方案
// GET /api/v1/revenue/sharing?year=2026
func (h *Handler) SharingReport(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))

	report, err := h.sharingService.Allocate(c.Request.Context(), year)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", report)
}

// ============================================================
// 投资人相关接口
// ============================================================

// InvestorRequest 投资人登记/修改请求
type InvestorRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	Principal  int64  `json:"principal"`
	TermMonths int    `json:"term_months"`
	BankName   string `json:"bank_name"`
	AccountNo  string `json:"account_no"`
	StartDate  string `json:"start_date"` // 2006-01-02，缺省取当天
	Verified   bool   `json:"verified"`
}

func (r *InvestorRequest) toService() (*service.InvestorRequest, error) {
	req := &service.InvestorRequest{
		UserID:     r.UserID,
		Principal:  r.Principal,
		TermMonths: r.TermMonths,
		BankName:   r.BankName,
		AccountNo:  r.AccountNo,
		Verified:   r.Verified,
	}
	if r.StartDate != "" {
		t, err := time.Parse("2006-01-02", r.StartDate)
		if err != nil {
			return nil, err
		}
		req.StartDate = t
	}
	return req, nil
}

// CreateInvestor 登记投资人
// POST /api/v1/investor/create
func (h *Handler) CreateInvestor(c *gin.Context) {
	var req InvestorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	serviceReq, err := req.toService()
	if err != nil {
		response.ParamError(c, "start_date 格式错误，应为 2006-01-02")
		return
	}

	investor, err := h.investorService.Create(c.Request.Context(), serviceReq)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "投资人已登记", investor)
}

// UpdateInvestor 修改投资人
// POST /api/v1/investor/update
func (h *Handler) UpdateInvestor(c *gin.Context) {
	var req InvestorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	serviceReq, err := req.toService()
	if err != nil {
		response.ParamError(c, "start_date 格式错误，应为 2006-01-02")
		return
	}

	investor, err := h.investorService.Update(c.Request.Context(), serviceReq)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "投资人已更新", investor)
}

// VerifyInvestor 核验投资人
// POST /api/v1/investor/verify
func (h *Handler) VerifyInvestor(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	investor, err := h.investorService.Verify(c.Request.Context(), req.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "投资人已核验", investor)
}

// RemoveInvestor 注销投资人（软删）
// POST /api/v1/investor/delete
func (h *Handler) RemoveInvestor(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.investorService.Remove(c.Request.Context(), req.UserID); err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "投资人已注销", nil)
}

// GetInvestor 投资人详情
// GET /api/v1/investor/detail?user_id=xxx
func (h *Handler) GetInvestor(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	investor, err := h.investorService.Get(c.Request.Context(), userID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", investor)
}

// ListInvestors 投资人名册
// GET /api/v1/investor/list?page=1&page_size=10
func (h *Handler) ListInvestors(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	investors, total, err := h.investorService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", gin.H{
		"list":      investors,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ActiveInvestors 某年参与分红的投资人
// GET /api/v1/investor/active?year=2026
func (h *Handler) ActiveInvestors(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))

	investors, err := h.sharingService.ActiveInvestors(c.Request.Context(), year)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", investors)
}
