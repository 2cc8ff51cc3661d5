package handler

import (
	"strconv"
	"time"

	"tokokredit/internal/repository"
	"tokokredit/internal/service"
	"tokokredit/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 信贷相关接口
// ============================================================

// 申请时可附带的材料文件表单字段
var creditFileFields = []string{
	"id_card", "family_card", "payslip", "bank_stmt", "statement", "down_payment",
}

// SubmitCredit 提交信贷申请
// POST /api/v1/credit/submit (multipart: 数字字段 + 材料文件)
func (h *Handler) SubmitCredit(c *gin.Context) {
	actor := actorFrom(c)

	price, _ := strconv.ParseInt(c.PostForm("price"), 10, 64)
	downPayment, _ := strconv.ParseInt(c.PostForm("down_payment"), 10, 64)
	installment, _ := strconv.ParseInt(c.PostForm("installment"), 10, 64)
	tenor, _ := strconv.Atoi(c.PostForm("tenor"))

	files := make(map[string][]byte)
	for _, field := range creditFileFields {
		data, err := formFileBytes(c, field)
		if err != nil {
			response.ParamError(c, "材料文件读取失败: "+err.Error())
			return
		}
		if data != nil {
			files[field] = data
		}
	}

	credit, err := h.creditService.Submit(c.Request.Context(), actor, service.SubmitCreditRequest{
		UserID:        actor.ID,
		FinancingType: c.PostForm("financing_type"),
		ItemName:      c.PostForm("item_name"),
		ItemSpec:      c.PostForm("item_spec"),
		Price:         price,
		DownPayment:   downPayment,
		Installment:   installment,
		Tenor:         tenor,
		Files:         files,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "申请已提交", gin.H{
		"code":      credit.Code,
		"status":    credit.Status,
		"principal": credit.Principal(),
	})
}

// GetCredit 信贷详情（含材料清单）
// GET /api/v1/credit/detail?code=xxx
func (h *Handler) GetCredit(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.ParamError(c, "code 参数不能为空")
		return
	}

	credit, err := h.creditService.GetCredit(c.Request.Context(), actorFrom(c), code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", credit)
}

// ListCredits 信贷列表
// GET /api/v1/credit/list?status=&code=&financing_type=&page=1&page_size=10
func (h *Handler) ListCredits(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	credits, total, err := h.creditService.ListCredits(c.Request.Context(), actorFrom(c), repository.CreditListParams{
		Status:        c.Query("status"),
		Code:          c.Query("code"),
		FinancingType: c.Query("financing_type"),
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", gin.H{
		"list":      credits,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// VerifyCredit 核验申请：waiting -> verified
// POST /api/v1/credit/verify
func (h *Handler) VerifyCredit(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	credit, err := h.creditService.Verify(c.Request.Context(), actorFrom(c), req.Code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "申请已核验", credit)
}

// ApproveCredit 审批通过：verified -> approved
// POST /api/v1/credit/approve
func (h *Handler) ApproveCredit(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	credit, err := h.creditService.Approve(c.Request.Context(), actorFrom(c), req.Code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "申请已批准", credit)
}

// RejectCredit 驳回申请，必须给理由
// POST /api/v1/credit/reject
func (h *Handler) RejectCredit(c *gin.Context) {
	var req struct {
		Code   string `json:"code" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	credit, err := h.creditService.Reject(c.Request.Context(), actorFrom(c), req.Code, req.Reason)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "申请已驳回", credit)
}

// ActivateCredit 放款生效：approved -> ongoing，记签约日
// POST /api/v1/credit/activate
func (h *Handler) ActivateCredit(c *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		AkadDate string `json:"akad_date"` // 2006-01-02，缺省取当天
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	var akadDate time.Time
	if req.AkadDate != "" {
		t, err := time.Parse("2006-01-02", req.AkadDate)
		if err != nil {
			response.ParamError(c, "akad_date 格式错误，应为 2006-01-02")
			return
		}
		akadDate = t
	}

	credit, err := h.creditService.Activate(c.Request.Context(), actorFrom(c), req.Code, akadDate)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "信贷已生效", credit)
}

// FinishCredit 结清：ongoing|non_perform -> done
// POST /api/v1/credit/finish
func (h *Handler) FinishCredit(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	credit, err := h.creditService.Finish(c.Request.Context(), actorFrom(c), req.Code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "信贷已结清", credit)
}

// RecordCreditPayment 登记一笔还款
// POST /api/v1/credit/payment (multipart: code, amount, method, pay_date 等 + evidence)
func (h *Handler) RecordCreditPayment(c *gin.Context) {
	code := c.PostForm("code")
	if code == "" {
		response.ParamError(c, "code 参数不能为空")
		return
	}

	amount, _ := strconv.ParseInt(c.PostForm("amount"), 10, 64)

	payDate := time.Now()
	if v := c.PostForm("pay_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.ParamError(c, "pay_date 格式错误，应为 2006-01-02")
			return
		}
		payDate = t
	}

	evidence, err := formFileBytes(c, "evidence")
	if err != nil {
		response.ParamError(c, "还款凭证读取失败: "+err.Error())
		return
	}

	payment, err := h.creditService.RecordPayment(c.Request.Context(), actorFrom(c), code, service.CreditPaymentRequest{
		Amount:        amount,
		Method:        c.PostForm("method"),
		BankName:      c.PostForm("bank_name"),
		AccountNo:     c.PostForm("account_no"),
		AccountHolder: c.PostForm("account_holder"),
		DestAccount:   c.PostForm("dest_account"),
		RefNo:         c.PostForm("ref_no"),
		PayDate:       payDate,
		Evidence:      evidence,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "还款已登记", payment)
}

// ListCreditPayments 还款台账
// GET /api/v1/credit/payments?code=&method=&page=1&page_size=10
func (h *Handler) ListCreditPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	payments, total, err := h.creditService.ListPayments(c.Request.Context(), repository.PaymentListParams{
		Code:     c.Query("code"),
		Method:   c.Query("method"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", gin.H{
		"list":      payments,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CreditPaymentStatistics 近七日按方式统计的还款额
// GET /api/v1/credit/payment/statistics
func (h *Handler) CreditPaymentStatistics(c *gin.Context) {
	stats, err := h.creditService.PaymentStatistics(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", stats)
}
