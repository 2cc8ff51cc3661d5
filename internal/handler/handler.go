package handler

import (
	"errors"
	"io"
	"strconv"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/model"
	"tokokredit/internal/repository"
	"tokokredit/internal/service"
	"tokokredit/pkg/idgen"
	"tokokredit/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	orderService    *service.OrderService
	creditService   *service.CreditService
	revenueService  *service.RevenueService
	sharingService  *service.SharingService
	investorService *service.InvestorService
	productRepo     *repository.ProductRepository
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, docStore service.DocumentStore) *Handler {
	return &Handler{
		orderService:    service.NewOrderService(db, rdb, cfg, docStore),
		creditService:   service.NewCreditService(db, cfg, repository.NewProfileRepository(db), docStore),
		revenueService:  service.NewRevenueService(db, cfg),
		sharingService:  service.NewSharingService(db, cfg),
		investorService: service.NewInvestorService(db),
		productRepo:     repository.NewProductRepository(db),
	}
}

// renderError 把底层错误翻译成业务错误码
func (h *Handler) renderError(c *gin.Context, err error) {
	var stockErr *repository.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		response.BusinessError(c, response.CodeInsufficientStock, err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		response.BusinessError(c, response.CodeOrderNotFound, err.Error())
	case errors.Is(err, repository.ErrCreditNotFound):
		response.BusinessError(c, response.CodeCreditNotFound, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		response.BusinessError(c, response.CodeProductNotFound, err.Error())
	case errors.Is(err, repository.ErrInvestorNotFound):
		response.BusinessError(c, response.CodeInvestorNotFound, err.Error())
	case errors.Is(err, repository.ErrInvalidTransition):
		response.BusinessError(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, repository.ErrEmptyCart):
		response.BusinessError(c, response.CodeEmptyCart, err.Error())
	case errors.Is(err, repository.ErrIncompleteProfile):
		response.BusinessError(c, response.CodeIncompleteProfile, err.Error())
	case errors.Is(err, repository.ErrDuplicateCode):
		response.BusinessError(c, response.CodeDuplicateCode, err.Error())
	case errors.Is(err, repository.ErrValidation),
		errors.Is(err, repository.ErrInvestorExists),
		errors.Is(err, repository.ErrInvestorExpired):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// formFileBytes 读取可选的表单文件，缺省返回 nil
func formFileBytes(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ============================================================
// 商品相关接口
// ============================================================

// CreateProductRequest 商品入库请求
type CreateProductRequest struct {
	Name         string `json:"name" binding:"required"`
	Price        int64  `json:"price" binding:"required,gt=0"`
	Stock        int    `json:"stock" binding:"gte=0"`
	ReorderLevel int    `json:"reorder_level"`
}

// CreateProduct 商品入库
// POST /api/v1/product/create
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	product := &model.Product{
		Code:         idgen.ShortCode(),
		Name:         req.Name,
		Price:        req.Price,
		Stock:        req.Stock,
		ReorderLevel: req.ReorderLevel,
	}
	if err := h.productRepo.Create(c.Request.Context(), product); err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "商品已入库", product)
}

// GetProduct 商品详情
// GET /api/v1/product/detail?id=xxx
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	product, err := h.productRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", product)
}

// ListProducts 商品列表
// GET /api/v1/product/list?page=1&page_size=10
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	products, total, err := h.productRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", gin.H{
		"list":      products,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListLowStock 库存低于补货线的商品
// GET /api/v1/product/low-stock?limit=20
func (h *Handler) ListLowStock(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	products, err := h.productRepo.ListLowStock(c.Request.Context(), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", products)
}

// ============================================================
// 订单相关接口
// ============================================================

// CheckoutRequest 下单请求：从购物车结算
type CheckoutRequest struct {
	CartIDs []int64 `json:"cart_ids" binding:"required"`
}

// Checkout 购物车结算下单
// POST /api/v1/order/create
//
// 【关键点】下单是零售链路的核心操作，需要保证：
// 1. 原子性：库存扣减、订单写入、购物车清理同时成功或同时失败
// 2. 库存不超卖：条件更新保证扣减后不为负
// 3. 并发安全：分布式锁防止同一买家重复提交
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.orderService.Checkout(c.Request.Context(), actorFrom(c), req.CartIDs)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "下单成功", gin.H{
		"code":        order.Code,
		"status":      order.Status,
		"total_item":  order.TotalItem,
		"grand_total": order.GrandTotal,
	})
}

// GetOrder 订单详情
// GET /api/v1/order/detail?code=xxx
func (h *Handler) GetOrder(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.ParamError(c, "code 参数不能为空")
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), actorFrom(c), code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", order)
}

// ListOrders 订单列表
// GET /api/v1/order/list?status=&payment_method=&code=&date_start=&date_end=&page=1&page_size=10
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	param := repository.OrderListParams{
		Status:        c.Query("status"),
		PaymentMethod: c.Query("payment_method"),
		Code:          c.Query("code"),
		Page:          page,
		PageSize:      pageSize,
	}
	if v := c.Query("date_start"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			param.DateStart = &t
		}
	}
	if v := c.Query("date_end"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			param.DateEnd = &t
		}
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), actorFrom(c), param)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// PayOrder 登记订单支付
// POST /api/v1/order/pay (multipart: code, method, bank_name, ref_no, evidence)
func (h *Handler) PayOrder(c *gin.Context) {
	code := c.PostForm("code")
	if code == "" {
		response.ParamError(c, "code 参数不能为空")
		return
	}

	evidence, err := formFileBytes(c, "evidence")
	if err != nil {
		response.ParamError(c, "支付凭证读取失败: "+err.Error())
		return
	}

	order, err := h.orderService.RecordPayment(c.Request.Context(), actorFrom(c), code, service.PaymentRequest{
		Method:   c.PostForm("method"),
		BankName: c.PostForm("bank_name"),
		RefNo:    c.PostForm("ref_no"),
		Evidence: evidence,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "支付已登记", order)
}

// VerifyOrder 核验支付：paid -> proceed
// POST /api/v1/order/verify
func (h *Handler) VerifyOrder(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.orderService.Verify(c.Request.Context(), actorFrom(c), req.Code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "支付已核验", order)
}

// CompleteOrder 完成订单：proceed -> success
// POST /api/v1/order/complete
func (h *Handler) CompleteOrder(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.orderService.Complete(c.Request.Context(), actorFrom(c), req.Code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "订单已完成", order)
}

// AbortOrder 取消订单并回补库存
// POST /api/v1/order/abort
func (h *Handler) AbortOrder(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.orderService.Abort(c.Request.Context(), actorFrom(c), req.Code)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "订单已取消", order)
}

// OrderStatistics 近七日订单状态统计
// GET /api/v1/order/statistics
func (h *Handler) OrderStatistics(c *gin.Context) {
	stats, err := h.orderService.Statistics(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", stats)
}

// MonthlySales 按商品汇总的月度销量报表
// GET /api/v1/order/sales?year=2026&month=8
func (h *Handler) MonthlySales(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	rows, err := h.orderService.MonthlySales(c.Request.Context(), year, month)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, "ok", rows)
}
