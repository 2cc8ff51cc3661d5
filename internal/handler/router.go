package handler

import (
	"tokokredit/internal/config"
	"tokokredit/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, docStore service.DocumentStore) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(ActorMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg, docStore)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 商品相关
		product := api.Group("/product")
		{
			product.POST("/create", h.CreateProduct)
			product.GET("/detail", h.GetProduct)
			product.GET("/list", h.ListProducts)
			product.GET("/low-stock", h.ListLowStock)
		}

		// 订单相关
		order := api.Group("/order")
		{
			order.POST("/create", h.Checkout)
			order.GET("/detail", h.GetOrder)
			order.GET("/list", h.ListOrders)
			order.POST("/pay", h.PayOrder)
			order.POST("/verify", h.VerifyOrder)
			order.POST("/complete", h.CompleteOrder)
			order.POST("/abort", h.AbortOrder)
			order.GET("/statistics", h.OrderStatistics)
			order.GET("/sales", h.MonthlySales)
		}

		// 信贷相关
		credit := api.Group("/credit")
		{
			credit.POST("/submit", h.SubmitCredit)
			credit.GET("/detail", h.GetCredit)
			credit.GET("/list", h.ListCredits)
			credit.POST("/verify", h.VerifyCredit)
			credit.POST("/approve", h.ApproveCredit)
			credit.POST("/reject", h.RejectCredit)
			credit.POST("/activate", h.ActivateCredit)
			credit.POST("/finish", h.FinishCredit)
			credit.POST("/payment", h.RecordCreditPayment)
			credit.GET("/payments", h.ListCreditPayments)
			credit.GET("/payment/statistics", h.CreditPaymentStatistics)
		}

		// 营收与分红
		revenue := api.Group("/revenue")
		{
			revenue.POST("/compute", h.ComputeRevenue)
			revenue.GET("/monthly", h.MonthlyRevenue)
			revenue.GET("/yearly", h.YearlyRevenue)
			revenue.GET("/sharing", h.SharingReport)
		}

		// 投资人相关
		investor := api.Group("/investor")
		{
			investor.POST("/create", h.CreateInvestor)
			investor.POST("/update", h.UpdateInvestor)
			investor.POST("/verify", h.VerifyInvestor)
			investor.POST("/delete", h.RemoveInvestor)
			investor.GET("/detail", h.GetInvestor)
			investor.GET("/list", h.ListInvestors)
			investor.GET("/active", h.ActiveInvestors)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
