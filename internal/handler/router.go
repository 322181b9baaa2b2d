package handler

import (
	"fantasyrally/internal/config"
	"fantasyrally/internal/infrastructure/lock"
	"fantasyrally/internal/infrastructure/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, gateway payment.Gateway, newLock lock.Factory, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, gateway, newLock, cfg)
	auth := AuthMiddleware(h.authService)

	api := r.Group("/api")
	{
		api.POST("/signup", h.Signup)
		api.POST("/signin", h.Signin)
		api.GET("/me", auth, h.Me)

		api.POST("/upload", h.Upload)
		api.GET("/content", h.ListContent)

		api.POST("/create-checkout-session", auth, h.CreateCheckoutSession)
		api.POST("/create-payment-intent", auth, h.CreatePaymentIntent)
		api.GET("/deposits", auth, h.ListDeposits)
		api.GET("/transactions", auth, h.ListTransactions)
	}

	// 支付方回调，需要原始报文做签名校验，不挂认证中间件
	r.POST("/webhook", h.Webhook)

	// 上传内容直接按落盘文件名提供
	r.Static("/content", cfg.Content.Dir)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
