package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fantasyrally/internal/config"
	"fantasyrally/internal/infrastructure/lock"
	"fantasyrally/internal/infrastructure/payment"
	"fantasyrally/internal/repository"
	"fantasyrally/internal/service"
	"fantasyrally/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService    *service.AuthService
	contentService *service.ContentService
	depositService *service.DepositService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, gateway payment.Gateway, newLock lock.Factory, cfg *config.Config) *Handler {
	return &Handler{
		authService:    service.NewAuthService(db, &cfg.JWT),
		contentService: service.NewContentService(db, &cfg.Content),
		depositService: service.NewDepositService(db, gateway, newLock, cfg),
	}
}

// ============================================================
// 认证相关接口
// ============================================================

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Signup 注册
// POST /api/signup
func (h *Handler) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "email and password required")
		return
	}

	user, token, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailRegistered) {
			response.ParamError(c, "email already registered")
			return
		}
		response.ServerError(c, "signup failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  gin.H{"id": user.ID, "email": user.Email, "sweepcoins": user.Sweepcoins},
		"token": token,
	})
}

// Signin 登录
// POST /api/signin
func (h *Handler) Signin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "email and password required")
		return
	}

	user, token, err := h.authService.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// 未知邮箱和密码错误统一返回这一条，避免账号枚举
			response.ParamError(c, "invalid credentials")
			return
		}
		response.ServerError(c, "signin failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  gin.H{"id": user.ID, "email": user.Email, "sweepcoins": user.Sweepcoins},
		"token": token,
	})
}

// Me 当前用户信息
// GET /api/me
func (h *Handler) Me(c *gin.Context) {
	userID := c.GetInt64("user_id")

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "not found")
			return
		}
		response.ServerError(c, "query failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"sweepcoins": user.Sweepcoins,
		"created_at": user.CreatedAt,
	})
}

// ============================================================
// 内容相关接口
// ============================================================

// Upload 上传内容
// POST /api/upload（multipart: file, title）
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "no file")
		return
	}
	title := c.PostForm("title")

	src, err := fileHeader.Open()
	if err != nil {
		response.ParamError(c, "no file")
		return
	}
	defer src.Close()

	item, err := h.contentService.Upload(c.Request.Context(), src,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), title)
	if err != nil {
		response.ServerError(c, "upload failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           item.ID,
		"filename":     item.StoredName,
		"originalname": item.OriginalName,
		"mimetype":     item.MimeType,
		"title":        item.Title,
	})
}

// ListContent 内容列表，按创建时间倒序
// GET /api/content
func (h *Handler) ListContent(c *gin.Context) {
	items, err := h.contentService.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, "query failed")
		return
	}
	c.JSON(http.StatusOK, items)
}

// ============================================================
// 充值相关接口
// ============================================================

type DepositRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

// CreateCheckoutSession 创建托管支付页
// POST /api/create-checkout-session
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "amount_cents required")
		return
	}

	url, err := h.depositService.CreateCheckoutSession(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			response.ParamError(c, "amount_cents required")
			return
		}
		response.ServerError(c, "failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreatePaymentIntent 创建嵌入式支付意向
// POST /api/create-payment-intent
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "amount_cents required")
		return
	}

	clientSecret, err := h.depositService.CreatePaymentIntent(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			response.ParamError(c, "amount_cents required")
			return
		}
		response.ServerError(c, "failed to create payment intent")
		return
	}

	c.JSON(http.StatusOK, gin.H{"client_secret": clientSecret})
}

// ListDeposits 当前用户的充值单列表
// GET /api/deposits?page=1&page_size=10
func (h *Handler) ListDeposits(c *gin.Context) {
	userID := c.GetInt64("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	orders, total, err := h.depositService.ListDeposits(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "query failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListTransactions 当前用户的余额流水
// GET /api/transactions?page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	transactions, total, err := h.depositService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "query failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Webhook 支付方回调入口
// POST /webhook（原始报文 + Stripe-Signature 头）
//
// 签名不合法或报文损坏回 400；入账侧数据库错误回 500 让支付方重试；
// 其余情况（包括重复投递）确认 {received:true} 终止重试
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.ParamError(c, "invalid payload")
		return
	}

	err = h.depositService.HandleNotification(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) || errors.Is(err, payment.ErrMalformedPayload) {
			response.ParamError(c, "webhook error")
			return
		}
		response.ServerError(c, "webhook processing failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
