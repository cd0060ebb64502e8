package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/config"
	"github.com/player4sir/movieapp-sub000/internal/repository"
	"github.com/player4sir/movieapp-sub000/internal/service"
	"github.com/player4sir/movieapp-sub000/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	orderService   *service.OrderService
	reviewService  *service.ReviewService
	checkinService *service.CheckinService
	accountService *service.AccountService
	statsService   *service.StatsService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		orderService:   service.NewOrderService(db, cfg),
		reviewService:  service.NewReviewService(db, rdb, cfg),
		checkinService: service.NewCheckinService(db, cfg),
		accountService: service.NewAccountService(db),
		statsService:   service.NewStatsService(db, rdb, cfg),
	}
}

// ============================================================
// 订单相关接口
// ============================================================

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	UserID          int64  `json:"user_id" binding:"required"`
	ProductType     string `json:"product_type" binding:"required"` // coin / membership
	CoinAmount      int64  `json:"coin_amount"`
	MembershipLevel int    `json:"membership_level"`
	MembershipDays  int    `json:"membership_days"`
	Price           int64  `json:"price" binding:"required,gt=0"` // 单位：分
	PaymentType     string `json:"payment_type" binding:"required"`
	ScreenshotURL   string `json:"screenshot_url"`
	Note            string `json:"note"`
}

// CreateOrder 创建付款申报订单
// POST /api/v1/order/create
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &service.CreateOrderRequest{
		UserID:          req.UserID,
		ProductType:     req.ProductType,
		CoinAmount:      req.CoinAmount,
		MembershipLevel: req.MembershipLevel,
		MembershipDays:  req.MembershipDays,
		Price:           req.Price,
		PaymentType:     req.PaymentType,
		ScreenshotURL:   req.ScreenshotURL,
		Note:            req.Note,
	})
	if err != nil {
		if errors.Is(err, service.ErrProductInvalid) || errors.Is(err, service.ErrPaymentTypeInvalid) {
			response.ParamError(c, err.Error())
			return
		}
		if errors.Is(err, repository.ErrDuplicateOrder) {
			response.BusinessError(c, response.CodeDuplicateOrder, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"order_no":    order.OrderNo,
		"order_id":    order.ID,
		"status":      order.Status,
		"remark_code": order.RemarkCode,
		"price":       order.Price,
	})
}

// GetOrder 查询订单详情
// GET /api/v1/order/detail?order_id=xxx 或 ?order_no=xxx
func (h *Handler) GetOrder(c *gin.Context) {
	if orderNo := c.Query("order_no"); orderNo != "" {
		order, err := h.orderService.GetOrderByOrderNo(c.Request.Context(), orderNo)
		if err != nil {
			h.orderError(c, err)
			return
		}
		response.Success(c, order)
		return
	}

	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "order_id 参数错误")
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.orderError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 查询订单列表
// GET /api/v1/order/list?user_id=&status=&product_type=&page=1&page_size=10
func (h *Handler) ListOrders(c *gin.Context) {
	filter := repository.OrderListFilter{
		Status:      c.Query("status"),
		ProductType: c.Query("product_type"),
	}
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			response.ParamError(c, "user_id 参数错误")
			return
		}
		filter.UserID = userID
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// MarkPaid 用户申报已转账
// POST /api/v1/order/mark-paid
func (h *Handler) MarkPaid(c *gin.Context) {
	var req struct {
		OrderID       int64  `json:"order_id" binding:"required"`
		ScreenshotURL string `json:"screenshot_url"`
		Note          string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.orderService.MarkPaid(c.Request.Context(), req.OrderID, req.ScreenshotURL, req.Note)
	if err != nil {
		h.orderError(c, err)
		return
	}

	if result.AlreadyProcessed {
		response.BusinessError(c, response.CodeAlreadyProcessed, "订单已申报或已审核")
		return
	}
	response.Success(c, result.Order)
}

// ============================================================
// 审核相关接口
// ============================================================

// ReviewOrder 管理员审核订单
// POST /api/v1/review/execute
//
// 【关键点】审核是整个系统最核心的操作，需要保证：
// 1. 恰好一次：并发审核/超时重试只会产生一次入账
// 2. 原子性：订单状态迁移、入账、流水必须同时成功或同时失败
// 3. AlreadyProcessed 是正常结果，不是失败
func (h *Handler) ReviewOrder(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.reviewService.Review(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewActionInvalid),
			errors.Is(err, service.ErrReasonRequired),
			errors.Is(err, service.ErrReasonNotAllowed):
			response.ParamError(c, err.Error())
		case errors.Is(err, repository.ErrOrderNotFound):
			response.BusinessError(c, response.CodeOrderNotFound, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, result)
}

// ============================================================
// 签到接口
// ============================================================

// Checkin 每日签到
// POST /api/v1/checkin
func (h *Handler) Checkin(c *gin.Context) {
	var req struct {
		UserID int64  `json:"user_id" binding:"required"`
		Date   string `json:"date"` // 缺省取今天
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	}

	result, err := h.checkinService.Checkin(c.Request.Context(), req.UserID, req.Date)
	if err != nil {
		if errors.Is(err, service.ErrCheckinDateInvalid) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	if result.AlreadyCheckedIn {
		response.BusinessError(c, response.CodeAlreadyCheckedIn, "今日已签到")
		return
	}
	response.Success(c, result)
}

// ============================================================
// 账户相关接口
// ============================================================

// GetBalance 查询用户余额
// GET /api/v1/account/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"user_id":      account.UserID,
		"balance":      account.Balance,
		"total_earned": account.TotalEarned,
		"total_spent":  account.TotalSpent,
	})
}

// AdjustBalance 管理员手工调账
// POST /api/v1/account/adjust
func (h *Handler) AdjustBalance(c *gin.Context) {
	var req struct {
		UserID  int64  `json:"user_id" binding:"required"`
		Amount  int64  `json:"amount" binding:"required"`
		Note    string `json:"note" binding:"required"`
		AdminID int64  `json:"admin_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	newBalance, err := h.accountService.AdjustBalance(c.Request.Context(), req.UserID, req.Amount, req.Note, req.AdminID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoteRequired), errors.Is(err, service.ErrZeroAmount):
			response.ParamError(c, err.Error())
		case errors.Is(err, repository.ErrBalanceNotEnough):
			response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"user_id":     req.UserID,
		"new_balance": newBalance,
	})
}

// ListEntries 查询账务流水
// GET /api/v1/account/entries?user_id=xxx&page=1&page_size=10
func (h *Handler) ListEntries(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	entries, total, err := h.accountService.ListEntries(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 统计接口
// ============================================================

// GetStats 运营统计
// GET /api/v1/stats?start=2024-01-01&end=2024-02-01
func (h *Handler) GetStats(c *gin.Context) {
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		response.ParamError(c, "start 参数错误")
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		response.ParamError(c, "end 参数错误")
		return
	}

	stats, err := h.statsService.GetStats(c.Request.Context(), start, end)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, stats)
}

func (h *Handler) orderError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrOrderNotFound) {
		response.BusinessError(c, response.CodeOrderNotFound, err.Error())
		return
	}
	response.ServerError(c, err.Error())
}
