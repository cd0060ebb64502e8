package service

import (
	"context"
	"errors"
	"log"

	"github.com/player4sir/movieapp-sub000/internal/config"
	"github.com/player4sir/movieapp-sub000/internal/model"
	"github.com/player4sir/movieapp-sub000/internal/repository"
	"github.com/player4sir/movieapp-sub000/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrProductInvalid     = errors.New("商品参数不合法")
	ErrPaymentTypeInvalid = errors.New("支付方式不合法")
)

type OrderService struct {
	orderRepo *repository.OrderRepository
	db        *gorm.DB
	cfg       *config.Config
}

func NewOrderService(db *gorm.DB, cfg *config.Config) *OrderService {
	return &OrderService{
		orderRepo: repository.NewOrderRepository(db),
		db:        db,
		cfg:       cfg,
	}
}

type CreateOrderRequest struct {
	UserID          int64
	ProductType     string // coin / membership
	CoinAmount      int64
	MembershipLevel int
	MembershipDays  int
	Price           int64 // 单位：分
	PaymentType     string
	ScreenshotURL   string
	Note            string
}

// CreateOrder 创建付款申报订单
// 生成订单号和转账附言码，落库为 pending，等待用户转账和管理员审核。
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error) {
	switch req.ProductType {
	case model.ProductTypeCoin:
		if req.CoinAmount <= 0 {
			return nil, ErrProductInvalid
		}
	case model.ProductTypeMembership:
		if req.MembershipDays <= 0 || req.MembershipLevel <= 0 {
			return nil, ErrProductInvalid
		}
	default:
		return nil, ErrProductInvalid
	}
	if req.Price <= 0 {
		return nil, ErrProductInvalid
	}

	switch req.PaymentType {
	case model.PaymentTypeBank, model.PaymentTypeAlipay, model.PaymentTypeWechat:
	default:
		return nil, ErrPaymentTypeInvalid
	}

	order := &model.Order{
		OrderNo:         idgen.GenerateOrderNo(),
		UserID:          req.UserID,
		ProductType:     req.ProductType,
		CoinAmount:      req.CoinAmount,
		MembershipLevel: req.MembershipLevel,
		MembershipDays:  req.MembershipDays,
		Price:           req.Price,
		Status:          model.OrderStatusPending,
		PaymentType:     req.PaymentType,
		ScreenshotURL:   req.ScreenshotURL,
		Note:            req.Note,
		RemarkCode:      idgen.GenerateRemarkCode(),
	}

	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		return nil, err
	}

	log.Printf("订单创建: orderNo=%s, userID=%d, productType=%s, price=%d",
		order.OrderNo, order.UserID, order.ProductType, order.Price)
	return order, nil
}

// MarkPaidResult 付款申报结果
type MarkPaidResult struct {
	Order            *model.Order `json:"order"`
	AlreadyProcessed bool         `json:"already_processed"`
}

// MarkPaid 用户声明已完成转账：pending -> paid
// 同样走 CAS：订单已经不在 pending（重复申报或已被审核）就无害跳过。
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64, screenshotURL, note string) (*MarkPaidResult, error) {
	fields := map[string]interface{}{}
	if screenshotURL != "" {
		fields["screenshot_url"] = screenshotURL
	}
	if note != "" {
		fields["note"] = note
	}

	changed, err := s.orderRepo.Transition(ctx, nil, orderID,
		[]string{model.OrderStatusPending}, model.OrderStatusPaid, fields)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &MarkPaidResult{
		Order:            order,
		AlreadyProcessed: !changed,
	}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.orderRepo.GetByID(ctx, orderID)
}

func (s *OrderService) GetOrderByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	return s.orderRepo.GetByOrderNo(ctx, orderNo)
}

func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderListFilter, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.List(ctx, filter, page, pageSize)
}
