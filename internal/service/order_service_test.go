package service

import (
	"context"
	"testing"

	"github.com/player4sir/movieapp-sub000/internal/model"
	"github.com/player4sir/movieapp-sub000/internal/repository"

	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		UserID:      1,
		ProductType: model.ProductTypeCoin,
		CoinAmount:  100,
		Price:       1000,
		PaymentType: model.PaymentTypeWechat,
		Note:        "尽快审核",
	})
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPending, order.Status)
	require.NotEmpty(t, order.OrderNo)
	require.Len(t, order.RemarkCode, 6) // 转账附言码随单生成

	got, err := svc.GetOrderByOrderNo(ctx, order.OrderNo)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
}

func TestCreateOrderValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	cases := []*CreateOrderRequest{
		// 硬币订单缺数量
		{UserID: 1, ProductType: model.ProductTypeCoin, Price: 1000, PaymentType: model.PaymentTypeBank},
		// 会员订单缺天数
		{UserID: 1, ProductType: model.ProductTypeMembership, MembershipLevel: 1, Price: 1000, PaymentType: model.PaymentTypeBank},
		// 未知商品类型
		{UserID: 1, ProductType: "gift", Price: 1000, PaymentType: model.PaymentTypeBank},
		// 价格为 0
		{UserID: 1, ProductType: model.ProductTypeCoin, CoinAmount: 100, PaymentType: model.PaymentTypeBank},
	}
	for _, req := range cases {
		_, err := svc.CreateOrder(ctx, req)
		require.ErrorIs(t, err, ErrProductInvalid)
	}

	_, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		UserID: 1, ProductType: model.ProductTypeCoin, CoinAmount: 100, Price: 1000, PaymentType: "cash",
	})
	require.ErrorIs(t, err, ErrPaymentTypeInvalid)
}

func TestMarkPaidIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	order := createCoinOrder(t, db, 1, 100, 1000)

	first, err := svc.MarkPaid(ctx, order.ID, "https://img.example.com/a.png", "")
	require.NoError(t, err)
	require.False(t, first.AlreadyProcessed)
	require.Equal(t, model.OrderStatusPaid, first.Order.Status)

	// 重复申报：CAS 不命中，无害跳过
	second, err := svc.MarkPaid(ctx, order.ID, "", "")
	require.NoError(t, err)
	require.True(t, second.AlreadyProcessed)
	require.Equal(t, model.OrderStatusPaid, second.Order.Status)
}

func TestListOrdersFilter(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	createCoinOrder(t, db, 1, 100, 1000)
	createCoinOrder(t, db, 1, 200, 2000)
	createMembershipOrder(t, db, 2, 1, 30, 3000)

	orders, total, err := svc.ListOrders(ctx, repository.OrderListFilter{ProductType: model.ProductTypeCoin}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, orders, 2)
}
