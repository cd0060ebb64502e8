package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/model"
	"github.com/player4sir/movieapp-sub000/internal/repository"

	"github.com/stretchr/testify/require"
)

func TestReviewApproveCoinOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, nil, testConfig())
	ctx := context.Background()

	// 100 硬币，售价 ¥10，初始余额 0
	order := createCoinOrder(t, db, 1, 100, 1000)

	result, err := svc.Review(ctx, &ReviewRequest{
		OrderID:    order.ID,
		ReviewerID: 9,
		Action:     ReviewActionApprove,
	})
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)
	require.True(t, result.Credited)
	require.Equal(t, int64(100), result.NewBalance)
	require.Equal(t, model.OrderStatusApproved, result.Order.Status)
	require.Equal(t, int64(9), result.Order.ReviewedBy)
	require.NotNil(t, result.Order.ReviewedAt)

	var account model.LedgerAccount
	require.NoError(t, db.Where("user_id = ?", 1).First(&account).Error)
	require.Equal(t, int64(100), account.Balance)
	require.Equal(t, int64(100), account.TotalEarned)

	var entries []model.LedgerEntry
	require.NoError(t, db.Where("user_id = ?", 1).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, model.LedgerTypeRecharge, entries[0].Type)
	require.Equal(t, int64(100), entries[0].Amount)
	require.Equal(t, int64(100), entries[0].BalanceAfter)

	// 审核事件进了发件箱
	var outbox []model.OutboxMessage
	require.NoError(t, db.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	require.Equal(t, order.OrderNo, outbox[0].MessageKey)
}

func TestReviewRejectNoLedgerEffect(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, nil, testConfig())
	ctx := context.Background()

	order := createCoinOrder(t, db, 1, 100, 1000)

	result, err := svc.Review(ctx, &ReviewRequest{
		OrderID:    order.ID,
		ReviewerID: 9,
		Action:     ReviewActionReject,
		Reason:     "截图无法辨认",
	})
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)
	require.False(t, result.Credited)
	require.Equal(t, model.OrderStatusRejected, result.Order.Status)
	require.Equal(t, "截图无法辨认", result.Order.RejectReason)

	// 驳回不碰账：没有流水，账户即使已建档余额也是 0
	var count int64
	require.NoError(t, db.Model(&model.LedgerEntry{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestReviewValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, nil, testConfig())
	ctx := context.Background()

	order := createCoinOrder(t, db, 1, 100, 1000)

	// 驳回缺原因
	_, err := svc.Review(ctx, &ReviewRequest{OrderID: order.ID, ReviewerID: 9, Action: ReviewActionReject})
	require.ErrorIs(t, err, ErrReasonRequired)

	// 通过带原因
	_, err = svc.Review(ctx, &ReviewRequest{OrderID: order.ID, ReviewerID: 9, Action: ReviewActionApprove, Reason: "多余"})
	require.ErrorIs(t, err, ErrReasonNotAllowed)

	// 未知动作
	_, err = svc.Review(ctx, &ReviewRequest{OrderID: order.ID, ReviewerID: 9, Action: "cancel"})
	require.ErrorIs(t, err, ErrReviewActionInvalid)

	// 校验失败不碰持久层
	got, err := svc.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPending, got.Status)

	// 订单不存在
	_, err = svc.Review(ctx, &ReviewRequest{OrderID: 99999, ReviewerID: 9, Action: ReviewActionApprove})
	require.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestReviewTerminalAlwaysAlreadyProcessed(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, nil, testConfig())
	ctx := context.Background()

	order := createCoinOrder(t, db, 1, 100, 1000)

	_, err := svc.Review(ctx, &ReviewRequest{OrderID: order.ID, ReviewerID: 9, Action: ReviewActionApprove})
	require.NoError(t, err)

	// 终态订单无论请求什么动作都是 AlreadyProcessed，绝不产生第二次入账
	for _, req := range []*ReviewRequest{
		{OrderID: order.ID, ReviewerID: 10, Action: ReviewActionApprove},
		{OrderID: order.ID, ReviewerID: 10, Action: ReviewActionReject, Reason: "重复审核"},
	} {
		result, err := svc.Review(ctx, req)
		require.NoError(t, err)
		require.True(t, result.AlreadyProcessed)
		require.False(t, result.Credited)
	}

	var account model.LedgerAccount
	require.NoError(t, db.Where("user_id = ?", 1).First(&account).Error)
	require.Equal(t, int64(100), account.Balance)

	var entryCount int64
	require.NoError(t, db.Model(&model.LedgerEntry{}).Count(&entryCount).Error)
	require.Equal(t, int64(1), entryCount)
}

func TestReviewConcurrentExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, nil, testConfig())
	ctx := context.Background()

	order := createCoinOrder(t, db, 1, 100, 1000)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*ReviewResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Review(ctx, &ReviewRequest{
				OrderID:    order.ID,
				ReviewerID: int64(100 + i),
				Action:     ReviewActionApprove,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}

	// K 个并发审核恰好一个入账，其余 K-1 个拿到 AlreadyProcessed
	credited := 0
	alreadyProcessed := 0
	for _, r := range results {
		if r.Credited {
			credited++
		}
		if r.AlreadyProcessed {
			alreadyProcessed++
		}
	}
	require.Equal(t, 1, credited)
	require.Equal(t, workers-1, alreadyProcessed)

	// 账上只有一笔 100
	var account model.LedgerAccount
	require.NoError(t, db.Where("user_id = ?", 1).First(&account).Error)
	require.Equal(t, int64(100), account.Balance)

	var entryCount int64
	require.NoError(t, db.Model(&model.LedgerEntry{}).Count(&entryCount).Error)
	require.Equal(t, int64(1), entryCount)
}

func TestReviewApproveFromPaid(t *testing.T) {
	db := newTestDB(t)
	reviewSvc := NewReviewService(db, nil, testConfig())
	orderSvc := NewOrderService(db, testConfig())
	ctx := context.Background()

	order := createCoinOrder(t, db, 1, 50, 500)

	// 用户先申报已转账，再被审核，两种入口都允许
	markPaid, err := orderSvc.MarkPaid(ctx, order.ID, "https://img.example.com/proof.png", "已转账")
	require.NoError(t, err)
	require.False(t, markPaid.AlreadyProcessed)
	require.Equal(t, model.OrderStatusPaid, markPaid.Order.Status)

	result, err := reviewSvc.Review(ctx, &ReviewRequest{OrderID: order.ID, ReviewerID: 9, Action: ReviewActionApprove})
	require.NoError(t, err)
	require.True(t, result.Credited)
	require.Equal(t, int64(50), result.NewBalance)
}

func TestReviewApproveMembershipOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, nil, testConfig())
	ctx := context.Background()

	order := createMembershipOrder(t, db, 1, 2, 30, 2000)

	result, err := svc.Review(ctx, &ReviewRequest{OrderID: order.ID, ReviewerID: 9, Action: ReviewActionApprove})
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)
	// 会员订单不动硬币账
	require.False(t, result.Credited)
	require.Equal(t, model.OrderStatusApproved, result.Order.Status)

	var membership model.Membership
	require.NoError(t, db.Where("user_id = ?", 1).First(&membership).Error)
	require.Equal(t, 2, membership.Level)
	wantExpire := time.Now().AddDate(0, 0, 30)
	require.WithinDuration(t, wantExpire, membership.ExpireAt, time.Minute)

	// 调整审计日志落了一条
	var logs []model.MembershipAdjustLog
	require.NoError(t, db.Where("user_id = ?", 1).Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, 0, logs[0].OldLevel)
	require.Equal(t, 2, logs[0].NewLevel)
	require.Equal(t, int64(9), logs[0].AdminID)

	// 硬币账完全没动
	var entryCount int64
	require.NoError(t, db.Model(&model.LedgerEntry{}).Count(&entryCount).Error)
	require.Equal(t, int64(0), entryCount)
}

func TestReviewMembershipExtendsRemaining(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, nil, testConfig())
	ctx := context.Background()

	// 未过期会员续费：新到期时间从原到期时间顺延
	first := createMembershipOrder(t, db, 1, 1, 30, 2000)
	_, err := svc.Review(ctx, &ReviewRequest{OrderID: first.ID, ReviewerID: 9, Action: ReviewActionApprove})
	require.NoError(t, err)

	second := createMembershipOrder(t, db, 1, 1, 30, 2000)
	_, err = svc.Review(ctx, &ReviewRequest{OrderID: second.ID, ReviewerID: 9, Action: ReviewActionApprove})
	require.NoError(t, err)

	var membership model.Membership
	require.NoError(t, db.Where("user_id = ?", 1).First(&membership).Error)
	wantExpire := time.Now().AddDate(0, 0, 60)
	require.WithinDuration(t, wantExpire, membership.ExpireAt, time.Minute)
}
