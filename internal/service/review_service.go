package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/config"
	"github.com/player4sir/movieapp-sub000/internal/infrastructure/lock"
	"github.com/player4sir/movieapp-sub000/internal/model"
	"github.com/player4sir/movieapp-sub000/internal/repository"
	"github.com/player4sir/movieapp-sub000/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

var (
	ErrReviewActionInvalid = errors.New("审核动作不合法")
	ErrReasonRequired      = errors.New("驳回必须填写原因")
	ErrReasonNotAllowed    = errors.New("通过不允许携带驳回原因")
)

// ReviewService 订单审核工作流
//
// 一次审核 = 一个一致性单元：订单状态 CAS 迁移、账务入账（或会员延期+
// 审计日志）、流水、outbox 消息，全部在同一个数据库事务里提交或回滚。
// 状态迁移先提交、入账后崩溃会造成"已通过但永远没到账"的静默资损，
// 所以这四步绝不允许拆成独立提交。
type ReviewService struct {
	db             *gorm.DB
	redisClient    *redis.Client
	cfg            *config.Config
	orderRepo      *repository.OrderRepository
	accountRepo    *repository.AccountRepository
	ledgerRepo     *repository.LedgerRepository
	membershipRepo *repository.MembershipRepository
	outboxRepo     *repository.OutboxRepository
}

func NewReviewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ReviewService {
	return &ReviewService{
		db:             db,
		redisClient:    redisClient,
		cfg:            cfg,
		orderRepo:      repository.NewOrderRepository(db),
		accountRepo:    repository.NewAccountRepository(db),
		ledgerRepo:     repository.NewLedgerRepository(db),
		membershipRepo: repository.NewMembershipRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
	}
}

type ReviewRequest struct {
	OrderID    int64  `json:"order_id" binding:"required"`
	ReviewerID int64  `json:"reviewer_id" binding:"required"`
	Action     string `json:"action" binding:"required"` // approve / reject
	Reason     string `json:"reason"`
}

// ReviewResult 审核结果
// AlreadyProcessed 是正常结果而不是错误：两个审核员抢同一笔订单，
// 或客户端超时后重试，输家/重试方就会拿到它，且保证没有任何副作用。
type ReviewResult struct {
	Order            *model.Order `json:"order"`
	AlreadyProcessed bool         `json:"already_processed"`
	Credited         bool         `json:"credited"`
	NewBalance       int64        `json:"new_balance,omitempty"`
	Message          string       `json:"message,omitempty"`
}

// Review 执行一次审核决定
//
// 并发正确性完全由 OrderRepository.Transition 的 CAS 谓词保证：
// N 个并发审核恰好一个改到行，其余 N-1 个拿到 AlreadyProcessed。
// Redis 锁只用来挡多余的数据库事务，不承担正确性。
func (s *ReviewService) Review(ctx context.Context, req *ReviewRequest) (*ReviewResult, error) {
	// 参数校验，不合法的请求碰不到持久层
	switch req.Action {
	case ReviewActionApprove:
		if req.Reason != "" {
			return nil, ErrReasonNotAllowed
		}
	case ReviewActionReject:
		if req.Reason == "" {
			return nil, ErrReasonRequired
		}
	default:
		return nil, ErrReviewActionInvalid
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	// 已是终态直接短路，省一次写事务；真正的防线仍是下面的 CAS
	if model.IsTerminalStatus(order.Status) {
		return &ReviewResult{
			Order:            order,
			AlreadyProcessed: true,
			Message:          "订单已处理，请勿重复审核",
		}, nil
	}

	if s.redisClient != nil {
		reviewLock := lock.NewReviewLock(s.redisClient,
			req.OrderID,
			fmt.Sprintf("%d-%d", req.ReviewerID, time.Now().UnixNano()))
		if err := reviewLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer reviewLock.Unlock(ctx)
	}

	// 账户惰性建档放在事务外，并发首建由 ON CONFLICT 收敛
	var balanceBefore int64
	if req.Action == ReviewActionApprove && order.ProductType == model.ProductTypeCoin {
		account, err := s.accountRepo.GetOrCreate(ctx, order.UserID)
		if err != nil {
			return nil, fmt.Errorf("获取账户失败: %w", err)
		}
		balanceBefore = account.Balance
	}

	result := &ReviewResult{}
	now := time.Now()
	toStatus := model.OrderStatusApproved
	fields := map[string]interface{}{
		"reviewed_by": req.ReviewerID,
		"reviewed_at": &now,
	}
	if req.Action == ReviewActionReject {
		toStatus = model.OrderStatusRejected
		fields["reject_reason"] = req.Reason
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		changed, err := s.orderRepo.Transition(ctx, tx, req.OrderID, model.ReviewableStatuses, toStatus, fields)
		if err != nil {
			return fmt.Errorf("更新订单状态失败: %w", err)
		}

		// CAS 没改到行 = 别人已经处理过，这里什么都不做地提交空事务
		if !changed {
			result.AlreadyProcessed = true
			return nil
		}

		if req.Action == ReviewActionApprove {
			switch order.ProductType {
			case model.ProductTypeCoin:
				if err := s.creditCoins(ctx, tx, order, req.ReviewerID, balanceBefore, result); err != nil {
					return err
				}
			case model.ProductTypeMembership:
				if err := s.grantMembership(ctx, tx, order, req.ReviewerID); err != nil {
					return err
				}
			default:
				return fmt.Errorf("未知商品类型: %s", order.ProductType)
			}
		}
		// 驳回不产生任何账务影响：pending/paid 阶段从未有过预入账，
		// 驳回只是让订单止步于终态

		msgPayload := map[string]interface{}{
			"order_no":     order.OrderNo,
			"user_id":      order.UserID,
			"product_type": order.ProductType,
			"action":       req.Action,
			"reviewer_id":  req.ReviewerID,
			"reviewed_at":  now.Format(time.RFC3339),
		}
		if req.Action == ReviewActionReject {
			msgPayload["reason"] = req.Reason
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: order.OrderNo,
			Topic:      s.cfg.Kafka.Topic.OrderReviewed,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if result.AlreadyProcessed {
		order, err = s.orderRepo.GetByID(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		result.Order = order
		result.Message = "订单已处理，请勿重复审核"
		return result, nil
	}

	order, err = s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	result.Order = order

	log.Printf("审核完成: orderNo=%s, action=%s, reviewerID=%d", order.OrderNo, req.Action, req.ReviewerID)
	return result, nil
}

// creditCoins 硬币订单入账：原子加余额 + 追加流水
func (s *ReviewService) creditCoins(ctx context.Context, tx *gorm.DB, order *model.Order, reviewerID int64, balanceBefore int64, result *ReviewResult) error {
	newBalance, err := s.accountRepo.ApplyDelta(ctx, tx, order.UserID, order.CoinAmount)
	if err != nil {
		return fmt.Errorf("入账失败: %w", err)
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"order_no":       order.OrderNo,
		"reviewer_id":    reviewerID,
		"balance_before": balanceBefore,
	})
	entry := &model.LedgerEntry{
		EntryNo:      idgen.GenerateEntryNo(),
		UserID:       order.UserID,
		Type:         model.LedgerTypeRecharge,
		Amount:       order.CoinAmount,
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("充值到账-%s", order.OrderNo),
		Metadata:     string(metadata),
	}
	if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("记录流水失败: %w", err)
	}

	result.Credited = true
	result.NewBalance = newBalance
	return nil
}

// grantMembership 会员订单到账：延期/升级 + 审计日志，不动硬币账
// 到期时间从 max(当前时间, 原到期时间) 起算，过期会员重新计时，
// 未过期会员在剩余时长上顺延。
func (s *ReviewService) grantMembership(ctx context.Context, tx *gorm.DB, order *model.Order, reviewerID int64) error {
	membership, err := s.membershipRepo.GetOrCreate(ctx, tx, order.UserID)
	if err != nil {
		return fmt.Errorf("获取会员记录失败: %w", err)
	}

	base := time.Now()
	if membership.ExpireAt.After(base) {
		base = membership.ExpireAt
	}
	newExpireAt := base.AddDate(0, 0, order.MembershipDays)
	newLevel := order.MembershipLevel
	if membership.Level > newLevel {
		newLevel = membership.Level
	}

	if err := s.membershipRepo.Update(ctx, tx, order.UserID, newLevel, newExpireAt); err != nil {
		return fmt.Errorf("更新会员状态失败: %w", err)
	}

	adjustLog := &model.MembershipAdjustLog{
		UserID:      order.UserID,
		OldLevel:    membership.Level,
		NewLevel:    newLevel,
		OldExpireAt: membership.ExpireAt,
		NewExpireAt: newExpireAt,
		AdminID:     reviewerID,
		Reason:      fmt.Sprintf("会员订单审核通过-%s", order.OrderNo),
	}
	if err := s.membershipRepo.CreateAdjustLog(ctx, tx, adjustLog); err != nil {
		return fmt.Errorf("记录会员调整日志失败: %w", err)
	}

	return nil
}
