package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/player4sir/movieapp-sub000/internal/model"
	"github.com/player4sir/movieapp-sub000/internal/repository"
	"github.com/player4sir/movieapp-sub000/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrNoteRequired = errors.New("手工调账必须填写备注")
	ErrZeroAmount   = errors.New("调整金额不能为0")

	// ErrInvariantViolation 账实不符：流水合计对不上账户余额。
	// 这类问题必须响亮地暴露出来，绝不允许悄悄吞掉。
	ErrInvariantViolation = errors.New("账实不符")
)

type AccountService struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
	}
}

func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.LedgerAccount, error) {
	return s.accountRepo.GetOrCreate(ctx, userID)
}

// AdjustBalance 管理员手工调账（正数补币，负数扣减）
// 和审核入账走同一套契约：原子增减 + 流水，同一事务提交。
// 扣减由条件更新保护，余额不够直接失败，不会把账扣成负数。
func (s *AccountService) AdjustBalance(ctx context.Context, userID, amount int64, note string, adminID int64) (int64, error) {
	if note == "" {
		return 0, ErrNoteRequired
	}
	if amount == 0 {
		return 0, ErrZeroAmount
	}

	if _, err := s.accountRepo.GetOrCreate(ctx, userID); err != nil {
		return 0, fmt.Errorf("获取账户失败: %w", err)
	}

	var newBalance int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		balance, err := s.accountRepo.ApplyDelta(ctx, tx, userID, amount)
		if err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"admin_id": adminID,
		})
		entry := &model.LedgerEntry{
			EntryNo:      idgen.GenerateEntryNo(),
			UserID:       userID,
			Type:         model.LedgerTypeAdjust,
			Amount:       amount,
			BalanceAfter: balance,
			Description:  note,
			Metadata:     string(metadata),
		}
		if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("手工调账: userID=%d, amount=%d, adminID=%d, note=%s", userID, amount, adminID, note)
	return newBalance, nil
}

func (s *AccountService) ListEntries(ctx context.Context, userID int64, page, pageSize int) ([]*model.LedgerEntry, int64, error) {
	return s.ledgerRepo.ListByUserID(ctx, userID, page, pageSize)
}

// Reconcile 对账：校验 sum(流水) == 账户余额
// 对不上说明某处破坏了"迁移+入账同事务"的约定，必须大声报出来。
func (s *AccountService) Reconcile(ctx context.Context, userID int64) error {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	sum, err := s.ledgerRepo.SumByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if sum != account.Balance {
		log.Printf("[ALERT] 账实不符: userID=%d, 流水合计=%d, 账户余额=%d", userID, sum, account.Balance)
		return fmt.Errorf("%w: userID=%d, sum=%d, balance=%d", ErrInvariantViolation, userID, sum, account.Balance)
	}
	return nil
}
