package repository

import (
	"context"
	"errors"

	"github.com/player4sir/movieapp-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.LedgerAccount, error) {
	var account model.LedgerAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetOrCreate 获取账户，不存在则创建
// 用 ON CONFLICT DO NOTHING 兜住并发首次访问：两个请求同时给同一个
// 用户建账户时，只会落一行，输家安静地读回赢家插入的那行。
func (r *AccountRepository) GetOrCreate(ctx context.Context, userID int64) (*model.LedgerAccount, error) {
	account, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}

	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	newAccount := &model.LedgerAccount{
		UserID:  userID,
		Balance: 0,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error

	if err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, userID)
}

// ApplyDelta 原子增减余额
//
// amount > 0 入账：balance、total_earned 各加 amount
// amount < 0 出账：balance 减、total_spent 加 abs(amount)，
// 且谓词带 balance >= abs(amount)，改不到行即余额不足，
// 和订单状态迁移是同一套"谓词+影响行数"的 CAS 打法。
//
// 增减全部在一条 UPDATE 里由数据库计算，应用层绝不读出来再写回去。
// 返回变动后的余额快照，供流水记录 balance_after。
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx *gorm.DB, userID int64, amount int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}

	var result *gorm.DB
	if amount >= 0 {
		result = tx.WithContext(ctx).
			Model(&model.LedgerAccount{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"balance":      gorm.Expr("balance + ?", amount),
				"total_earned": gorm.Expr("total_earned + ?", amount),
			})
	} else {
		debit := -amount
		result = tx.WithContext(ctx).
			Model(&model.LedgerAccount{}).
			Where("user_id = ? AND balance >= ?", userID, debit).
			Updates(map[string]interface{}{
				"balance":     gorm.Expr("balance - ?", debit),
				"total_spent": gorm.Expr("total_spent + ?", debit),
			})
	}

	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// 出账改不到行要区分两种情况：账户不存在 or 余额不够
		var account model.LedgerAccount
		err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrAccountNotFound
			}
			return 0, err
		}
		return 0, ErrBalanceNotEnough
	}

	var account model.LedgerAccount
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		return 0, err
	}
	return account.Balance, nil
}
