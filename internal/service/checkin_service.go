package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/config"
	"github.com/player4sir/movieapp-sub000/internal/model"
	"github.com/player4sir/movieapp-sub000/internal/repository"
	"github.com/player4sir/movieapp-sub000/pkg/idgen"

	"gorm.io/gorm"
)

const checkinDateLayout = "2006-01-02"

var ErrCheckinDateInvalid = errors.New("签到日期格式不合法")

// 连签追加奖励表：下标为连签天数（封顶后取最后一档）
var streakBonusTable = []int64{0, 0, 5, 10, 15, 20, 30, 50}

// CheckinService 每日签到
//
// 和订单审核是同一个"恰好一次入账"问题的缩小版：
// 唯一键 (user_id, checkin_date) 扮演 CAS 谓词的角色，
// 签到记录、入账、流水在同一个事务里提交，重复签到整体无害回滚。
type CheckinService struct {
	db          *gorm.DB
	cfg         *config.Config
	checkinRepo *repository.CheckinRepository
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
}

func NewCheckinService(db *gorm.DB, cfg *config.Config) *CheckinService {
	return &CheckinService{
		db:          db,
		cfg:         cfg,
		checkinRepo: repository.NewCheckinRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
	}
}

// CheckinResult 签到结果
// AlreadyCheckedIn 对用户不是错误：重复点签到拿到的就是它，零副作用。
type CheckinResult struct {
	AlreadyCheckedIn bool  `json:"already_checked_in"`
	Streak           int   `json:"streak"`
	Reward           int64 `json:"reward"`
	NewBalance       int64 `json:"new_balance"`
}

// Checkin 执行一次签到
func (s *CheckinService) Checkin(ctx context.Context, userID int64, date string) (*CheckinResult, error) {
	day, err := time.Parse(checkinDateLayout, date)
	if err != nil {
		return nil, ErrCheckinDateInvalid
	}

	// 连签天数：昨天有记录则续，否则从 1 重新起算。
	// 放在事务外读没有危害——并发重复签到由唯一键一锤定音。
	yesterday := day.AddDate(0, 0, -1).Format(checkinDateLayout)
	prev, err := s.checkinRepo.GetByUserAndDate(ctx, userID, yesterday)
	if err != nil {
		return nil, fmt.Errorf("查询签到记录失败: %w", err)
	}
	streak := 1
	if prev != nil {
		streak = prev.Streak + 1
	}
	reward := s.rewardForStreak(streak)

	// 账户惰性建档同样放在事务外
	if _, err := s.accountRepo.GetOrCreate(ctx, userID); err != nil {
		return nil, fmt.Errorf("获取账户失败: %w", err)
	}

	result := &CheckinResult{Streak: streak, Reward: reward}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		record := &model.CheckinRecord{
			UserID:      userID,
			CheckinDate: date,
			Streak:      streak,
			Coins:       reward,
		}
		if err := s.checkinRepo.Create(ctx, tx, record); err != nil {
			// 唯一键冲突 = 今日已签，原样抛出让外层翻译成 no-op
			return err
		}

		newBalance, err := s.accountRepo.ApplyDelta(ctx, tx, userID, reward)
		if err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"checkin_date": date,
			"streak":       streak,
		})
		entry := &model.LedgerEntry{
			EntryNo:      idgen.GenerateEntryNo(),
			UserID:       userID,
			Type:         model.LedgerTypeCheckin,
			Amount:       reward,
			BalanceAfter: newBalance,
			Description:  fmt.Sprintf("每日签到奖励（连签%d天）", streak),
			Metadata:     string(metadata),
		}
		if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		result.NewBalance = newBalance
		return nil
	})

	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCheckedIn) {
			existing, getErr := s.checkinRepo.GetByUserAndDate(ctx, userID, date)
			if getErr != nil {
				return nil, getErr
			}
			return &CheckinResult{
				AlreadyCheckedIn: true,
				Streak:           existing.Streak,
				Reward:           existing.Coins,
			}, nil
		}
		return nil, err
	}

	log.Printf("签到成功: userID=%d, date=%s, streak=%d, reward=%d", userID, date, streak, reward)
	return result, nil
}

// rewardForStreak 基础奖励 + 连签追加奖励，连签天数按配置封顶
func (s *CheckinService) rewardForStreak(streak int) int64 {
	capped := streak
	if s.cfg.Business.CheckinStreakCap > 0 && capped > s.cfg.Business.CheckinStreakCap {
		capped = s.cfg.Business.CheckinStreakCap
	}
	if capped >= len(streakBonusTable) {
		capped = len(streakBonusTable) - 1
	}
	return s.cfg.Business.CheckinBaseReward + streakBonusTable[capped]
}
