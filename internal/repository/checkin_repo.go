package repository

import (
	"context"
	"errors"

	"github.com/player4sir/movieapp-sub000/internal/model"

	"gorm.io/gorm"
)

var ErrAlreadyCheckedIn = errors.New("今日已签到")

type CheckinRepository struct {
	db *gorm.DB
}

func NewCheckinRepository(db *gorm.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// Create 插入签到记录
// 幂等靠 (user_id, checkin_date) 唯一键：重复签到触发唯一键冲突，
// 这里翻译成 ErrAlreadyCheckedIn，由服务层转为对用户无害的 no-op。
func (r *CheckinRepository) Create(ctx context.Context, tx *gorm.DB, record *model.CheckinRecord) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyCheckedIn
		}
		return err
	}
	return nil
}

func (r *CheckinRepository) GetByUserAndDate(ctx context.Context, userID int64, date string) (*model.CheckinRecord, error) {
	var record model.CheckinRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND checkin_date = ?", userID, date).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
