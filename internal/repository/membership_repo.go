package repository

import (
	"context"
	"errors"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) GetByUserID(ctx context.Context, userID int64) (*model.Membership, error) {
	var m model.Membership
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetOrCreate 获取会员记录，不存在则以过期状态创建
// 并发首次访问的收敛方式与账户表相同：ON CONFLICT DO NOTHING
func (r *MembershipRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Membership, error) {
	if tx == nil {
		tx = r.db
	}

	var m model.Membership
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	newMembership := &model.Membership{
		UserID:   userID,
		Level:    0,
		ExpireAt: time.Now(),
	}
	err = tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newMembership).Error
	if err != nil {
		return nil, err
	}

	err = tx.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Update 写回会员等级与到期时间（延期/调整都走这里）
func (r *MembershipRepository) Update(ctx context.Context, tx *gorm.DB, userID int64, level int, expireAt time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Membership{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"level":     level,
			"expire_at": expireAt,
		}).Error
}

// CreateAdjustLog 追加会员调整审计日志
func (r *MembershipRepository) CreateAdjustLog(ctx context.Context, tx *gorm.DB, adjustLog *model.MembershipAdjustLog) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(adjustLog).Error
}

func (r *MembershipRepository) ListAdjustLogs(ctx context.Context, userID int64, page, pageSize int) ([]*model.MembershipAdjustLog, int64, error) {
	var logs []*model.MembershipAdjustLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.MembershipAdjustLog{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}
