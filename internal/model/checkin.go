package model

import (
	"time"
)

// CheckinRecord 每日签到记录
// (user_id, checkin_date) 联合唯一索引是幂等的根基：
// 同一天重复签到会触发唯一键冲突，由仓储层转换为"今日已签到"，
// 这是硬约束，不是建议性校验。
type CheckinRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"uniqueIndex:uk_user_date;not null" json:"user_id"`
	CheckinDate string    `gorm:"type:varchar(10);uniqueIndex:uk_user_date;not null" json:"checkin_date"` // YYYY-MM-DD
	Streak      int       `gorm:"not null;default:1" json:"streak"`                                       // 连续签到天数
	Coins       int64     `gorm:"not null" json:"coins"`                                                  // 当日奖励硬币数
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CheckinRecord) TableName() string {
	return "checkin_record"
}
