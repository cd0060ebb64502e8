package model

import (
	"time"
)

// Membership 用户会员状态
// 每个用户一行，会员订单审核通过或管理员手工调整时变更。
type Membership struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Level     int       `gorm:"not null;default:0" json:"level"`
	ExpireAt  time.Time `gorm:"not null" json:"expire_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Membership) TableName() string {
	return "membership"
}

// MembershipAdjustLog 会员调整审计日志
// 纯审计用途，只追加；本身不产生任何账务影响。
type MembershipAdjustLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	OldLevel    int       `gorm:"not null" json:"old_level"`
	NewLevel    int       `gorm:"not null" json:"new_level"`
	OldExpireAt time.Time `json:"old_expire_at"`
	NewExpireAt time.Time `json:"new_expire_at"`
	AdminID     int64     `gorm:"not null" json:"admin_id"`
	Reason      string    `gorm:"type:varchar(256);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MembershipAdjustLog) TableName() string {
	return "membership_adjust_log"
}
