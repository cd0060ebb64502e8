package model

import (
	"time"
)

// LedgerAccount 用户硬币账户表
// 每个用户一行，首次发生账务时惰性创建（get-or-create）。
//
// 核心不变式：
//  1. balance == total_earned - total_spent
//  2. balance >= 0（数据库 CHECK 约束兜底，扣减路径另有条件更新保护）
//
// 余额只能通过 AccountRepository.ApplyDelta 的原子增减语句变更，
// 应用层禁止读出来再写回去。
type LedgerAccount struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance     int64     `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	TotalEarned int64     `gorm:"not null;default:0" json:"total_earned"` // 累计获得
	TotalSpent  int64     `gorm:"not null;default:0" json:"total_spent"`  // 累计消耗
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LedgerAccount) TableName() string {
	return "ledger_account"
}
