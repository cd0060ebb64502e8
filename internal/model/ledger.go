package model

import (
	"time"
)

// ============================================================================
// 账务流水类型
// ============================================================================

const (
	LedgerTypeRecharge  = "recharge"  // 充值订单审核通过入账
	LedgerTypeCheckin   = "checkin"   // 每日签到奖励
	LedgerTypeExchange  = "exchange"  // 兑换
	LedgerTypeConsume   = "consume"   // 消费（解锁内容等）
	LedgerTypeAdjust    = "adjust"    // 管理员手工调整
	LedgerTypePromotion = "promotion" // 活动赠送
)

// LedgerEntry 账务流水表
// 记录每一笔余额变动，是对账的核心依据。
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 记录变动后余额快照 —— 便于校验余额一致性
// 3. 任一时刻 sum(amount) 必须等于该用户账户的当前余额
type LedgerEntry struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryNo      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"` // 流水号（全局唯一）
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	Type         string    `gorm:"type:varchar(20);index;not null" json:"type"`
	Amount       int64     `gorm:"not null" json:"amount"`        // 有符号金额，正数入账，负数出账
	BalanceAfter int64     `gorm:"not null" json:"balance_after"` // 变动后余额
	Description  string    `gorm:"type:varchar(256)" json:"description"`
	Metadata     string    `gorm:"type:text" json:"metadata"` // JSON，关联订单号等附加信息
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entry"
}
