package model

import (
	"time"
)

// ============================================================================
// 订单状态
// ============================================================================
//
// 订单生命周期：
//
//   pending ──> paid ──> approved / rejected
//      │                      ▲
//      └──────────────────────┘
//
//   pending  - 用户提交了付款凭证，等待人工审核（也可能尚未转账）
//   paid     - 用户声明已完成转账（线下银行/二维码转账）
//   approved - 管理员审核通过，硬币/会员已到账（终态）
//   rejected - 管理员驳回（终态）
//
// approved 和 rejected 是终态，任何状态机都不允许再迁出。

const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusApproved = "approved"
	OrderStatusRejected = "rejected"
)

var ValidStatusTransitions = map[string][]string{
	OrderStatusPending: {OrderStatusPaid, OrderStatusApproved, OrderStatusRejected},
	OrderStatusPaid:    {OrderStatusApproved, OrderStatusRejected},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// ReviewableStatuses 允许被审核的状态集合
// 无论转账前（pending）还是转账后（paid）提交审核都可以直接处理，
// 状态机本身不强制"必须先标记已付款"。
var ReviewableStatuses = []string{OrderStatusPending, OrderStatusPaid}

// IsTerminalStatus 是否终态
func IsTerminalStatus(status string) bool {
	return status == OrderStatusApproved || status == OrderStatusRejected
}

// ============================================================================
// 商品类型 / 支付方式
// ============================================================================

const (
	ProductTypeCoin       = "coin"       // 硬币充值
	ProductTypeMembership = "membership" // 会员时长
)

const (
	PaymentTypeBank   = "bank"   // 银行转账
	PaymentTypeAlipay = "alipay" // 支付宝收款码
	PaymentTypeWechat = "wechat" // 微信收款码
)

// Order 付款申报订单
// 用户线下转账后提交申报，管理员人工核对到账情况并审核。
// 创建之后只能通过 OrderRepository.Transition 按状态机变更，禁止直接改字段。
type Order struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID          int64      `gorm:"index;not null" json:"user_id"`
	ProductType     string     `gorm:"type:varchar(20);not null" json:"product_type"`
	CoinAmount      int64      `gorm:"not null;default:0" json:"coin_amount"`                // 硬币数（coin 订单）
	MembershipLevel int        `gorm:"not null;default:0" json:"membership_level"`           // 会员等级（membership 订单）
	MembershipDays  int        `gorm:"not null;default:0" json:"membership_days"`            // 会员天数（membership 订单）
	Price           int64      `gorm:"not null" json:"price"`                                // 应付金额，单位：分
	Status          string     `gorm:"type:varchar(20);index;not null" json:"status"`
	PaymentType     string     `gorm:"type:varchar(20);not null" json:"payment_type"`
	ScreenshotURL   string     `gorm:"type:varchar(512)" json:"screenshot_url"`              // 转账截图
	Note            string     `gorm:"type:varchar(256)" json:"note"`                        // 用户备注
	RemarkCode      string     `gorm:"type:varchar(16);index;not null" json:"remark_code"`   // 转账附言码，审核员靠它匹配到账记录
	ReviewedBy      int64      `gorm:"not null;default:0" json:"reviewed_by"`                // 审核管理员ID
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectReason    string     `gorm:"type:varchar(256)" json:"reject_reason"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "recharge_order"
}
