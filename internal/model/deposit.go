package model

import (
	"time"
)

const (
	DepositStatusCreated       = "CREATED"
	DepositStatusSessionIssued = "SESSION_ISSUED"
	DepositStatusConfirmed     = "CONFIRMED"
	DepositStatusExpired       = "EXPIRED"
	DepositStatusFailed        = "FAILED"
)

// CREATED -> CONFIRMED 是为了兼容回调先于本地状态落库到达的情况；
// CONFIRMED 是终态，重复回调停留在 CONFIRMED，不会二次入账
var ValidStatusTransitions = map[string][]string{
	DepositStatusCreated:       {DepositStatusSessionIssued, DepositStatusConfirmed, DepositStatusFailed},
	DepositStatusSessionIssued: {DepositStatusConfirmed, DepositStatusExpired, DepositStatusFailed},
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

// DepositOrder 充值单
// 一次充值对应一个外部 checkout session，状态机见 ValidStatusTransitions
type DepositOrder struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID      int64      `gorm:"index;not null" json:"user_id"`
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Status      string     `gorm:"type:varchar(20);index;not null" json:"status"`
	SessionID   string     `gorm:"type:varchar(128)" json:"session_id"` // 外部支付会话 ID
	ExpiredAt   time.Time  `gorm:"not null" json:"expired_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DepositOrder) TableName() string {
	return "deposit_order"
}
