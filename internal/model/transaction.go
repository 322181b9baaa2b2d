package model

import (
	"time"
)

const (
	TransactionTypeDeposit = "DEPOSIT" // 充值入账
)

// SweepcoinTransaction 余额流水表
//
// 流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水关联充值单号和外部事件 ID —— 便于对账
// 3. 记录交易前后余额 —— 便于校验余额一致性
type SweepcoinTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	OrderNo       string    `gorm:"type:varchar(64);index" json:"order_no"`  // 关联充值单号（payment_intent 流程可能为空）
	EventID       string    `gorm:"type:varchar(128);index" json:"event_id"` // 触发入账的外部事件 ID
	Amount        int64     `gorm:"not null" json:"amount"`                  // 入账币数（恒为正）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (SweepcoinTransaction) TableName() string {
	return "sweepcoin_transaction"
}
