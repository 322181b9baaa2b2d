package model

import (
	"time"
)

// WebhookEvent 已处理的外部事件表
//
// 支付方的通知是 at-least-once 投递，EventID 上的唯一索引是幂等的根基：
// 入账事务先插入本表，插入冲突说明该事件已经入过账，整个投递降级为空操作
type WebhookEvent struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"event_id"`
	Type        string    `gorm:"type:varchar(64);not null" json:"type"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_event"
}
