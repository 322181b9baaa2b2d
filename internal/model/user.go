package model

import (
	"time"
)

// User 用户表
// Sweepcoins 是用户的代币余额，只能通过已验证的支付回调入账，
// 客户端输入永远不能直接修改余额
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	Sweepcoins   int64     `gorm:"not null;default:0" json:"sweepcoins"` // 余额（1 美分 = 1 个币）
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (User) TableName() string {
	return "users"
}
