package model

import (
	"time"
)

// ContentItem 内容表
// StoredName 是磁盘上的文件名，由雪花 ID 生成保证不冲突；
// 记录创建后不再修改，也不提供删除
type ContentItem struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StoredName   string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"filename"`
	OriginalName string    `gorm:"type:varchar(256);not null" json:"originalname"`
	MimeType     string    `gorm:"type:varchar(128)" json:"mimetype"`
	Title        string    `gorm:"type:varchar(256)" json:"title"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ContentItem) TableName() string {
	return "content"
}
