package repository

import (
	"context"

	"fantasyrally/internal/model"

	"gorm.io/gorm"
)

type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) Create(ctx context.Context, item *model.ContentItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// List 按创建时间倒序返回全部内容，当前规模下不分页
func (r *ContentRepository) List(ctx context.Context) ([]*model.ContentItem, error) {
	var items []*model.ContentItem
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	return items, err
}
