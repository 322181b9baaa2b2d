package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fantasyrally/internal/config"
	"fantasyrally/internal/model"
	"fantasyrally/internal/repository"
	"fantasyrally/pkg/idgen"

	"gorm.io/gorm"
)

type ContentService struct {
	contentRepo *repository.ContentRepository
	dir         string
}

func NewContentService(db *gorm.DB, cfg *config.ContentConfig) *ContentService {
	return &ContentService{
		contentRepo: repository.NewContentRepository(db),
		dir:         cfg.Dir,
	}
}

// Upload 先落盘再写元数据
// 元数据写入失败时尽力删除文件；失败留下的孤儿文件可接受，不做对账清理
func (s *ContentService) Upload(ctx context.Context, src io.Reader, originalName, mimeType, title string) (*model.ContentItem, error) {
	storedName := idgen.GenerateStoredName(filepath.Ext(originalName))
	dst := filepath.Join(s.dir, storedName)

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}

	item := &model.ContentItem{
		StoredName:   storedName,
		OriginalName: originalName,
		MimeType:     mimeType,
		Title:        title,
	}

	if err := s.contentRepo.Create(ctx, item); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("保存内容记录失败: %w", err)
	}

	return item, nil
}

func (s *ContentService) List(ctx context.Context) ([]*model.ContentItem, error) {
	return s.contentRepo.List(ctx)
}
