package repository

import (
	"context"

	"github.com/user/animelog/internal/model"
	"gorm.io/gorm"
)

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建观看历史仓库
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Append 追加一条观看记录
func (r *historyRepository) Append(ctx context.Context, h *model.WatchHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// Count 统计观看历史数量
func (r *historyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WatchHistory{}).Count(&count).Error
	return count, err
}
