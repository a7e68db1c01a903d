package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/user/animelog/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type catalogCacheRepository struct {
	db *gorm.DB
}

// NewCatalogCacheRepository 创建目录缓存仓库
func NewCatalogCacheRepository(db *gorm.DB) CatalogCacheRepository {
	return &catalogCacheRepository{db: db}
}

// FindDetail 查找详情缓存（不判断过期，由调用方决定）
func (r *catalogCacheRepository) FindDetail(ctx context.Context, animeID string) (*model.AnimeCache, error) {
	var c model.AnimeCache
	err := r.db.WithContext(ctx).Where("anime_id = ?", animeID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveDetail 创建或覆盖详情缓存（按 anime_id 唯一）
func (r *catalogCacheRepository) SaveDetail(ctx context.Context, animeID string, data []byte, now int64) error {
	c := &model.AnimeCache{
		ID:         uuid.NewString(),
		AnimeID:    animeID,
		Data:       datatypes.JSON(data),
		CreateTime: now,
		UpdateTime: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "anime_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "update_time"}),
	}).Create(c).Error
}

// SearchCached 查找名称匹配且未过期的搜索缓存
func (r *catalogCacheRepository) SearchCached(ctx context.Context, keyword string, now int64, limit int) ([]*model.AnimeSearchCache, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	var rows []*model.AnimeSearchCache
	err := r.db.WithContext(ctx).
		Where("(name ILIKE ? OR name_cn ILIKE ?) AND expire_time > ?", pattern, pattern, now).
		Order("update_time DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SaveSearchItem 写入一条搜索缓存，已存在则刷新内容与过期时间
func (r *catalogCacheRepository) SaveSearchItem(ctx context.Context, item *model.AnimeSearchCache) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bangumi_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "name_cn", "data", "update_time", "expire_time"}),
	}).Create(item).Error
	return translate(err)
}

func (r *catalogCacheRepository) CountDetail(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AnimeCache{}).Count(&count).Error
	return count, err
}

func (r *catalogCacheRepository) CountSearch(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AnimeSearchCache{}).Count(&count).Error
	return count, err
}

// escapeLike 转义 LIKE 通配符，关键词按字面匹配
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
