package repository

import (
	"context"
	"errors"

	"github.com/user/animelog/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type collectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository 创建收藏仓库
func NewCollectionRepository(db *gorm.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) Find(ctx context.Context, userID, animeID string) (*model.Collection, error) {
	var rec model.Collection
	err := r.db.WithContext(ctx).Where("user_id = ? AND anime_id = ?", userID, animeID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create 插入收藏并计入用户统计
func (r *collectionRepository) Create(ctx context.Context, c *model.Collection) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return applyStats(tx, c.UserID, model.Contribution(c))
	})
	return translate(err)
}

// Update 锁定原记录后更新，统计按新旧记录的差值调整
func (r *collectionRepository) Update(ctx context.Context, id string, patch model.CollectionPatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := lockCollection(tx, id)
		if err != nil || old == nil {
			return err
		}
		updated := *old
		patch.ApplyTo(&updated)

		if err := tx.Model(&model.Collection{}).Where("id = ?", id).UpdateColumns(patchColumns(patch)).Error; err != nil {
			return err
		}
		return applyStats(tx, old.UserID, model.Contribution(&updated).Sub(model.Contribution(old)))
	})
}

// Delete 删除收藏并扣减用户统计
func (r *collectionRepository) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := lockCollection(tx, id)
		if err != nil || old == nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Collection{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return applyStats(tx, old.UserID, model.StatsDelta{}.Sub(model.Contribution(old)))
	})
	return deleted, err
}

func lockCollection(tx *gorm.DB, id string) (*model.Collection, error) {
	var rec model.Collection
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func patchColumns(patch model.CollectionPatch) map[string]any {
	updates := map[string]any{"update_time": patch.UpdateTime}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.CurrentEpisode != nil {
		updates["current_episode"] = *patch.CurrentEpisode
	}
	if patch.TotalEpisodes != nil {
		updates["total_episodes"] = *patch.TotalEpisodes
	}
	if patch.IsLiked != nil {
		updates["is_liked"] = *patch.IsLiked
	}
	return updates
}

// List 按更新时间倒序分页，status 为空时不过滤
func (r *collectionRepository) List(ctx context.Context, userID string, status model.CollectionStatus, limit, offset int) ([]*model.Collection, error) {
	var records []*model.Collection
	err := r.scope(ctx, userID, status).
		Order("update_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

func (r *collectionRepository) CountByUser(ctx context.Context, userID string, status model.CollectionStatus) (int64, error) {
	var count int64
	err := r.scope(ctx, userID, status).Count(&count).Error
	return count, err
}

func (r *collectionRepository) scope(ctx context.Context, userID string, status model.CollectionStatus) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Collection{}).Where("user_id = ?", userID)
	if status != "" {
		tx = tx.Where("status = ?", string(status))
	}
	return tx
}

func (r *collectionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Collection{}).Count(&count).Error
	return count, err
}
