package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/user/animelog/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByOpenID 根据身份令牌查找用户
func (r *userRepository) FindByOpenID(ctx context.Context, openID string) (*model.User, error) {
	return r.first(ctx, "open_id = ?", openID)
}

// FindByPhone 根据手机号查找用户
func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *userRepository) first(ctx context.Context, query string, args ...any) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// Update 部分更新用户字段
func (r *userRepository) Update(ctx context.Context, id string, patch model.UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	updates := map[string]any{}
	if patch.Nickname != nil {
		updates["nickname"] = *patch.Nickname
	}
	if patch.Avatar != nil {
		updates["avatar"] = *patch.Avatar
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.PhoneVerified != nil {
		updates["phone_verified"] = *patch.PhoneVerified
	}
	if patch.LastLoginTime != nil {
		updates["last_login_time"] = *patch.LastLoginTime
	}
	if patch.ClearLegacy {
		updates["liked_animes"] = pq.StringArray{}
	}
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumns(updates).Error
	return translate(err)
}

// applyStats 对统计字段做原子增减，tx 为调用方的事务
func applyStats(tx *gorm.DB, userID string, delta model.StatsDelta) error {
	cols := delta.Columns()
	if len(cols) == 0 {
		return nil
	}
	updates := make(map[string]any, len(cols))
	for col, n := range cols {
		updates[col] = gorm.Expr(col+" + ?", n)
	}
	return tx.Model(&model.User{}).Where("id = ?", userID).UpdateColumns(updates).Error
}

const recomputeStatsSQL = `
UPDATE users SET
	stats_total_anime = (SELECT COUNT(*) FROM collections c WHERE c.user_id = users.id),
	stats_watching    = (SELECT COUNT(*) FROM collections c WHERE c.user_id = users.id AND c.status = 'watching'),
	stats_watched     = (SELECT COUNT(*) FROM collections c WHERE c.user_id = users.id AND c.status = 'watched'),
	stats_wishlist    = (SELECT COUNT(*) FROM collections c WHERE c.user_id = users.id AND c.status = 'wishlist'),
	stats_total_likes = (SELECT COUNT(*) FROM collections c WHERE c.user_id = users.id AND c.is_liked)
WHERE id = ?
RETURNING stats_total_anime AS total_anime, stats_watching AS watching, stats_watched AS watched,
	stats_wishlist AS wishlist, stats_total_likes AS total_likes`

// RecomputeStats 先锁定用户行，再用一条语句按收藏重算统计。
// 收藏写入会在同一事务里更新用户行，所以锁定后的新快照要么完整包含、要么完整排除一次写入。
func (r *userRepository) RecomputeStats(ctx context.Context, id string) (before, after model.UserStats, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stats_total_anime", "stats_watching", "stats_watched", "stats_wishlist", "stats_total_likes").
			Where("id = ?", id).
			First(&user).Error; err != nil {
			return err
		}
		before = user.Stats
		return tx.Raw(recomputeStatsSQL, id).Scan(&after).Error
	})
	return before, after, err
}

// List 按创建时间分页列出用户
func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).Order("create_time ASC, id ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

// Count 获取用户总数
func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}
