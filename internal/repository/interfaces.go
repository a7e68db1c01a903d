package repository

import (
	"context"
	"errors"

	"github.com/user/animelog/internal/model"
)

// ErrDuplicate 违反唯一约束
var ErrDuplicate = errors.New("repository: duplicate key")

// 查找类方法在记录不存在时返回 (nil, nil)

type UserRepository interface {
	FindByOpenID(ctx context.Context, openID string) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id string, patch model.UserPatch) error
	// RecomputeStats 锁定用户后按现有收藏重算统计，返回重算前后的值
	RecomputeStats(ctx context.Context, id string) (before, after model.UserStats, err error)
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// 收藏的增删改与所属用户的统计增量在同一事务内完成
type CollectionRepository interface {
	Find(ctx context.Context, userID, animeID string) (*model.Collection, error)
	Create(ctx context.Context, c *model.Collection) error
	Update(ctx context.Context, id string, patch model.CollectionPatch) error
	// Delete 返回是否真的删除了一行
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, userID string, status model.CollectionStatus, limit, offset int) ([]*model.Collection, error)
	CountByUser(ctx context.Context, userID string, status model.CollectionStatus) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, h *model.WatchHistory) error
	Count(ctx context.Context) (int64, error)
}

type CounterRepository interface {
	// Next 原子自增并返回新值；计数器不存在时以 seed 创建并返回 seed
	Next(ctx context.Context, name string, seed int64) (int64, error)
	Get(ctx context.Context, name string) (*model.Counter, error)
	// Seed 计数器不存在时创建，返回是否新建
	Seed(ctx context.Context, name string, seed int64) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type CatalogCacheRepository interface {
	FindDetail(ctx context.Context, animeID string) (*model.AnimeCache, error)
	SaveDetail(ctx context.Context, animeID string, data []byte, now int64) error
	// SearchCached 名称或中文名包含 keyword（不区分大小写）且未过期的缓存
	SearchCached(ctx context.Context, keyword string, now int64, limit int) ([]*model.AnimeSearchCache, error)
	SaveSearchItem(ctx context.Context, item *model.AnimeSearchCache) error
	CountDetail(ctx context.Context) (int64, error)
	CountSearch(ctx context.Context) (int64, error)
}
