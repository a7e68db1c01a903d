package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/animelog/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository 创建计数器仓库
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

// Next 单条 INSERT ... ON CONFLICT DO UPDATE ... RETURNING 完成自增，首个值为 seed
func (r *counterRepository) Next(ctx context.Context, name string, seed int64) (int64, error) {
	now := time.Now().UnixMilli()
	c := model.Counter{Name: name, Seq: seed, CreateTime: now, UpdateTime: now}
	err := r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"seq":         gorm.Expr("counters.seq + 1"),
				"update_time": now,
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "seq"}}},
	).Create(&c).Error
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}

func (r *counterRepository) Get(ctx context.Context, name string) (*model.Counter, error) {
	var c model.Counter
	err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *counterRepository) Seed(ctx context.Context, name string, seed int64) (bool, error) {
	now := time.Now().UnixMilli()
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Counter{Name: name, Seq: seed, CreateTime: now, UpdateTime: now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *counterRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Counter{}).Count(&count).Error
	return count, err
}
