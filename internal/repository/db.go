package repository

import (
	"errors"
	"fmt"

	"github.com/user/animelog/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB 初始化数据库连接并迁移表结构
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Collection{},
		&model.WatchHistory{},
		&model.Counter{},
		&model.AnimeCache{},
		&model.AnimeSearchCache{},
	); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// Repositories 仓库集合
type Repositories struct {
	User         UserRepository
	Collection   CollectionRepository
	History      HistoryRepository
	Counter      CounterRepository
	CatalogCache CatalogCacheRepository
}

// NewRepositories 创建基于 GORM 的仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Collection:   NewCollectionRepository(db),
		History:      NewHistoryRepository(db),
		Counter:      NewCounterRepository(db),
		CatalogCache: NewCatalogCacheRepository(db),
	}
}

// NewMemoryRepositories 创建基于内存的仓库集合（本地开发与测试）
func NewMemoryRepositories() *Repositories {
	return NewMemoryStore().Repositories()
}

// Repositories 以该内存存储为后端的仓库集合
func (m *MemoryStore) Repositories() *Repositories {
	return &Repositories{
		User:         memoryUsers{m},
		Collection:   memoryCollections{m},
		History:      memoryHistory{m},
		Counter:      memoryCounters{m},
		CatalogCache: memoryCatalog{m},
	}
}

// translate 统一转换唯一约束错误
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
