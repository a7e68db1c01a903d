package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/repository"
)

const reconcileBatch = 100

// MaintenanceService 数据库初始化、状态检查与统计对账
type MaintenanceService struct {
	repos    *repository.Repositories
	interval time.Duration
}

// NewMaintenanceService 创建维护服务，interval 为 0 时不启动定时对账
func NewMaintenanceService(repos *repository.Repositories, interval time.Duration) *MaintenanceService {
	return &MaintenanceService{repos: repos, interval: interval}
}

// Start 启动定时对账任务，ctx 取消后退出
func (s *MaintenanceService) Start(ctx context.Context) {
	if s.interval <= 0 {
		log.Println("[MaintenanceService] 定时对账已关闭")
		return
	}

	go func() {
		// 启动时先运行一次
		s.runReconcile(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runReconcile(ctx)
			}
		}
	}()
}

func (s *MaintenanceService) runReconcile(ctx context.Context) {
	log.Println("[MaintenanceService] 开始统计对账...")
	report, err := s.ReconcileStats(ctx)
	if err != nil {
		log.Printf("[MaintenanceService] 统计对账失败: %v", err)
		return
	}
	log.Printf("[MaintenanceService] 对账完成: 用户 %d, 修正统计 %d, 迁移旧版喜欢 %d",
		report.Users, report.Fixed, report.LegacyMigrated)
}

// CounterInit 计数器初始化结果
type CounterInit struct {
	Created bool           `json:"created"`
	Counter *model.Counter `json:"counter,omitempty"`
}

// InitCounters 幂等地创建展示 ID 计数器
func (s *MaintenanceService) InitCounters(ctx context.Context) (*CounterInit, error) {
	created, err := s.repos.Counter.Seed(ctx, UIDCounter, UIDSeed)
	if err != nil {
		return nil, fmt.Errorf("初始化计数器失败: %w", err)
	}
	counter, err := s.repos.Counter.Get(ctx, UIDCounter)
	if err != nil {
		return nil, fmt.Errorf("读取计数器失败: %w", err)
	}
	return &CounterInit{Created: created, Counter: counter}, nil
}

// TableStatus 单表状态
type TableStatus struct {
	Exists bool   `json:"exists"`
	Count  int64  `json:"count"`
	Error  string `json:"error,omitempty"`
}

// CheckStatus 统计各表行数，单表失败不影响其他表
func (s *MaintenanceService) CheckStatus(ctx context.Context) map[string]TableStatus {
	counters := []struct {
		name  string
		count func(context.Context) (int64, error)
	}{
		{"users", s.repos.User.Count},
		{"collections", s.repos.Collection.Count},
		{"watch_history", s.repos.History.Count},
		{"counters", s.repos.Counter.Count},
		{"anime_cache", s.repos.CatalogCache.CountDetail},
		{"anime_search_cache", s.repos.CatalogCache.CountSearch},
	}

	status := make(map[string]TableStatus, len(counters))
	for _, c := range counters {
		n, err := c.count(ctx)
		if err != nil {
			status[c.name] = TableStatus{Error: err.Error()}
			continue
		}
		status[c.name] = TableStatus{Exists: true, Count: n}
	}
	return status
}

// StepResult initAll 的单步结果
type StepResult struct {
	Step   string `json:"step"`
	Result any    `json:"result"`
}

// InitAll 初始化计数器后检查各表状态
func (s *MaintenanceService) InitAll(ctx context.Context) ([]StepResult, error) {
	counter, err := s.InitCounters(ctx)
	if err != nil {
		return nil, err
	}
	return []StepResult{
		{Step: "初始化计数器", Result: counter},
		{Step: "检查集合状态", Result: s.CheckStatus(ctx)},
	}, nil
}

// ReconcileReport 对账结果
type ReconcileReport struct {
	Users          int `json:"users"`
	Fixed          int `json:"fixed"`
	LegacyMigrated int `json:"legacyMigrated"`
}

// ReconcileStats 按收藏记录重算所有用户的统计，并迁移旧版喜欢列表
func (s *MaintenanceService) ReconcileStats(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	for offset := 0; ; offset += reconcileBatch {
		users, err := s.repos.User.List(ctx, reconcileBatch, offset)
		if err != nil {
			return report, fmt.Errorf("读取用户失败: %w", err)
		}
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			migrated, fixed, err := s.reconcileUser(ctx, u)
			if err != nil {
				return report, fmt.Errorf("对账用户 %s 失败: %w", u.UID, err)
			}
			report.Users++
			report.LegacyMigrated += migrated
			if fixed {
				report.Fixed++
			}
		}
		if len(users) < reconcileBatch {
			return report, nil
		}
	}
}

func (s *MaintenanceService) reconcileUser(ctx context.Context, u *model.User) (int, bool, error) {
	migrated := 0
	for _, animeID := range u.LikedAnimes {
		rec, err := s.repos.Collection.Find(ctx, u.ID, animeID)
		if err != nil {
			return migrated, false, err
		}
		// 没有收藏记录的旧版喜欢无处安放，直接丢弃
		if rec == nil || rec.IsLiked {
			continue
		}
		liked := true
		patch := model.CollectionPatch{IsLiked: &liked, UpdateTime: rec.UpdateTime}
		if err := s.repos.Collection.Update(ctx, rec.ID, patch); err != nil {
			return migrated, false, err
		}
		migrated++
	}
	if len(u.LikedAnimes) > 0 {
		if err := s.repos.User.Update(ctx, u.ID, model.UserPatch{ClearLegacy: true}); err != nil {
			return migrated, false, err
		}
	}

	// 重算与读取在同一把锁内完成，不会覆盖并发写入的增量
	before, after, err := s.repos.User.RecomputeStats(ctx, u.ID)
	if err != nil {
		return migrated, false, err
	}
	return migrated, before != after, nil
}
