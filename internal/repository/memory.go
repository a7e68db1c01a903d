package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/animelog/internal/model"
)

// MemoryStore 进程内存储，读写都做拷贝，调用方不会与存储共享内存
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*model.User // 键：用户 ID
	collections map[string]*model.Collection
	history     []model.WatchHistory
	counters    map[string]*model.Counter
	details     map[string]*model.AnimeCache       // 键：条目 ID
	searches    map[int64]*model.AnimeSearchCache // 键：Bangumi 条目 ID
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*model.User),
		collections: make(map[string]*model.Collection),
		counters:    make(map[string]*model.Counter),
		details:     make(map[string]*model.AnimeCache),
		searches:    make(map[int64]*model.AnimeSearchCache),
	}
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	if u.Phone != nil {
		phone := *u.Phone
		cp.Phone = &phone
	}
	cp.LikedAnimes = append([]string(nil), u.LikedAnimes...)
	return &cp
}

func cloneCollection(c *model.Collection) *model.Collection {
	cp := *c
	return &cp
}

// ==================== users ====================

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) FindByOpenID(_ context.Context, openID string) (*model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.users {
		if u.OpenID == openID {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r memoryUsers) FindByPhone(_ context.Context, phone string) (*model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.users {
		if u.Phone != nil && *u.Phone == phone {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r memoryUsers) Create(_ context.Context, user *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range r.m.users {
		if u.OpenID == user.OpenID || u.UID == user.UID {
			return ErrDuplicate
		}
	}
	r.m.users[user.ID] = cloneUser(user)
	return nil
}

func (r memoryUsers) Update(_ context.Context, id string, patch model.UserPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil
	}
	if patch.Phone != nil {
		for _, other := range r.m.users {
			if other.ID != id && other.Phone != nil && *other.Phone == *patch.Phone {
				return ErrDuplicate
			}
		}
		phone := *patch.Phone
		u.Phone = &phone
	}
	if patch.Nickname != nil {
		u.Nickname = *patch.Nickname
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.PhoneVerified != nil {
		u.PhoneVerified = *patch.PhoneVerified
	}
	if patch.LastLoginTime != nil {
		u.LastLoginTime = *patch.LastLoginTime
	}
	if patch.ClearLegacy {
		u.LikedAnimes = nil
	}
	return nil
}

func (r memoryUsers) RecomputeStats(_ context.Context, id string) (model.UserStats, model.UserStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return model.UserStats{}, model.UserStats{}, fmt.Errorf("用户 %s 不存在", id)
	}
	before := u.Stats
	u.Stats = model.Tally(memoryCollections{r.m}.filter(id, ""))
	return before, u.Stats, nil
}

func (r memoryUsers) List(_ context.Context, limit, offset int) ([]*model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	all := make([]*model.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreateTime != all[j].CreateTime {
			return all[i].CreateTime < all[j].CreateTime
		}
		return all[i].ID < all[j].ID
	})
	return page(all, limit, offset), nil
}

func (r memoryUsers) Count(_ context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.users)), nil
}

// OverwriteStats 直接覆盖统计，用于构造偏差数据
func (m *MemoryStore) OverwriteStats(userID string, stats model.UserStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.Stats = stats
	}
}

// SeedLegacyLikes 写入旧版喜欢列表，仅用于迁移测试与本地数据导入
func (m *MemoryStore) SeedLegacyLikes(userID string, animeIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.LikedAnimes = append(u.LikedAnimes, animeIDs...)
	}
}

// ==================== collections ====================

type memoryCollections struct{ m *MemoryStore }

func (r memoryCollections) Find(_ context.Context, userID, animeID string) (*model.Collection, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, c := range r.m.collections {
		if c.UserID == userID && c.AnimeID == animeID {
			return cloneCollection(c), nil
		}
	}
	return nil, nil
}

func (r memoryCollections) Create(_ context.Context, c *model.Collection) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.collections {
		if existing.ID == c.ID || (existing.UserID == c.UserID && existing.AnimeID == c.AnimeID) {
			return ErrDuplicate
		}
	}
	r.m.collections[c.ID] = cloneCollection(c)
	r.m.applyStats(c.UserID, model.Contribution(c))
	return nil
}

func (r memoryCollections) Update(_ context.Context, id string, patch model.CollectionPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.collections[id]
	if !ok {
		return nil
	}
	before := model.Contribution(c)
	patch.ApplyTo(c)
	r.m.applyStats(c.UserID, model.Contribution(c).Sub(before))
	return nil
}

func (r memoryCollections) Delete(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.collections[id]
	if !ok {
		return false, nil
	}
	delete(r.m.collections, id)
	r.m.applyStats(c.UserID, model.StatsDelta{}.Sub(model.Contribution(c)))
	return true, nil
}

// applyStats 调用方需持有写锁
func (m *MemoryStore) applyStats(userID string, delta model.StatsDelta) {
	if u, ok := m.users[userID]; ok {
		u.Stats.Apply(delta)
	}
}

func (r memoryCollections) filter(userID string, status model.CollectionStatus) []*model.Collection {
	res := make([]*model.Collection, 0)
	for _, c := range r.m.collections {
		if c.UserID != userID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		res = append(res, cloneCollection(c))
	}
	return res
}

func (r memoryCollections) List(_ context.Context, userID string, status model.CollectionStatus, limit, offset int) ([]*model.Collection, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	res := r.filter(userID, status)
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].UpdateTime != res[j].UpdateTime {
			return res[i].UpdateTime > res[j].UpdateTime
		}
		return res[i].ID < res[j].ID
	})
	return page(res, limit, offset), nil
}

func (r memoryCollections) CountByUser(_ context.Context, userID string, status model.CollectionStatus) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.filter(userID, status))), nil
}

func (r memoryCollections) Count(_ context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.collections)), nil
}

// ==================== history ====================

type memoryHistory struct{ m *MemoryStore }

func (r memoryHistory) Append(_ context.Context, h *model.WatchHistory) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.history = append(r.m.history, *h)
	return nil
}

func (r memoryHistory) Count(_ context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.history)), nil
}

// HistoryFor 返回某用户某条目的观看记录（按写入顺序）
func (m *MemoryStore) HistoryFor(userID, animeID string) []model.WatchHistory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.WatchHistory
	for _, h := range m.history {
		if h.UserID == userID && h.AnimeID == animeID {
			res = append(res, h)
		}
	}
	return res
}

// ==================== counters ====================

type memoryCounters struct{ m *MemoryStore }

func (r memoryCounters) Next(_ context.Context, name string, seed int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now().UnixMilli()
	c, ok := r.m.counters[name]
	if !ok {
		r.m.counters[name] = &model.Counter{Name: name, Seq: seed, CreateTime: now, UpdateTime: now}
		return seed, nil
	}
	c.Seq++
	c.UpdateTime = now
	return c.Seq, nil
}

func (r memoryCounters) Get(_ context.Context, name string) (*model.Counter, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.counters[name]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r memoryCounters) Seed(_ context.Context, name string, seed int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.counters[name]; ok {
		return false, nil
	}
	now := time.Now().UnixMilli()
	r.m.counters[name] = &model.Counter{Name: name, Seq: seed, CreateTime: now, UpdateTime: now}
	return true, nil
}

func (r memoryCounters) Count(_ context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.counters)), nil
}

// ==================== catalog cache ====================

type memoryCatalog struct{ m *MemoryStore }

func (r memoryCatalog) FindDetail(_ context.Context, animeID string) (*model.AnimeCache, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.details[animeID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r memoryCatalog) SaveDetail(_ context.Context, animeID string, data []byte, now int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	payload := append([]byte(nil), data...)
	if c, ok := r.m.details[animeID]; ok {
		c.Data = payload
		c.UpdateTime = now
		return nil
	}
	r.m.details[animeID] = &model.AnimeCache{
		ID:         uuid.NewString(),
		AnimeID:    animeID,
		Data:       payload,
		CreateTime: now,
		UpdateTime: now,
	}
	return nil
}

func (r memoryCatalog) SearchCached(_ context.Context, keyword string, now int64, limit int) ([]*model.AnimeSearchCache, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	kw := strings.ToLower(keyword)
	var res []*model.AnimeSearchCache
	for _, c := range r.m.searches {
		if c.ExpireTime <= now {
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), kw) || strings.Contains(strings.ToLower(c.NameCn), kw) {
			cp := *c
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].UpdateTime != res[j].UpdateTime {
			return res[i].UpdateTime > res[j].UpdateTime
		}
		return res[i].BangumiID < res[j].BangumiID
	})
	return page(res, limit, 0), nil
}

func (r memoryCatalog) SaveSearchItem(_ context.Context, item *model.AnimeSearchCache) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	cp := *item
	if existing, ok := r.m.searches[item.BangumiID]; ok {
		cp.ID = existing.ID
	}
	r.m.searches[item.BangumiID] = &cp
	return nil
}

func (r memoryCatalog) CountDetail(_ context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.details)), nil
}

func (r memoryCatalog) CountSearch(_ context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.searches)), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
