package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/repository"
	"github.com/user/animelog/internal/utils"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
)

const (
	DetailTTL         = 24 * time.Hour
	SearchTTL         = 24 * time.Hour
	SearchCacheLimit  = 20
	DefaultSearchType = 2 // 动画

	episodeCacheSize = 1000
	episodeTTL       = 24 * time.Hour
	calendarTTL      = time.Hour
	calendarKey      = "calendar"

	defaultEpisodeLimit = 100
	maxEpisodeLimit     = 200

	defaultFetchTimeout = 30 * time.Second
)

// Source 数据来源标记
type Source string

const (
	FromCache Source = "cache"
	FromAPI   Source = "api"
)

// CatalogSource 外部只读目录
type CatalogSource interface {
	Subject(ctx context.Context, id int64) (json.RawMessage, error)
	Search(ctx context.Context, keyword string, subjectType int) ([]json.RawMessage, error)
	Episodes(ctx context.Context, q model.EpisodeQuery) (*model.EpisodePage, error)
	Calendar(ctx context.Context) ([]model.CalendarDay, error)
}

// CatalogService 目录读取，缓存优先
type CatalogService struct {
	source   CatalogSource
	cache    repository.CatalogCacheRepository
	group    singleflight.Group
	episodes *utils.LRUCache[*model.EpisodePage]
	calendar *cache.Cache
	// 合并后的抓取各自使用的超时，与单个调用方的取消无关
	fetchTimeout time.Duration
	now          func() time.Time
}

// NewCatalogService 创建目录服务
func NewCatalogService(source CatalogSource, repos *repository.Repositories, fetchTimeout time.Duration) *CatalogService {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &CatalogService{
		source:       source,
		cache:        repos.CatalogCache,
		episodes:     utils.NewLRUCache[*model.EpisodePage](episodeCacheSize, episodeTTL),
		calendar:     utils.NewMemoryCache(calendarTTL),
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// shared 合并同一 key 的并发请求。抓取在脱离调用方取消的 context 中进行，
// 某个调用方断开只会让它自己提前返回。
func (s *CatalogService) shared(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return fn(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type detailResult struct {
	payload model.AnimePayload
	from    Source
}

// Detail 获取条目详情，24 小时内命中数据库缓存则不访问外部接口
func (s *CatalogService) Detail(ctx context.Context, animeID string) (model.AnimePayload, Source, error) {
	animeID = strings.TrimSpace(animeID)
	if animeID == "" {
		return nil, "", ErrMissingAnimeID
	}
	id, err := strconv.ParseInt(animeID, 10, 64)
	if err != nil || id <= 0 {
		return nil, "", ErrInvalidAnimeID
	}
	key := strconv.FormatInt(id, 10)

	// 使用 singleflight 避免同一条目并发重复抓取
	val, err := s.shared(ctx, "detail:"+key, func(ctx context.Context) (interface{}, error) {
		return s.detail(ctx, id, key)
	})
	if err != nil {
		return nil, "", err
	}
	res := val.(*detailResult)
	return res.payload, res.from, nil
}

func (s *CatalogService) detail(ctx context.Context, id int64, key string) (*detailResult, error) {
	now := s.now()

	row, err := s.cache.FindDetail(ctx, key)
	if err != nil {
		log.Printf("[CatalogService] 读取详情缓存失败 (animeId: %s): %v", key, err)
	}
	if row != nil && now.UnixMilli()-row.UpdateTime < DetailTTL.Milliseconds() {
		var payload model.AnimePayload
		if err := json.Unmarshal(row.Data, &payload); err == nil && payload != nil {
			return &detailResult{payload: payload.WithID(id), from: FromCache}, nil
		}
		log.Printf("[CatalogService] 详情缓存内容损坏 (animeId: %s)，重新获取", key)
	}

	raw, err := s.source.Subject(ctx, id)
	if err != nil {
		return nil, upstreamError("获取动漫详情失败", err)
	}
	var payload model.AnimePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return nil, upstreamError("获取动漫详情失败", fmt.Errorf("无法解析条目 %d: %v", id, err))
	}

	if err := s.cache.SaveDetail(ctx, key, raw, now.UnixMilli()); err != nil {
		log.Printf("[CatalogService] 写入详情缓存失败 (animeId: %s): %v", key, err)
	}
	return &detailResult{payload: payload.WithID(id), from: FromAPI}, nil
}

// Search 搜索条目；缓存中有未过期的匹配项时直接返回
func (s *CatalogService) Search(ctx context.Context, keyword string, subjectType int) ([]model.AnimePayload, Source, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, "", ErrEmptyKeyword
	}
	if subjectType <= 0 {
		subjectType = DefaultSearchType
	}

	now := s.now().UnixMilli()
	rows, err := s.cache.SearchCached(ctx, keyword, now, SearchCacheLimit)
	if err != nil {
		log.Printf("[CatalogService] 读取搜索缓存失败 (keyword: %s): %v", keyword, err)
	}
	if len(rows) > 0 {
		items := make([]model.AnimePayload, 0, len(rows))
		for _, row := range rows {
			var payload model.AnimePayload
			if err := json.Unmarshal(row.Data, &payload); err != nil || payload == nil {
				payload = model.AnimePayload{"name": row.Name, "name_cn": row.NameCn}
			}
			items = append(items, payload.WithID(row.BangumiID))
		}
		return items, FromCache, nil
	}

	val, err := s.shared(ctx, fmt.Sprintf("search:%d:%s", subjectType, keyword), func(ctx context.Context) (interface{}, error) {
		return s.source.Search(ctx, keyword, subjectType)
	})
	if err != nil {
		return nil, "", upstreamError("搜索失败", err)
	}
	list := val.([]json.RawMessage)

	items := make([]model.AnimePayload, 0, len(list))
	for _, raw := range list {
		var payload model.AnimePayload
		if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
			continue
		}
		items = append(items, payload)
	}

	s.cacheSearch(ctx, list, now)
	return items, FromAPI, nil
}

// cacheSearch 缓存前 20 条结果；重复写入忽略，其他错误只记录日志
func (s *CatalogService) cacheSearch(ctx context.Context, list []json.RawMessage, now int64) {
	if len(list) > SearchCacheLimit {
		list = list[:SearchCacheLimit]
	}
	expire := now + SearchTTL.Milliseconds()
	for _, raw := range list {
		var item model.SearchItem
		if err := json.Unmarshal(raw, &item); err != nil || item.ID == 0 {
			continue
		}
		row := &model.AnimeSearchCache{
			BangumiID:  item.ID,
			Name:       item.Name,
			NameCn:     item.NameCn,
			Data:       datatypes.JSON(append([]byte(nil), raw...)),
			UpdateTime: now,
			ExpireTime: expire,
		}
		err := s.cache.SaveSearchItem(ctx, row)
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			log.Printf("[CatalogService] 写入搜索缓存失败 (bangumiId: %d): %v", item.ID, err)
		}
	}
}

// EpisodesInput 剧集查询参数，Type 为 nil 表示全部类型
type EpisodesInput struct {
	AnimeID string
	Type    *int
	Limit   int
	Offset  int
}

// Episodes 获取剧集列表，进程内 LRU 缓存
func (s *CatalogService) Episodes(ctx context.Context, in EpisodesInput) (*model.EpisodePage, Source, error) {
	animeID := strings.TrimSpace(in.AnimeID)
	if animeID == "" {
		return nil, "", ErrMissingAnimeID
	}
	id, err := strconv.ParseInt(animeID, 10, 64)
	if err != nil || id <= 0 {
		return nil, "", ErrInvalidAnimeID
	}

	q := model.EpisodeQuery{SubjectID: id, Type: -1, Limit: in.Limit, Offset: in.Offset}
	if in.Type != nil && *in.Type >= 0 {
		q.Type = *in.Type
	}
	if q.Limit <= 0 {
		q.Limit = defaultEpisodeLimit
	}
	if q.Limit > maxEpisodeLimit {
		q.Limit = maxEpisodeLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	key := fmt.Sprintf("%d:%d:%d:%d", q.SubjectID, q.Type, q.Limit, q.Offset)
	if page, ok := s.episodes.Get(key); ok {
		return page, FromCache, nil
	}

	val, err := s.shared(ctx, "episodes:"+key, func(ctx context.Context) (interface{}, error) {
		return s.source.Episodes(ctx, q)
	})
	if err != nil {
		return nil, "", upstreamError("获取剧集列表失败", err)
	}
	page := val.(*model.EpisodePage)
	s.episodes.Set(key, page)
	return page, FromAPI, nil
}

// Calendar 获取每日放送，缓存 1 小时
func (s *CatalogService) Calendar(ctx context.Context) ([]model.CalendarDay, Source, error) {
	if v, ok := s.calendar.Get(calendarKey); ok {
		return v.([]model.CalendarDay), FromCache, nil
	}

	val, err := s.shared(ctx, calendarKey, func(ctx context.Context) (interface{}, error) {
		return s.source.Calendar(ctx)
	})
	if err != nil {
		return nil, "", upstreamError("获取每日放送失败", err)
	}
	days := val.([]model.CalendarDay)
	if days == nil {
		days = []model.CalendarDay{}
	}
	s.calendar.Set(calendarKey, days, cache.DefaultExpiration)
	return days, FromAPI, nil
}
