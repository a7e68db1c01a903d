package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CollectionService 收藏管理，用户统计由收藏仓库随写入一并维护
type CollectionService struct {
	users       repository.UserRepository
	collections repository.CollectionRepository
	history     repository.HistoryRepository
	now         func() time.Time
}

// NewCollectionService 创建收藏服务
func NewCollectionService(repos *repository.Repositories) *CollectionService {
	return &CollectionService{
		users:       repos.User,
		collections: repos.Collection,
		history:     repos.History,
		now:         time.Now,
	}
}

// AddInput 添加收藏参数
type AddInput struct {
	AnimeID       string
	AnimeName     string
	AnimeCover    string
	Status        model.CollectionStatus
	TotalEpisodes *int
}

// AddResult Created 为 false 表示已有记录，本次只修改了状态
type AddResult struct {
	Collection *model.Collection
	Created    bool
}

// Add 添加收藏；已收藏时改为更新状态
func (s *CollectionService) Add(ctx context.Context, openID string, in AddInput) (*AddResult, error) {
	in.AnimeID = strings.TrimSpace(in.AnimeID)
	in.AnimeName = strings.TrimSpace(in.AnimeName)
	if in.AnimeID == "" || in.AnimeName == "" {
		return nil, ErrMissingParams
	}
	if in.Status == "" {
		in.Status = model.StatusWishlist
	}
	if !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.TotalEpisodes != nil && *in.TotalEpisodes < 0 {
		return nil, ErrInvalidEpisode
	}

	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return nil, err
	}

	existing, err := s.collections.Find(ctx, user.ID, in.AnimeID)
	if err != nil {
		return nil, fmt.Errorf("查询收藏失败: %w", err)
	}
	if existing == nil {
		rec, err := s.create(ctx, user.ID, in)
		if err == nil {
			return &AddResult{Collection: rec, Created: true}, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// 并发添加同一条目，按已存在处理
		existing, err = s.collections.Find(ctx, user.ID, in.AnimeID)
		if err != nil {
			return nil, fmt.Errorf("查询收藏失败: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("收藏写入冲突: %w", repository.ErrDuplicate)
		}
	}

	if err := s.changeStatus(ctx, existing, in.Status); err != nil {
		return nil, err
	}
	return &AddResult{Collection: existing}, nil
}

func (s *CollectionService) create(ctx context.Context, userID string, in AddInput) (*model.Collection, error) {
	now := s.now().UnixMilli()
	rec := &model.Collection{
		ID:         uuid.NewString(),
		UserID:     userID,
		AnimeID:    in.AnimeID,
		AnimeName:  in.AnimeName,
		AnimeCover: in.AnimeCover,
		Status:     in.Status,
		CreateTime: now,
		UpdateTime: now,
	}
	if in.TotalEpisodes != nil {
		rec.TotalEpisodes = *in.TotalEpisodes
	}
	if err := s.collections.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("添加收藏失败: %w", err)
	}
	return rec, nil
}

// changeStatus 覆盖状态与更新时间
func (s *CollectionService) changeStatus(ctx context.Context, rec *model.Collection, status model.CollectionStatus) error {
	now := s.now().UnixMilli()
	if err := s.collections.Update(ctx, rec.ID, model.CollectionPatch{Status: &status, UpdateTime: now}); err != nil {
		return fmt.Errorf("更新收藏状态失败: %w", err)
	}
	rec.Status = status
	rec.UpdateTime = now
	return nil
}

// UpdateStatus 修改已有收藏的状态，返回状态是否发生变化
func (s *CollectionService) UpdateStatus(ctx context.Context, openID, animeID string, status model.CollectionStatus) (bool, error) {
	animeID = strings.TrimSpace(animeID)
	if animeID == "" || status == "" {
		return false, ErrMissingParams
	}
	if !status.Valid() {
		return false, ErrInvalidStatus
	}

	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return false, err
	}
	rec, err := s.find(ctx, user.ID, animeID, ErrCollectionNotFound)
	if err != nil {
		return false, err
	}
	if rec.Status == status {
		return false, nil
	}
	if err := s.changeStatus(ctx, rec, status); err != nil {
		return false, err
	}
	return true, nil
}

// ProgressInput 观看进度参数
type ProgressInput struct {
	AnimeID       string
	Episode       *int
	TotalEpisodes *int
}

// UpdateProgress 设置观看进度并追加一条观看历史
func (s *CollectionService) UpdateProgress(ctx context.Context, openID string, in ProgressInput) error {
	in.AnimeID = strings.TrimSpace(in.AnimeID)
	if in.AnimeID == "" || in.Episode == nil {
		return ErrMissingParams
	}
	if *in.Episode < 0 || (in.TotalEpisodes != nil && *in.TotalEpisodes < 0) {
		return ErrInvalidEpisode
	}

	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return err
	}
	rec, err := s.find(ctx, user.ID, in.AnimeID, ErrProgressNoRecord)
	if err != nil {
		return err
	}

	now := s.now().UnixMilli()
	patch := model.CollectionPatch{
		CurrentEpisode: in.Episode,
		TotalEpisodes:  in.TotalEpisodes,
		UpdateTime:     now,
	}
	if err := s.collections.Update(ctx, rec.ID, patch); err != nil {
		return fmt.Errorf("更新观看进度失败: %w", err)
	}

	h := &model.WatchHistory{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		AnimeID:   in.AnimeID,
		Episode:   *in.Episode,
		WatchTime: now,
	}
	if err := s.history.Append(ctx, h); err != nil {
		return fmt.Errorf("写入观看历史失败: %w", err)
	}
	return nil
}

// ToggleLike 切换喜欢状态，返回切换后的值
func (s *CollectionService) ToggleLike(ctx context.Context, openID, animeID string) (bool, error) {
	animeID = strings.TrimSpace(animeID)
	if animeID == "" {
		return false, ErrMissingAnimeID
	}

	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return false, err
	}
	rec, err := s.find(ctx, user.ID, animeID, ErrCollectionNotFound)
	if err != nil {
		return false, err
	}

	liked := !rec.IsLiked
	patch := model.CollectionPatch{IsLiked: &liked, UpdateTime: s.now().UnixMilli()}
	if err := s.collections.Update(ctx, rec.ID, patch); err != nil {
		return false, fmt.Errorf("更新喜欢状态失败: %w", err)
	}
	return liked, nil
}

// Remove 删除收藏，统计一次性扣减
func (s *CollectionService) Remove(ctx context.Context, openID, animeID string) error {
	animeID = strings.TrimSpace(animeID)
	if animeID == "" {
		return ErrMissingAnimeID
	}

	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return err
	}
	rec, err := s.find(ctx, user.ID, animeID, ErrCollectionNotFound)
	if err != nil {
		return err
	}

	deleted, err := s.collections.Delete(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("删除收藏失败: %w", err)
	}
	if !deleted {
		return ErrCollectionNotFound
	}
	return nil
}

// Get 查询单条收藏，不存在时返回 nil 而非错误
func (s *CollectionService) Get(ctx context.Context, openID, animeID string) (*model.Collection, error) {
	animeID = strings.TrimSpace(animeID)
	if animeID == "" {
		return nil, ErrMissingAnimeID
	}
	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return nil, err
	}
	rec, err := s.collections.Find(ctx, user.ID, animeID)
	if err != nil {
		return nil, fmt.Errorf("查询收藏失败: %w", err)
	}
	return rec, nil
}

// ListInput 收藏列表查询
type ListInput struct {
	Status   model.CollectionStatus
	Page     int
	PageSize int
}

// ListResult 收藏列表分页结果
type ListResult struct {
	Items      []*model.Collection
	Total      int64
	Page       int
	PageSize   int
	TotalPages int64
}

// List 按更新时间倒序分页列出收藏
func (s *CollectionService) List(ctx context.Context, openID string, in ListInput) (*ListResult, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	page, pageSize := normalizePage(in.Page, in.PageSize)

	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return nil, err
	}

	items, err := s.collections.List(ctx, user.ID, in.Status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("查询收藏列表失败: %w", err)
	}
	total, err := s.collections.CountByUser(ctx, user.ID, in.Status)
	if err != nil {
		return nil, fmt.Errorf("统计收藏数量失败: %w", err)
	}
	if items == nil {
		items = []*model.Collection{}
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + int64(pageSize) - 1) / int64(pageSize),
	}, nil
}

func normalizePage(page, pageSize int) (int, int) {
	switch {
	case pageSize == 0:
		pageSize = DefaultPageSize
	case pageSize < 1:
		pageSize = 1
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	// 保证偏移量 (page-1)*pageSize 不溢出
	maxPage := math.MaxInt32 / pageSize
	switch {
	case page < 1:
		page = 1
	case page > maxPage:
		page = maxPage
	}
	return page, pageSize
}

func (s *CollectionService) find(ctx context.Context, userID, animeID string, notFound error) (*model.Collection, error) {
	rec, err := s.collections.Find(ctx, userID, animeID)
	if err != nil {
		return nil, fmt.Errorf("查询收藏失败: %w", err)
	}
	if rec == nil {
		return nil, notFound
	}
	return rec, nil
}
