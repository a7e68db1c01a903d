package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/animelog/internal/middleware"
	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/service"
	"github.com/user/animelog/internal/utils"
)

type animeRequest struct {
	AnimeID model.AnimeID `json:"animeId"`
}

type addCollectionRequest struct {
	AnimeID    model.AnimeID `json:"animeId"`
	AnimeName  string        `json:"animeName"`
	AnimeTitle string        `json:"animeTitle"` // 旧版客户端字段名
	AnimeCover string        `json:"animeCover"`
	// 缺省为 wishlist
	Status        model.CollectionStatus `json:"status" binding:"omitempty,oneof=wishlist watching watched"`
	TotalEpisodes *int                   `json:"totalEpisodes" binding:"omitempty,min=0"`
}

// AddCollection 添加收藏，已收藏时更新状态
func (h *Handler) AddCollection(c *gin.Context) {
	var req addCollectionRequest
	if !bind(c, &req) {
		return
	}
	name := req.AnimeName
	if name == "" {
		name = req.AnimeTitle
	}

	res, err := h.Collections.Add(c.Request.Context(), middleware.GetOpenID(c), service.AddInput{
		AnimeID:       req.AnimeID.String(),
		AnimeName:     name,
		AnimeCover:    req.AnimeCover,
		Status:        req.Status,
		TotalEpisodes: req.TotalEpisodes,
	})
	if err != nil {
		fail(c, "addCollection", err)
		return
	}
	if res.Created {
		utils.SuccessMessage(c, "添加成功")
		return
	}
	utils.SuccessMessage(c, "状态已更新")
}

// RemoveCollection 移除收藏
func (h *Handler) RemoveCollection(c *gin.Context) {
	var req animeRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Collections.Remove(c.Request.Context(), middleware.GetOpenID(c), req.AnimeID.String()); err != nil {
		fail(c, "removeCollection", err)
		return
	}
	utils.SuccessMessage(c, "移除成功")
}

type updateStatusRequest struct {
	AnimeID model.AnimeID          `json:"animeId"`
	Status  model.CollectionStatus `json:"status" binding:"omitempty,oneof=wishlist watching watched"`
}

// UpdateCollectionStatus 修改收藏状态
func (h *Handler) UpdateCollectionStatus(c *gin.Context) {
	var req updateStatusRequest
	if !bind(c, &req) {
		return
	}
	changed, err := h.Collections.UpdateStatus(c.Request.Context(), middleware.GetOpenID(c), req.AnimeID.String(), req.Status)
	if err != nil {
		fail(c, "updateCollectionStatus", err)
		return
	}
	if !changed {
		utils.SuccessMessage(c, "状态未改变")
		return
	}
	utils.SuccessMessage(c, "更新成功")
}

type updateProgressRequest struct {
	AnimeID        model.AnimeID `json:"animeId"`
	CurrentEpisode *int          `json:"currentEpisode" binding:"omitempty,min=0"`
	Episode        *int          `json:"episode" binding:"omitempty,min=0"`
	TotalEpisodes  *int          `json:"totalEpisodes" binding:"omitempty,min=0"`
}

// UpdateWatchProgress 更新观看进度
func (h *Handler) UpdateWatchProgress(c *gin.Context) {
	var req updateProgressRequest
	if !bind(c, &req) {
		return
	}
	episode := req.CurrentEpisode
	if episode == nil {
		episode = req.Episode
	}

	err := h.Collections.UpdateProgress(c.Request.Context(), middleware.GetOpenID(c), service.ProgressInput{
		AnimeID:       req.AnimeID.String(),
		Episode:       episode,
		TotalEpisodes: req.TotalEpisodes,
	})
	if err != nil {
		fail(c, "updateWatchProgress", err)
		return
	}
	utils.SuccessMessage(c, "更新成功")
}

// ToggleLike 切换喜欢
func (h *Handler) ToggleLike(c *gin.Context) {
	var req animeRequest
	if !bind(c, &req) {
		return
	}
	liked, err := h.Collections.ToggleLike(c.Request.Context(), middleware.GetOpenID(c), req.AnimeID.String())
	if err != nil {
		fail(c, "toggleLike", err)
		return
	}
	message := "已取消喜欢"
	if liked {
		message = "已喜欢"
	}
	utils.Success(c, nil, gin.H{"isLiked": liked, "message": message})
}

type listCollectionsRequest struct {
	Status   model.CollectionStatus `json:"status" binding:"omitempty,oneof=wishlist watching watched"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
}

// GetMyCollections 收藏列表
func (h *Handler) GetMyCollections(c *gin.Context) {
	var req listCollectionsRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Collections.List(c.Request.Context(), middleware.GetOpenID(c), service.ListInput{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		fail(c, "getMyCollections", err)
		return
	}
	utils.Success(c, res.Items, gin.H{
		"total":      res.Total,
		"page":       res.Page,
		"pageSize":   res.PageSize,
		"totalPages": res.TotalPages,
	})
}

// GetCollectionDetail 单条收藏，未收藏时 data 为 null
func (h *Handler) GetCollectionDetail(c *gin.Context) {
	var req animeRequest
	if !bind(c, &req) {
		return
	}
	rec, err := h.Collections.Get(c.Request.Context(), middleware.GetOpenID(c), req.AnimeID.String())
	if err != nil {
		fail(c, "getCollectionDetail", err)
		return
	}
	if rec == nil {
		utils.SuccessNull(c, gin.H{"isLiked": false})
		return
	}
	utils.Success(c, rec, gin.H{"isLiked": rec.IsLiked})
}
