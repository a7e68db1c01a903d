package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/service"
	"github.com/user/animelog/internal/utils"
)

// GetAnimeDetail 条目详情
func (h *Handler) GetAnimeDetail(c *gin.Context) {
	var req animeRequest
	if !bind(c, &req) {
		return
	}
	payload, from, err := h.Catalog.Detail(c.Request.Context(), req.AnimeID.String())
	if err != nil {
		fail(c, "getAnimeDetail", err)
		return
	}
	utils.Success(c, payload, gin.H{"from": from})
}

type searchRequest struct {
	Keyword string `json:"keyword"`
	Type    int    `json:"type"`
}

// SearchAnime 搜索条目
func (h *Handler) SearchAnime(c *gin.Context) {
	var req searchRequest
	if !bind(c, &req) {
		return
	}
	items, from, err := h.Catalog.Search(c.Request.Context(), req.Keyword, req.Type)
	if err != nil {
		fail(c, "searchAnime", err)
		return
	}
	utils.Success(c, items, gin.H{"from": from})
}

type episodesRequest struct {
	AnimeID model.AnimeID `json:"animeId"`
	Type    *int          `json:"type"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// GetAnimeEpisodes 剧集列表
func (h *Handler) GetAnimeEpisodes(c *gin.Context) {
	var req episodesRequest
	if !bind(c, &req) {
		return
	}
	page, from, err := h.Catalog.Episodes(c.Request.Context(), service.EpisodesInput{
		AnimeID: req.AnimeID.String(),
		Type:    req.Type,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		fail(c, "getAnimeEpisodes", err)
		return
	}
	utils.Success(c, page.Data, gin.H{
		"from":   from,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// GetCalendar 每日放送
func (h *Handler) GetCalendar(c *gin.Context) {
	days, from, err := h.Catalog.Calendar(c.Request.Context())
	if err != nil {
		fail(c, "getCalendar", err)
		return
	}
	utils.Success(c, days, gin.H{"from": from})
}
