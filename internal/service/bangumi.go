package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/utils"
)

// BangumiClient Bangumi 开放 API 客户端
type BangumiClient struct {
	base string
	http *utils.HTTPClient
}

// NewBangumiClient 创建 Bangumi 客户端
func NewBangumiClient(base, userAgent string, timeout time.Duration) *BangumiClient {
	return &BangumiClient{
		base: strings.TrimRight(base, "/"),
		http: utils.NewHTTPClient(userAgent, timeout),
	}
}

// Subject 获取条目详情，返回原始 JSON
func (c *BangumiClient) Subject(ctx context.Context, id int64) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, fmt.Sprintf("%s/v0/subjects/%d", c.base, id), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Search 按关键词搜索条目，type=2 为动画
func (c *BangumiClient) Search(ctx context.Context, keyword string, subjectType int) ([]json.RawMessage, error) {
	u := fmt.Sprintf("%s/search/subject/%s?type=%d", c.base, url.PathEscape(keyword), subjectType)
	var resp struct {
		List []json.RawMessage `json:"list"`
	}
	err := c.http.GetJSON(ctx, u, &resp)
	var se *utils.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		// 没有结果时旧版搜索接口返回 404
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.List, nil
}

// Episodes 获取条目的剧集列表
func (c *BangumiClient) Episodes(ctx context.Context, q model.EpisodeQuery) (*model.EpisodePage, error) {
	params := url.Values{}
	params.Set("subject_id", strconv.FormatInt(q.SubjectID, 10))
	if q.Type >= 0 {
		params.Set("type", strconv.Itoa(q.Type))
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))

	var page model.EpisodePage
	if err := c.http.GetJSON(ctx, c.base+"/v0/episodes?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []model.AnimePayload{}
	}
	return &page, nil
}

// Calendar 获取每日放送
func (c *BangumiClient) Calendar(ctx context.Context) ([]model.CalendarDay, error) {
	var days []model.CalendarDay
	if err := c.http.GetJSON(ctx, c.base+"/calendar", &days); err != nil {
		return nil, err
	}
	return days, nil
}
