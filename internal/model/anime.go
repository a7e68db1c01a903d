package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// AnimeID 外部目录中的条目 ID，客户端可能传数字也可能传字符串
type AnimeID string

// UnmarshalJSON 同时接受 JSON 数字和字符串
func (id *AnimeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = AnimeID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("animeId 必须是数字或字符串: %w", err)
	}
	*id = AnimeID(n.String())
	return nil
}

// String 字符串形式
func (id AnimeID) String() string {
	return string(id)
}

// AnimePayload 外部目录返回的原始条目数据
type AnimePayload map[string]any

// WithID 返回带有规范化 id 字段的副本
func (p AnimePayload) WithID(id int64) AnimePayload {
	out := make(AnimePayload, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out["id"] = id
	return out
}

// AnimeCache 条目详情缓存，按 AnimeID 唯一
type AnimeCache struct {
	ID         string         `json:"_id" gorm:"primaryKey;size:36"`
	AnimeID    string         `json:"animeId" gorm:"size:32;uniqueIndex;not null"`
	Data       datatypes.JSON `json:"data"`
	CreateTime int64          `json:"createTime"`
	UpdateTime int64          `json:"updateTime"`
}

// TableName 表名
func (AnimeCache) TableName() string {
	return "anime_cache"
}

// AnimeSearchCache 搜索结果缓存，每个条目一行
type AnimeSearchCache struct {
	ID         string         `json:"_id" gorm:"primaryKey;size:36"`
	BangumiID  int64          `json:"bangumiId" gorm:"uniqueIndex;not null"`
	Name       string         `json:"name" gorm:"index"`
	NameCn     string         `json:"nameCn" gorm:"index"`
	Data       datatypes.JSON `json:"data"`
	UpdateTime int64          `json:"updateTime"`
	ExpireTime int64          `json:"expireTime" gorm:"index"`
}

// TableName 表名
func (AnimeSearchCache) TableName() string {
	return "anime_search_cache"
}

// SearchItem 搜索接口返回的单个条目（只解析需要入库的字段）
type SearchItem struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	NameCn string `json:"name_cn"`
}

// EpisodeQuery 剧集列表查询
type EpisodeQuery struct {
	SubjectID int64
	Type      int
	Limit     int
	Offset    int
}

// EpisodePage 剧集列表分页结果
type EpisodePage struct {
	Data   []AnimePayload `json:"data"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// CalendarWeekday 星期
type CalendarWeekday struct {
	En string `json:"en"`
	Cn string `json:"cn"`
	Ja string `json:"ja"`
	ID int    `json:"id"`
}

// CalendarDay 每日放送
type CalendarDay struct {
	Weekday CalendarWeekday `json:"weekday"`
	Items   []AnimePayload  `json:"items"`
}
