package model

// CollectionStatus 收藏状态
type CollectionStatus string

const (
	StatusWishlist CollectionStatus = "wishlist" // 想看
	StatusWatching CollectionStatus = "watching" // 在看
	StatusWatched  CollectionStatus = "watched"  // 看过
)

// Valid 是否为合法状态
func (s CollectionStatus) Valid() bool {
	switch s {
	case StatusWishlist, StatusWatching, StatusWatched:
		return true
	}
	return false
}

// Collection 收藏记录，(UserID, AnimeID) 唯一
type Collection struct {
	ID             string           `json:"_id" gorm:"primaryKey;size:36"`
	UserID         string           `json:"userId" gorm:"size:36;not null;uniqueIndex:idx_collection_user_anime;index:idx_collection_user_update,priority:1"`
	AnimeID        string           `json:"animeId" gorm:"size:32;not null;uniqueIndex:idx_collection_user_anime"`
	AnimeName      string           `json:"animeName"`
	AnimeCover     string           `json:"animeCover"`
	Status         CollectionStatus `json:"status" gorm:"size:16;not null;index"`
	CurrentEpisode int              `json:"currentEpisode"`
	TotalEpisodes  int              `json:"totalEpisodes"`
	IsLiked        bool             `json:"isLiked"`
	CreateTime     int64            `json:"createTime"`
	UpdateTime     int64            `json:"updateTime" gorm:"index:idx_collection_user_update,priority:2"`

	// 兼容字段，目前没有任何操作写入
	Note     string `json:"note,omitempty"`
	MyRating *int   `json:"myRating,omitempty"`
}

// CollectionPatch 收藏部分更新，nil 字段不修改
type CollectionPatch struct {
	Status         *CollectionStatus
	CurrentEpisode *int
	TotalEpisodes  *int
	IsLiked        *bool
	UpdateTime     int64
}

// ApplyTo 将补丁写入记录
func (p CollectionPatch) ApplyTo(rec *Collection) {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.CurrentEpisode != nil {
		rec.CurrentEpisode = *p.CurrentEpisode
	}
	if p.TotalEpisodes != nil {
		rec.TotalEpisodes = *p.TotalEpisodes
	}
	if p.IsLiked != nil {
		rec.IsLiked = *p.IsLiked
	}
	rec.UpdateTime = p.UpdateTime
}

// WatchHistory 观看历史（只追加）
type WatchHistory struct {
	ID        string `json:"_id" gorm:"primaryKey;size:36"`
	UserID    string `json:"userId" gorm:"size:36;not null;index"`
	AnimeID   string `json:"animeId" gorm:"size:32;not null"`
	Episode   int    `json:"episode"`
	WatchTime int64  `json:"watchTime"`
}

// TableName 表名
func (WatchHistory) TableName() string {
	return "watch_history"
}

// Counter 序列号计数器
type Counter struct {
	Name       string `json:"_id" gorm:"primaryKey;size:32"`
	Seq        int64  `json:"seq"`
	CreateTime int64  `json:"createTime"`
	UpdateTime int64  `json:"updateTime"`
}
