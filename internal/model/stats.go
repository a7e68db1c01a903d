package model

// UserStats 用户统计（冗余计数，随收藏变更同步维护）
type UserStats struct {
	TotalAnime int64 `json:"totalAnime"`
	Watching   int64 `json:"watching"`
	Watched    int64 `json:"watched"`
	Wishlist   int64 `json:"wishlist"`
	TotalLikes int64 `json:"totalLikes"`
}

// StatsDelta 一次收藏变更对统计的增量
type StatsDelta struct {
	TotalAnime int64
	Watching   int64
	Watched    int64
	Wishlist   int64
	TotalLikes int64
}

// AddStatus 为某个状态计数加上 n
func (d *StatsDelta) AddStatus(status CollectionStatus, n int64) {
	switch status {
	case StatusWatching:
		d.Watching += n
	case StatusWatched:
		d.Watched += n
	case StatusWishlist:
		d.Wishlist += n
	}
}

// IsZero 增量是否为空
func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// Apply 将增量应用到统计上
func (s *UserStats) Apply(d StatsDelta) {
	s.TotalAnime += d.TotalAnime
	s.Watching += d.Watching
	s.Watched += d.Watched
	s.Wishlist += d.Wishlist
	s.TotalLikes += d.TotalLikes
}

// Columns 返回增量对应的列名与数值（只包含非零项）
func (d StatsDelta) Columns() map[string]int64 {
	cols := make(map[string]int64, 5)
	add := func(name string, v int64) {
		if v != 0 {
			cols[name] = v
		}
	}
	add("stats_total_anime", d.TotalAnime)
	add("stats_watching", d.Watching)
	add("stats_watched", d.Watched)
	add("stats_wishlist", d.Wishlist)
	add("stats_total_likes", d.TotalLikes)
	return cols
}

// Sub 返回 d - o
func (d StatsDelta) Sub(o StatsDelta) StatsDelta {
	return StatsDelta{
		TotalAnime: d.TotalAnime - o.TotalAnime,
		Watching:   d.Watching - o.Watching,
		Watched:    d.Watched - o.Watched,
		Wishlist:   d.Wishlist - o.Wishlist,
		TotalLikes: d.TotalLikes - o.TotalLikes,
	}
}

// Contribution 单条收藏对统计的贡献
func Contribution(rec *Collection) StatsDelta {
	d := StatsDelta{TotalAnime: 1}
	d.AddStatus(rec.Status, 1)
	if rec.IsLiked {
		d.TotalLikes = 1
	}
	return d
}

// Tally 根据收藏记录重新计算统计
func Tally(records []*Collection) UserStats {
	var stats UserStats
	for _, rec := range records {
		stats.Apply(Contribution(rec))
	}
	return stats
}
