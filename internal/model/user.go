package model

import (
	"github.com/lib/pq"
)

// LegacyAvatarPlaceholder 早期版本写入的默认头像占位符，登录时会被替换
const LegacyAvatarPlaceholder = "cloud://default-avatar.png"

// User 用户模型
type User struct {
	ID            string    `json:"_id" gorm:"primaryKey;size:36"`
	OpenID        string    `json:"-" gorm:"column:open_id;size:128;uniqueIndex;not null"`
	UID           string    `json:"uid" gorm:"column:uid;size:20;uniqueIndex;not null"`
	Nickname      string    `json:"nickname"`
	Avatar        string    `json:"avatar"`
	Phone         *string   `json:"phone" gorm:"size:20;uniqueIndex"`
	PhoneVerified bool      `json:"phoneVerified"`
	CreateTime    int64     `json:"createTime"`
	LastLoginTime int64     `json:"lastLoginTime"`
	Stats         UserStats `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`

	// LikedAnimes 旧版“喜欢”列表，已由收藏记录上的 IsLiked 取代，仅供对账任务迁移
	LikedAnimes pq.StringArray `json:"-" gorm:"type:text[]"`
}

// UserPatch 用户部分更新，nil 字段不修改
type UserPatch struct {
	Nickname      *string
	Avatar        *string
	Phone         *string
	PhoneVerified *bool
	LastLoginTime *int64
	ClearLegacy   bool
}

// IsEmpty 是否没有任何需要更新的字段
func (p UserPatch) IsEmpty() bool {
	return p.Nickname == nil && p.Avatar == nil && p.Phone == nil &&
		p.PhoneVerified == nil && p.LastLoginTime == nil && !p.ClearLegacy
}

// StatsView 用户统计展示
type StatsView struct {
	UID      string    `json:"uid"`
	Nickname string    `json:"nickname"`
	Avatar   string    `json:"avatar"`
	Stats    UserStats `json:"stats"`
}
