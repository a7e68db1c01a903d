package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/animelog/internal/model"
	"github.com/user/animelog/internal/repository"
	"github.com/user/animelog/internal/utils"
)

const (
	// UIDCounter 展示 ID 计数器名
	UIDCounter = "user_uid"
	// UIDSeed 第一个展示 ID
	UIDSeed int64 = 100000
)

// UserService 用户与身份
type UserService struct {
	users         repository.UserRepository
	counters      repository.CounterRepository
	defaultAvatar string
	now           func() time.Time
}

// NewUserService 创建用户服务
func NewUserService(repos *repository.Repositories, defaultAvatar string) *UserService {
	return &UserService{
		users:         repos.User,
		counters:      repos.Counter,
		defaultAvatar: defaultAvatar,
		now:           time.Now,
	}
}

// LoginInput 登录参数，昵称和头像可选
type LoginInput struct {
	Nickname  string
	Avatar    string
	CheckOnly bool
}

// LoginResult 登录结果；CheckOnly 且用户不存在时 User 为 nil
type LoginResult struct {
	User        *model.User
	IsNewUser   bool
	NeedProfile bool
}

// Login 根据身份令牌解析用户，首次出现时创建
func (s *UserService) Login(ctx context.Context, openID string, in LoginInput) (*LoginResult, error) {
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Avatar = strings.TrimSpace(in.Avatar)

	user, err := s.users.FindByOpenID(ctx, openID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user != nil {
		if err := s.touch(ctx, user, in); err != nil {
			return nil, err
		}
		return &LoginResult{User: user}, nil
	}

	if in.CheckOnly {
		return &LoginResult{IsNewUser: true, NeedProfile: true}, nil
	}
	if in.Nickname == "" || in.Avatar == "" {
		return nil, ErrProfileRequired
	}

	seq, err := s.counters.Next(ctx, UIDCounter, UIDSeed)
	if err != nil {
		return nil, fmt.Errorf("生成UID失败: %w", err)
	}

	now := s.now().UnixMilli()
	user = &model.User{
		ID:            uuid.NewString(),
		OpenID:        openID,
		UID:           strconv.FormatInt(seq, 10),
		Nickname:      in.Nickname,
		Avatar:        in.Avatar,
		CreateTime:    now,
		LastLoginTime: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// 同一身份并发首次登录，另一请求已创建
			existing, ferr := s.users.FindByOpenID(ctx, openID)
			if ferr == nil && existing != nil {
				log.Printf("[UserService] 并发创建用户，使用已存在的记录 uid=%s (丢弃 uid=%s)", existing.UID, user.UID)
				return &LoginResult{User: existing}, nil
			}
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	log.Printf("[UserService] 新用户注册 uid=%s", user.UID)
	return &LoginResult{User: user, IsNewUser: true}, nil
}

// touch 更新已存在用户的登录时间，并同步有变化的资料
func (s *UserService) touch(ctx context.Context, user *model.User, in LoginInput) error {
	now := s.now().UnixMilli()
	patch := model.UserPatch{LastLoginTime: &now}

	if in.Nickname != "" && in.Nickname != user.Nickname {
		patch.Nickname = &in.Nickname
	}
	switch {
	case in.Avatar != "" && in.Avatar != user.Avatar:
		patch.Avatar = &in.Avatar
	case in.Avatar == "" && user.Avatar == model.LegacyAvatarPlaceholder && s.defaultAvatar != "":
		avatar := s.defaultAvatar
		patch.Avatar = &avatar
	}

	if err := s.users.Update(ctx, user.ID, patch); err != nil {
		return fmt.Errorf("更新登录信息失败: %w", err)
	}

	user.LastLoginTime = now
	if patch.Nickname != nil {
		user.Nickname = *patch.Nickname
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	return nil
}

// GetStats 返回用户展示信息与统计
func (s *UserService) GetStats(ctx context.Context, openID string) (*model.StatsView, error) {
	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return nil, err
	}
	return &model.StatsView{
		UID:      user.UID,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
		Stats:    user.Stats,
	}, nil
}

// UpdateProfile 修改昵称和头像，nil 或空串表示不修改
func (s *UserService) UpdateProfile(ctx context.Context, openID string, nickname, avatar *string) error {
	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return err
	}

	var patch model.UserPatch
	if v := trimmed(nickname); v != "" {
		patch.Nickname = &v
	}
	if v := trimmed(avatar); v != "" {
		patch.Avatar = &v
	}
	if patch.IsEmpty() {
		return nil
	}
	if err := s.users.Update(ctx, user.ID, patch); err != nil {
		return fmt.Errorf("更新用户资料失败: %w", err)
	}
	return nil
}

// BindPhone 绑定手机号；同一用户重复绑定同一号码视为成功
func (s *UserService) BindPhone(ctx context.Context, openID, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ErrPhoneRequired
	}
	if !utils.IsCNPhone(phone) {
		return ErrPhoneFormat
	}

	user, err := loadUser(ctx, s.users, openID)
	if err != nil {
		return err
	}

	owner, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("查询手机号失败: %w", err)
	}
	if owner != nil && owner.ID != user.ID {
		return ErrPhoneTaken
	}

	verified := true
	err = s.users.Update(ctx, user.ID, model.UserPatch{Phone: &phone, PhoneVerified: &verified})
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrPhoneTaken
	}
	if err != nil {
		return fmt.Errorf("绑定手机号失败: %w", err)
	}
	return nil
}

// loadUser 按身份令牌查找用户，不存在时返回 ErrUserNotFound
func loadUser(ctx context.Context, users repository.UserRepository, openID string) (*model.User, error) {
	if openID == "" {
		return nil, ErrUserNotFound
	}
	user, err := users.FindByOpenID(ctx, openID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
