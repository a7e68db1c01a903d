package service

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// AppError 业务错误，Message 直接返回给调用方
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同类同消息即视为相同，便于 errors.Is 比较哨兵错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func validationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func upstreamError(msg string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: msg, Err: err}
}

var (
	ErrUserNotFound       = &AppError{Kind: KindNotFound, Message: "用户不存在"}
	ErrCollectionNotFound = &AppError{Kind: KindNotFound, Message: "收藏不存在"}
	ErrProgressNoRecord   = &AppError{Kind: KindNotFound, Message: "收藏不存在，请先添加收藏"}
	ErrInvalidStatus      = &AppError{Kind: KindValidation, Message: "无效的状态值"}
	ErrMissingParams      = &AppError{Kind: KindValidation, Message: "参数不完整"}
	ErrMissingAnimeID     = &AppError{Kind: KindValidation, Message: "动漫ID不能为空"}
	ErrInvalidAnimeID     = &AppError{Kind: KindValidation, Message: "动漫ID格式不正确"}
	ErrInvalidEpisode     = &AppError{Kind: KindValidation, Message: "集数不能为负数"}
	ErrEmptyKeyword       = &AppError{Kind: KindValidation, Message: "搜索关键词不能为空"}
	ErrProfileRequired    = &AppError{Kind: KindValidation, Message: "请先设置昵称和头像"}
	ErrPhoneRequired      = &AppError{Kind: KindValidation, Message: "手机号不能为空"}
	ErrPhoneFormat        = &AppError{Kind: KindValidation, Message: "手机号格式不正确"}
	ErrPhoneTaken         = &AppError{Kind: KindConflict, Message: "该手机号已被绑定"}
	ErrUnknownAction      = &AppError{Kind: KindValidation, Message: "未知的操作类型，支持：initCounters, initAll, checkStatus, reconcileStats"}
)

// KindOf 返回错误分类，非 AppError 一律视为内部错误
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
