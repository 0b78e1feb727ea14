package util

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrNoDeadline         = errors.New("用户未设置考试日期")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrModuleNotFound     = errors.New("module not found")
	ErrContentNotFound    = errors.New("content item not found")
	ErrEntryNotFound      = errors.New("schedule entry not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ScheduleBusyError 表示该用户的排期正在生成中，携带当前锁的持有时长，
// 由调用方决定何时重试。
type ScheduleBusyError struct {
	Age time.Duration
}

func (e *ScheduleBusyError) Error() string {
	return fmt.Sprintf("schedule generation already in progress (lock held for %s)", e.Age.Round(time.Second))
}

// IsScheduleBusy 判断错误是否为排期锁冲突
func IsScheduleBusy(err error) bool {
	var busy *ScheduleBusyError
	return errors.As(err, &busy)
}
