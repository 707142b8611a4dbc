package errors

import "errors"

// 跨模块共享的业务错误

// ErrLockHeld 分布式锁已被占用
var ErrLockHeld = errors.New("操作正在进行中，请稍后重试")
