package lock

import (
	"context"
	"errors"
	"time"
)

var ErrLockFailed = errors.New("获取入账锁失败")

// Lock 入账锁
// 同一用户的并发回调必须串行入账，否则读余额和写流水之间会出现丢失更新
type Lock interface {
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Unlock(ctx context.Context) error
}

// Factory 按用户维度创建锁
//
// 为什么按用户维度？全局锁并发度太低；按事件维度锁不住同一用户的两个不同事件。
// 按用户加锁后不同用户可以并发入账，同一用户串行——这正是需要的粒度
type Factory func(userID int64, holder string) Lock
