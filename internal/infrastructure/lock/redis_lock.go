package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLock 基于 Redis 的分布式锁
//
// 加锁：SET key value NX EX timeout
//   - NX 保证互斥，EX 防止持有者崩溃后死锁
//   - value 记录持有者，释放时校验，避免误删别人的锁
//
// 释放：Lua 脚本保证"校验 + 删除"原子执行
type RedisLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewRedisLock(client *redis.Client, key, value string, expiration time.Duration) *RedisLock {
	return &RedisLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

func (l *RedisLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

func (l *RedisLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewRedisFactory 返回按用户维度建锁的工厂
// holder 用回调的事件 ID，便于追踪是哪次投递持有锁
func NewRedisFactory(client *redis.Client) Factory {
	return func(userID int64, holder string) Lock {
		key := fmt.Sprintf("credit:lock:user:%d", userID)
		return NewRedisLock(client, key, holder, 30*time.Second)
	}
}
