package lock

import (
	"context"
	"sync"
	"time"
)

// localLockManager 进程内锁表，未启用 Redis 时的单机实现
type localLockManager struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (m *localLockManager) forUser(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

type localLock struct {
	mu *sync.Mutex
}

func (l *localLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		if l.mu.TryLock() {
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

func (l *localLock) Unlock(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}

// NewLocalFactory 返回进程内锁工厂，接口语义与 Redis 版一致
func NewLocalFactory() Factory {
	manager := &localLockManager{locks: make(map[int64]*sync.Mutex)}
	return func(userID int64, holder string) Lock {
		return &localLock{mu: manager.forUser(userID)}
	}
}
