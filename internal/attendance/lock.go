package attendance

import (
	"context"
	"fmt"
	"sync"
)

// Locker 按 key 串行化同一条记录的修改
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func lockKey(userID, workDate string) string {
	return "attendance:" + userID + ":" + workDate
}

// LocalLocker 进程内的按 key 互斥锁，单实例部署和测试使用
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]*localEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.held[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.held[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrLockBusy, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *LocalLocker) release(key string, e *localEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.held, key)
	}
	l.mu.Unlock()
}
