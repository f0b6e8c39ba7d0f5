package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"AttendBot/pkg/logger"
)

const closeTimeout = 15 * time.Second

type closer struct {
	name  string
	close func(context.Context) error
}

var (
	closersMu sync.Mutex
	closers   []closer
)

// register 记录已初始化的组件，Close 时按初始化的逆序关闭
func register(name string, fn func(context.Context) error) {
	closersMu.Lock()
	closers = append(closers, closer{name: name, close: fn})
	closersMu.Unlock()
}

// Close 只关闭本进程 Init 过的连接。
// worker 先停 MQ 消费再断 Redis；scheduler 先停发布，最后关数据库
func Close() error {
	closersMu.Lock()
	pending := closers
	closers = nil
	closersMu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	for i := len(pending) - 1; i >= 0; i-- {
		c := pending[i]
		if err := c.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
			continue
		}
		logger.Logger.Info("Storage closed", zap.String("component", c.name))
	}
	return errors.Join(errs...)
}
