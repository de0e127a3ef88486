// Package lock 提供跨进程的咨询锁，防止监视器和手动运行同时移动文件。
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrTimeout 表示在等待时间内没有拿到锁。
var ErrTimeout = errors.New("等待进程锁超时")

const retryInterval = 100 * time.Millisecond

// FileLock 是基于锁文件的排他锁。同一进程内的调用方需要自己串行化。
type FileLock struct {
	path    string
	timeout time.Duration
}

func New(path string, timeout time.Duration) *FileLock {
	return &FileLock{path: path, timeout: timeout}
}

func (l *FileLock) Path() string { return l.path }

// Acquire 阻塞直到拿到锁、超时或 ctx 被取消。返回的函数释放锁，可以重复调用。
func (l *FileLock) Acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, fmt.Errorf("无法创建锁文件目录: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("无法打开锁文件 %s: %w", l.path, err)
	}

	var deadline <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		locked, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("无法获取进程锁 %s: %w", l.path, err)
		}
		if locked {
			break
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-deadline:
			f.Close()
			return nil, fmt.Errorf("%w: %s", ErrTimeout, l.path)
		case <-time.After(retryInterval):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		unlock(f)
		f.Close()
	}, nil
}
