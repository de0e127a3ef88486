package mover

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryOptions 控制对临时性文件锁错误的重试。
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// withRetry 只重试 isTransient 判定为临时性的错误，其余错误直接返回。
func withRetry(ctx context.Context, logger *slog.Logger, opts RetryOptions, operation func() error) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("重试 %d 次后仍失败: %w", opts.MaxAttempts, err)
		}

		logger.Warn("文件暂时被占用，稍后重试", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * opts.Multiplier)
			if opts.MaxDelay > 0 && delay > opts.MaxDelay {
				delay = opts.MaxDelay
			}
		}
	}
}
