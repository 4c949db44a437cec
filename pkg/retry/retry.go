// Package retry 提供注入到存储适配器中的重试策略。
package retry

import (
	"context"
	"errors"
	"starkeys-go/pkg/log"
	"time"
)

// ErrInvalidMaxAttempts 在 MaxAttempts <= 0 时返回。
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// Policy 描述一次操作的重试方式。
// 每次失败后先调用 Reconnect（若设置），再按 BaseDelay * 2^(n-1) 退避。
// MaxAttempts 为 1 时只执行一次，但失败后依然会触发 Reconnect。
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Reconnect   func(ctx context.Context) error
}

// Do 执行 op，返回最后一次的错误。
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				log.Debugf("[Retry] 第 %d 次尝试成功", attempt)
			}
			return nil
		}
		log.Warnw("[Retry] 操作失败", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		if p.Reconnect != nil {
			if err := p.Reconnect(ctx); err != nil {
				log.Error("[Retry] 重新连接失败", err)
			}
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
