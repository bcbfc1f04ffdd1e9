package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy 定义重试策略配置
type Policy struct {
	MaxRetries      int                                               `yaml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`       // 最大重试次数（0 表示不重试）
	InitialDelay    time.Duration                                     `yaml:"initial_delay" json:"initial_delay" env:"INITIAL_DELAY"` // 初始延迟时间
	MaxDelay        time.Duration                                     `yaml:"max_delay" json:"max_delay" env:"MAX_DELAY"`             // 最大延迟时间
	Multiplier      float64                                           `yaml:"multiplier" json:"multiplier" env:"MULTIPLIER"`          // 指数退避倍增因子
	Jitter          bool                                              `yaml:"jitter" json:"jitter" env:"JITTER"`                      // 是否添加随机抖动
	RetryableErrors []error                                           `yaml:"-" json:"-"`                                             // 可重试的错误（为空则重试所有错误）
	OnRetry         func(attempt int, err error, delay time.Duration) `yaml:"-" json:"-"`
}

// DefaultPolicy 返回默认的 oracle 重试策略：共 3 次尝试
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// normalized 修正非法参数
func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	return p
}

// ExhaustedError 重试次数耗尽后返回，保留最后一次错误
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// permanentError 标记不应重试的错误
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 包装错误，使其即使命中 RetryableErrors 也立即返回
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Backoff 基于指数退避的重试器
type Backoff struct {
	policy Policy
	logger *zap.Logger
}

// NewBackoff 创建指数退避重试器
func NewBackoff(policy Policy, logger *zap.Logger) *Backoff {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backoff{
		policy: policy.normalized(),
		logger: logger,
	}
}

// Policy 返回生效的策略
func (b *Backoff) Policy() Policy {
	return b.policy
}

// Do 执行函数，失败时根据策略重试。
// Permanent 包装的错误会被解包后原样返回。
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 0; attempt <= b.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := b.Delay(attempt)

			b.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", b.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if b.policy.OnRetry != nil {
				b.policy.OnRetry(attempt, lastErr, delay)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if !b.isRetryable(lastErr) {
			return lastErr
		}
	}

	b.logger.Debug("retries exhausted",
		zap.Int("attempts", b.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return &ExhaustedError{Attempts: b.policy.MaxRetries + 1, Err: lastErr}
}

// Delay 计算第 attempt 次重试前的等待时间：
// initial * multiplier^(attempt-1)，封顶 MaxDelay，可选 ±25% 抖动
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.policy.InitialDelay) * math.Pow(b.policy.Multiplier, float64(attempt-1))
	if delay > float64(b.policy.MaxDelay) {
		delay = float64(b.policy.MaxDelay)
	}

	if b.policy.Jitter {
		jitter := delay * 0.25
		delay += (rand.Float64()*2 - 1) * jitter
	}

	if delay < float64(b.policy.InitialDelay) {
		delay = float64(b.policy.InitialDelay)
	}
	return time.Duration(delay)
}

func (b *Backoff) isRetryable(err error) bool {
	if len(b.policy.RetryableErrors) == 0 {
		return true
	}
	for _, target := range b.policy.RetryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// DoWithResult is the typed variant of Backoff.Do.
func DoWithResult[T any](ctx context.Context, b *Backoff, fn func(attempt int) (T, error)) (T, error) {
	var result T
	err := b.Do(ctx, func(attempt int) error {
		v, err := fn(attempt)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
