package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dshills/codeaudit/internal/providers"
)

var (
	// ErrExhausted is wrapped by the error Do returns when every attempt
	// failed.
	ErrExhausted = errors.New("retries exhausted")
	// ErrEmptyResponse marks an attempt that returned only whitespace.
	ErrEmptyResponse = errors.New("empty response")
)

// Policy decides how many attempts are made, how long to wait between them,
// and which failures end the loop early.
type Policy interface {
	// BackOff returns a fresh wait schedule for one Do call. It must yield
	// at most MaxAttempts-1 waits.
	BackOff() backoff.BackOff
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts() int
	// Permanent reports whether err should stop the loop immediately.
	Permanent(err error) bool
}

// Fixed waits the same duration after every failure. It is the default
// policy: 5 attempts, 10 seconds apart, every failure retried.
type Fixed struct {
	Attempts   int
	Wait       time.Duration
	StopOnAuth bool
}

// DefaultPolicy returns the fixed 5 x 10s policy.
func DefaultPolicy() Fixed {
	return Fixed{Attempts: 5, Wait: 10 * time.Second}
}

func (f Fixed) MaxAttempts() int { return max(f.Attempts, 1) }

func (f Fixed) BackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(f.Wait), uint64(f.MaxAttempts()-1))
}

func (f Fixed) Permanent(err error) bool { return f.StopOnAuth && providers.IsAuthError(err) }

// Exponential doubles the wait after every failure, starting at Initial and
// capped at Max. There is no jitter.
type Exponential struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	StopOnAuth bool
}

func (e Exponential) MaxAttempts() int { return max(e.Attempts, 1) }

func (e Exponential) BackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.Initial
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = e.Max
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(e.MaxAttempts()-1))
}

func (e Exponential) Permanent(err error) bool { return e.StopOnAuth && providers.IsAuthError(err) }

// NewPolicy builds a policy from its config name.
func NewPolicy(strategy string, attempts int, wait, maxWait time.Duration, stopOnAuth bool) (Policy, error) {
	switch strategy {
	case "", "fixed":
		return Fixed{Attempts: attempts, Wait: wait, StopOnAuth: stopOnAuth}, nil
	case "exponential":
		return Exponential{Attempts: attempts, Initial: wait, Max: maxWait, StopOnAuth: stopOnAuth}, nil
	default:
		return nil, fmt.Errorf("unknown retry strategy %q (want fixed or exponential)", strategy)
	}
}

// Op performs one attempt and returns the backend's raw text.
type Op func(ctx context.Context) (string, error)

// Outcome is the result of a successful Do call.
type Outcome struct {
	Text     string
	Attempts int
}

// Controller runs an Op under a Policy.
type Controller struct {
	Policy Policy
	Logger *zap.Logger
	// Timer replaces the real wall-clock timer. Used by tests.
	Timer backoff.Timer
}

// New returns a controller for p. A nil logger discards output.
func New(p Policy, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{Policy: p, Logger: logger}
}

// Do calls op until it returns non-blank text or the policy stops. An error
// or whitespace-only text counts as a failed attempt. Every failure is
// logged. After the final failure there is no wait: N attempts produce N-1
// waits. The returned error wraps ErrExhausted and the last failure, the
// permanent failure itself, or the context's error.
func (c *Controller) Do(ctx context.Context, op Op) (Outcome, error) {
	policy := c.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		out     Outcome
		lastErr error
	)
	attempt := func() error {
		out.Attempts++
		text, err := op(ctx)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err != nil {
			lastErr = err
			logger.Warn("backend attempt failed",
				zap.Int("attempt", out.Attempts),
				zap.Int("max_attempts", policy.MaxAttempts()),
				zap.Bool("rate_limited", providers.IsRateLimitError(err)),
				zap.Error(err))
			if policy.Permanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out.Text = text
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("waiting before retry", zap.Duration("wait", wait), zap.Int("next_attempt", out.Attempts+1))
	}

	b := backoff.WithContext(policy.BackOff(), ctx)
	err := backoff.RetryNotifyWithTimer(attempt, b, notify, c.Timer)
	switch {
	case err == nil:
		return out, nil
	case ctx.Err() != nil:
		return out, ctx.Err()
	case policy.Permanent(lastErr):
		return out, fmt.Errorf("giving up after %d attempts: %w", out.Attempts, lastErr)
	default:
		return out, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, out.Attempts, lastErr)
	}
}
