// Package retry computes backoff delays and retries transient failures.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/datainit/internal/config"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retry attempts after the first failure
}

// DefaultPolicy returns linear backoff from 1s, capped at 30s, with no retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second}
}

// FromConfig builds a policy from configuration; zero values fall back to defaults.
func FromConfig(c config.RetryConfig) Policy {
	p := DefaultPolicy()
	if c.MaxRetries > 0 {
		p.MaxRetries = c.MaxRetries
	}
	if c.Initial > 0 {
		p.Initial = c.Initial
	}
	if c.Max > 0 {
		p.Max = c.Max
	}
	switch c.Backoff {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = c.Backoff
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial << (retryCount - 1)
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Do calls fn until it succeeds, returns an error not marked retryable, or the
// retries run out. The last error is returned.
func Do(ctx context.Context, clock clockwork.Clock, p Policy, op string, fn func(ctx context.Context) error) error {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		ce, ok := errors.AsClassified(err)
		if !ok || attempt >= p.MaxRetries {
			return err
		}
		switch ce.RetryStrategy() {
		case errors.RetryBackoff, errors.RetryImmediate:
		default:
			return err
		}

		delay := p.Delay(attempt + 1)
		if ce.RetryStrategy() == errors.RetryImmediate {
			delay = 0
		}
		slog.WarnContext(ctx, "Retrying after transient failure",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		timer := clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.Chan():
		}
	}
}
