// Package retry provides the typed failure taxonomy and the single retry
// executor shared by the provider fetchers, the multi-channel collector, and
// the LLM client.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
)

// Strategy selects how the delay between attempts grows.
type Strategy string

const (
	StrategyExponential Strategy = "exponential"
	StrategyLinear      Strategy = "linear"
	StrategyFixed       Strategy = "fixed"
	StrategyImmediate   Strategy = "immediate"
)

// Policy configures the retry executor.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Strategy   Strategy

	// OnRetry, when set, is invoked before each retry sleep with the attempt
	// number (1-based) and the classified failure that triggered it.
	OnRetry func(attempt int, err *ClassifiedError)
}

// DefaultPolicy is a sane baseline for provider API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
		Strategy:   StrategyExponential,
	}
}

// Do runs op up to MaxRetries+1 times. Failures are classified; a
// non-retryable classification aborts immediately. The final error wraps
// the last classified failure and records the attempt count.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	var last *ClassifiedError

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if policy.OnRetry != nil {
				policy.OnRetry(attempt, last)
			}
			select {
			case <-time.After(policy.delay(attempt)):
			case <-ctx.Done():
				return NewError(ErrTimeout, ctx.Err())
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		last = Classify(err)
		if !last.Retryable {
			return last
		}
	}

	return errors.Wrapf(last, "operation failed after %d attempts", policy.MaxRetries+1)
}

// delay computes the sleep before the given attempt (1-based), per strategy,
// with up to 10% random jitter, capped at MaxDelay.
func (p Policy) delay(attempt int) time.Duration {
	var d time.Duration
	switch p.Strategy {
	case StrategyImmediate:
		return 0
	case StrategyFixed:
		d = p.BaseDelay
	case StrategyLinear:
		d = p.BaseDelay * time.Duration(attempt)
	default: // exponential
		mult := p.Multiplier
		if mult <= 1 {
			mult = 2
		}
		d = p.BaseDelay
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * mult)
			if d >= p.MaxDelay {
				break
			}
		}
	}

	d += time.Duration(rand.Float64() * 0.1 * float64(d))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
