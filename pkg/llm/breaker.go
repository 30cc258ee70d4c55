package llm

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"

	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

// BreakerCompleter fails fast once the wrapped completer has failed
// repeatedly, probing it again after the configured timeout.
type BreakerCompleter struct {
	next    llmtypes.Completer
	breaker *gobreaker.CircuitBreaker[*llmtypes.CompletionResponse]
}

// WithCircuitBreaker wraps next with a circuit breaker. Zero values in config
// fall back to 5 consecutive failures, a 30s open period and a 60s interval.
func WithCircuitBreaker(next llmtypes.Completer, config llmtypes.BreakerConfig) *BreakerCompleter {
	maxFailures := config.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := config.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[*llmtypes.CompletionResponse](gobreaker.Settings{
		Name:        "llm:" + next.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.G(context.Background()).
				WithField("breaker", name).
				WithField("from", from.String()).
				WithField("to", to.String()).
				Warn("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// A cancelled request says nothing about the health of the backend
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerCompleter{next: next, breaker: cb}
}

func (b *BreakerCompleter) Name() string {
	return b.next.Name()
}

func (b *BreakerCompleter) Complete(ctx context.Context, req llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	resp, err := b.breaker.Execute(func() (*llmtypes.CompletionResponse, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrapf(err, "provider %q circuit open", b.next.Name())
		}
		return nil, err
	}
	return resp, nil
}

// IsRetryable forwards the classification of the wrapped completer
func (b *BreakerCompleter) IsRetryable(err error) bool {
	return isRetryable(b.next, err)
}

// State returns the current circuit breaker state
func (b *BreakerCompleter) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the current failure and success counts
func (b *BreakerCompleter) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}
