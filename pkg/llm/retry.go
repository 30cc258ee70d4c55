package llm

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"

	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

type retryCompleter struct {
	next   llmtypes.Completer
	config llmtypes.RetryConfig
}

// WithRetry retries failed completions according to config. With one
// attempt or fewer next is returned unchanged.
func WithRetry(next llmtypes.Completer, config llmtypes.RetryConfig) llmtypes.Completer {
	if config.Attempts <= 1 {
		return next
	}
	return &retryCompleter{next: next, config: config}
}

func (r *retryCompleter) Name() string {
	return r.next.Name()
}

func (r *retryCompleter) Complete(ctx context.Context, req llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	var response *llmtypes.CompletionResponse
	attempts := 0

	initialDelay := time.Duration(r.config.InitialDelay) * time.Millisecond
	maxDelay := time.Duration(r.config.MaxDelay) * time.Millisecond

	var delayType retry.DelayTypeFunc
	switch r.config.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	case "exponential":
		fallthrough
	default:
		delayType = retry.BackOffDelay
	}

	err := retry.Do(
		func() error {
			attempts++
			resp, apiErr := r.next.Complete(ctx, req)
			if apiErr != nil {
				return apiErr
			}
			response = resp
			return nil
		},
		retry.RetryIf(func(err error) bool {
			return isRetryable(r.next, err)
		}),
		retry.Attempts(uint(r.config.Attempts)),
		retry.Delay(initialDelay),
		retry.DelayType(delayType),
		retry.MaxDelay(maxDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("attempt", n+1).
				WithField("max_attempts", r.config.Attempts).
				Warnf("retrying %s API call", r.next.Name())
		}),
	)
	if err != nil {
		if attempts > 1 {
			return nil, errors.Wrapf(err, "all %d attempts failed", attempts)
		}
		return nil, err
	}
	return response, nil
}

// IsRetryable forwards the classification of the wrapped completer
func (r *retryCompleter) IsRetryable(err error) bool {
	return isRetryable(r.next, err)
}

// isRetryable asks the completer to classify err when it can. Cancellation
// and an open circuit are never retried.
func isRetryable(completer llmtypes.Completer, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var cfgErr *llmtypes.ConfigurationError
	if errors.As(err, &cfgErr) {
		return false
	}
	if classifier, ok := completer.(llmtypes.RetryClassifier); ok {
		return classifier.IsRetryable(err)
	}
	return true
}
