package llm

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

type rateLimitCompleter struct {
	next    llmtypes.Completer
	limiter *rate.Limiter
}

// WithRateLimit throttles completions to config.RequestsPerMinute, waiting
// for a token before each request. A zero rate returns next unchanged.
func WithRateLimit(next llmtypes.Completer, config llmtypes.RateLimit) llmtypes.Completer {
	if config.RequestsPerMinute <= 0 {
		return next
	}
	burst := config.Burst
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(config.RequestsPerMinute/60)))
	}
	return &rateLimitCompleter{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerMinute/60.0), burst),
	}
}

func (r *rateLimitCompleter) Name() string {
	return r.next.Name()
}

func (r *rateLimitCompleter) Complete(ctx context.Context, req llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}
	return r.next.Complete(ctx, req)
}

// IsRetryable forwards the classification of the wrapped completer
func (r *rateLimitCompleter) IsRetryable(err error) bool {
	return isRetryable(r.next, err)
}
