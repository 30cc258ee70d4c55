package llm

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

// flakyCompleter fails the first failures calls, then succeeds
type flakyCompleter struct {
	failures int
	err      error
	calls    int
}

func (f *flakyCompleter) Name() string {
	return "flaky"
}

func (f *flakyCompleter) Complete(ctx context.Context, _ llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.calls <= f.failures {
		return nil, f.err
	}
	return textResponse("ok"), nil
}

func (f *flakyCompleter) IsRetryable(err error) bool {
	return !errors.Is(err, errPermanent)
}

func fastRetry(attempts int) llmtypes.RetryConfig {
	return llmtypes.RetryConfig{Attempts: attempts, InitialDelay: 1, MaxDelay: 5, BackoffType: "fixed"}
}

func TestWithRetrySingleAttemptIsIdentity(t *testing.T) {
	next := &flakyCompleter{}
	assert.Same(t, next, WithRetry(next, fastRetry(1)))
	assert.Same(t, next, WithRetry(next, llmtypes.RetryConfig{}))
}

func TestWithRetryRecovers(t *testing.T) {
	next := &flakyCompleter{failures: 2, err: errTransient}
	completer := WithRetry(next, fastRetry(3))

	resp, err := completer.Complete(context.Background(), llmtypes.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", llmtypes.JoinText(resp.Content))
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, "flaky", completer.Name())
}

func TestWithRetryGivesUp(t *testing.T) {
	next := &flakyCompleter{failures: 10, err: errTransient}
	completer := WithRetry(next, llmtypes.RetryConfig{Attempts: 3, InitialDelay: 1, MaxDelay: 2, BackoffType: "exponential"})

	_, err := completer.Complete(context.Background(), llmtypes.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errTransient))
	assert.Contains(t, err.Error(), "all 3 attempts failed")
	assert.Equal(t, 3, next.calls)
}

func TestWithRetrySkipsPermanentErrors(t *testing.T) {
	next := &flakyCompleter{failures: 10, err: errPermanent}
	completer := WithRetry(next, fastRetry(5))

	_, err := completer.Complete(context.Background(), llmtypes.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errPermanent))
	assert.Equal(t, 1, next.calls)
}

func TestIsRetryable(t *testing.T) {
	next := &flakyCompleter{}
	assert.False(t, isRetryable(next, nil))
	assert.False(t, isRetryable(next, context.Canceled))
	assert.False(t, isRetryable(next, errors.Wrap(context.DeadlineExceeded, "request")))
	assert.False(t, isRetryable(next, gobreaker.ErrOpenState))
	assert.False(t, isRetryable(next, &llmtypes.ConfigurationError{Field: "model"}))
	assert.False(t, isRetryable(next, errPermanent))
	assert.True(t, isRetryable(next, errTransient))
	assert.True(t, isRetryable(nilCompleter{}, errPermanent))
}

func TestCircuitBreakerOpens(t *testing.T) {
	next := &flakyCompleter{failures: 100, err: errTransient}
	breaker := WithCircuitBreaker(next, llmtypes.BreakerConfig{Enabled: true, MaxFailures: 2, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := breaker.Complete(context.Background(), llmtypes.CompletionRequest{})
		assert.True(t, errors.Is(err, errTransient))
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	_, err := breaker.Complete(context.Background(), llmtypes.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Contains(t, err.Error(), `provider "flaky" circuit open`)
	assert.Equal(t, 2, next.calls)
	assert.False(t, breaker.IsRetryable(err))
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	next := &flakyCompleter{}
	breaker := WithCircuitBreaker(next, llmtypes.BreakerConfig{Enabled: true, MaxFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := breaker.Complete(ctx, llmtypes.CompletionRequest{})
	require.Error(t, err)

	assert.Equal(t, gobreaker.StateClosed, breaker.State())
	assert.Zero(t, breaker.Counts().ConsecutiveFailures)
}

func TestRetryDoesNotHammerOpenCircuit(t *testing.T) {
	next := &flakyCompleter{failures: 100, err: errTransient}
	breaker := WithCircuitBreaker(next, llmtypes.BreakerConfig{Enabled: true, MaxFailures: 2, Timeout: time.Minute})
	completer := WithRetry(breaker, fastRetry(5))

	_, err := completer.Complete(context.Background(), llmtypes.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, next.calls)
}

func TestWithRateLimit(t *testing.T) {
	next := &flakyCompleter{}
	assert.Same(t, next, WithRateLimit(next, llmtypes.RateLimit{}))

	limited := WithRateLimit(next, llmtypes.RateLimit{RequestsPerMinute: 1, Burst: 1})
	_, err := limited.Complete(context.Background(), llmtypes.CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, llmtypes.CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.Equal(t, 1, next.calls)
}
