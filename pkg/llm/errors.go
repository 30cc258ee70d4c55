package llm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTurnLimitExceeded is returned when a run needs more completion calls
// than config.MaxTurns allows.
var ErrTurnLimitExceeded = errors.New("turn limit exceeded")

// TransportError wraps a failed completion request. It aborts the run.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s completion request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err carries a TransportError
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
