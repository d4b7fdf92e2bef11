package qa

import (
	"errors"
	"fmt"
	"strings"
)

// Session errors.
var (
	ErrNotReady              = errors.New("AI model not initialized, wait for initialization to complete")
	ErrNetworkFailure        = errors.New("network error: failed to download AI model, check your internet connection")
	ErrUnsupportedRuntime    = errors.New("inference runtime not supported on this system")
	ErrInitializationFailure = errors.New("AI model initialization failed")
	ErrQueryFailed           = errors.New("failed to get answer")
	ErrNilModel              = errors.New("loader returned no model")
)

// classify maps a load failure to one of the initialization error kinds and
// wraps the cause. Loaders should return errors wrapping ErrNetworkFailure or
// ErrUnsupportedRuntime; message matching is kept for loaders that do not.
func classify(cause error) error {
	var kind error

	switch {
	case errors.Is(cause, ErrNetworkFailure):
		return cause
	case errors.Is(cause, ErrUnsupportedRuntime):
		return cause
	case strings.Contains(cause.Error(), "fetch"):
		kind = ErrNetworkFailure
	case strings.Contains(cause.Error(), "WebGPU"):
		kind = ErrUnsupportedRuntime
	default:
		kind = ErrInitializationFailure
	}

	return fmt.Errorf("%w: %w", kind, cause)
}
