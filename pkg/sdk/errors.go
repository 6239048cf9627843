package sdk

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDataUnavailable is returned by data operations when the SDK was
	// built without a data store.
	ErrDataUnavailable = errors.New("plugin data store not configured")

	// ErrSecretsUnavailable is returned by GetSecret when the SDK was built
	// without a secret store.
	ErrSecretsUnavailable = errors.New("plugin secret store not configured")

	// ErrAssetsUnavailable is returned by GetAssetURL when the SDK was built
	// without an asset signer or bucket.
	ErrAssetsUnavailable = errors.New("plugin asset access not configured")

	// ErrEditorUnavailable is returned by Editor when no host editor runtime
	// was injected.
	ErrEditorUnavailable = errors.New("editor runtime not available")
)

// InvalidRequestError reports a malformed URL or invalid input. Not
// retryable without correcting the input. Field names the offending input
// when it is not a URL.
type InvalidRequestError struct {
	URL    string
	Field  string
	Reason string
	Err    error
}

func (e *InvalidRequestError) Error() string {
	msg := fmt.Sprintf("invalid request URL %q", e.URL)
	if e.Field != "" {
		msg = "invalid " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

// ForbiddenHostError reports a request to an internal or private host.
type ForbiddenHostError struct {
	Host string
}

func (e *ForbiddenHostError) Error() string {
	return fmt.Sprintf("requests to internal/private networks are not allowed: %s", e.Host)
}

// RateLimitExceededError reports that the per-host window is exhausted.
// Callers should back off until ResetAt.
type RateLimitExceededError struct {
	Host    string
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (%d requests per window, resets at %s)",
		e.Host, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// RequestTimeoutError reports that an outbound request exceeded its deadline
// and was aborted.
type RequestTimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.Timeout)
}

func (e *RequestTimeoutError) Unwrap() error {
	return e.Err
}

// SecretStoreFailure wraps an unexpected secret store error. A missing
// secret is never reported this way.
type SecretStoreFailure struct {
	Name string
	Err  error
}

func (e *SecretStoreFailure) Error() string {
	return fmt.Sprintf("failed to fetch secret %q: %v", e.Name, e.Err)
}

func (e *SecretStoreFailure) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient governor rejection that
// may succeed if the caller waits and retries.
func IsRetryable(err error) bool {
	var rl *RateLimitExceededError
	var to *RequestTimeoutError
	return errors.As(err, &rl) || errors.As(err, &to)
}
