package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Validator defaults.
const (
	DefaultConcurrency   = 8
	DefaultRetries       = 2
	DefaultRetryInterval = 500 * time.Millisecond
	DefaultTimeout       = 30 * time.Second
)

// Doer sends HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the outcome of checking one registry entry.
type Result struct {
	ID      string
	URL     string
	Present bool
	Status  int
	Err     error
}

// Validator checks that registry releases exist with HEAD requests.
type Validator struct {
	client        Doer
	concurrency   int
	retries       uint64
	retryInterval time.Duration
	logger        *logging.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithHTTPClient sets the client used for HEAD requests. It must not follow
// redirects.
func WithHTTPClient(client Doer) Option {
	return func(v *Validator) {
		v.client = client
	}
}

// WithConcurrency sets how many releases are checked at once.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithRetries sets how often a transport error is retried and the initial
// backoff interval.
func WithRetries(retries uint64, interval time.Duration) Option {
	return func(v *Validator) {
		v.retries = retries
		if interval > 0 {
			v.retryInterval = interval
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// NewValidator creates a Validator. The default client does not follow
// redirects, so a GitHub release answering 302 counts as present.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		concurrency:   DefaultConcurrency,
		retries:       DefaultRetries,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.client == nil {
		v.client = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if v.logger == nil {
		v.logger = logging.NewWithWriter(io.Discard, false, true)
	}
	return v
}

// Validate checks every entry of reg. Results are in registry order.
func (v *Validator) Validate(ctx context.Context, reg *Registry) ([]Result, error) {
	results := make([]Result, len(reg.Plugins))
	if len(reg.Plugins) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(v.concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, entry := range reg.Plugins {
		i, entry := i, entry
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = v.check(ctx, entry)
		})
		if err != nil {
			wg.Done()
			results[i] = Result{ID: entry.ID, URL: DownloadURL(entry), Err: err}
		}
	}
	wg.Wait()

	return results, ctx.Err()
}

func (v *Validator) check(ctx context.Context, entry Entry) Result {
	res := Result{ID: entry.ID, URL: DownloadURL(entry)}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = v.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, v.retries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, res.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := v.client.Do(req)
		if err != nil {
			v.logger.Debug("HEAD %s failed (attempt %d): %v", res.URL, attempt, err)
			if !dserrors.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		res.Status = resp.StatusCode
		return nil
	}, policy)
	if err != nil {
		res.Err = err
		return res
	}

	res.Present = res.Status == http.StatusOK || res.Status == http.StatusFound
	return res
}

// Report prints one line per result, missing releases to errOut, and
// returns true when every release is present.
func Report(out, errOut io.Writer, results []Result) bool {
	ok := true
	for _, r := range results {
		if r.Present {
			fmt.Fprintf(out, "✅ %s\n", r.ID)
			continue
		}
		ok = false
		fmt.Fprintf(errOut, "❌ %s: Release not found at %s\n", r.ID, r.URL)
	}
	if ok {
		fmt.Fprintln(out, "\nRegistry validation passed")
	}
	return ok
}
