package sdk_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/metrics"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/audit"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/sdk"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingClient answers every request with 200 and records what it saw.
type countingClient struct {
	mu       sync.Mutex
	requests []*http.Request
	status   int
	err      error
}

func (c *countingClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
		Request:    req,
	}, nil
}

func (c *countingClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func TestHTTPRequestForbiddenHosts(t *testing.T) {
	t.Parallel()

	urls := []string{
		"http://localhost/admin",
		"http://LOCALHOST:8080/",
		"http://127.0.0.1/",
		"http://0.0.0.0:9000/",
		"http://[::1]/",
		"https://192.168.1.10/router",
		"http://10.0.0.5/",
		"http://172.16.4.2/",
	}

	for _, u := range urls {
		u := u
		t.Run(u, func(t *testing.T) {
			t.Parallel()

			client := &countingClient{}
			s, rec := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

			resp, err := s.HTTPRequest(context.Background(), u, nil)
			assert.Nil(t, resp)

			var forbidden *sdk.ForbiddenHostError
			require.ErrorAs(t, err, &forbidden)
			assert.Zero(t, client.count())
			assert.Zero(t, rec.Count(audit.LevelInfo, "HTTP request"))
			assert.Equal(t, 1, rec.Count(audit.LevelWarn, "Blocked request to internal/private network"))

			_, _, found := s.RateLimitStatus(forbidden.Host)
			assert.False(t, found, "forbidden requests must not consume quota")
		})
	}
}

func TestHTTPRequestPrefixMatchIsTextual(t *testing.T) {
	t.Parallel()

	client := &countingClient{}
	s, _ := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

	for _, u := range []string{"http://172.20.0.1/", "http://172.31.255.1/", "http://100.64.0.1/"} {
		resp, err := s.HTTPRequest(context.Background(), u, nil)
		require.NoError(t, err, u)
		require.NoError(t, resp.Body.Close())
	}
	assert.Equal(t, 3, client.count())
}

func TestHTTPRequestInvalidURL(t *testing.T) {
	t.Parallel()

	client := &countingClient{}
	s, rec := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

	for _, u := range []string{"", "not a url", "ftp://example.com/file", "/relative/path", "http://"} {
		_, err := s.HTTPRequest(context.Background(), u, nil)
		var invalid *sdk.InvalidRequestError
		assert.ErrorAs(t, err, &invalid, "url %q", u)
	}
	assert.Zero(t, client.count())
	assert.Empty(t, rec.Records())
}

func TestHTTPRequestPassesThrough(t *testing.T) {
	t.Parallel()

	client := &countingClient{status: http.StatusCreated}
	s, rec := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

	resp, err := s.HTTPRequest(context.Background(), "https://api.example.com/items", &sdk.RequestOptions{
		Method: "post",
		Header: http.Header{"Authorization": []string{"Bearer token"}},
		Body:   strings.NewReader(`{"name":"x"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	require.Equal(t, 1, client.count())
	sent := client.requests[0]
	assert.Equal(t, http.MethodPost, sent.Method)
	assert.Equal(t, "Bearer token", sent.Header.Get("Authorization"))
	sentBody, err := io.ReadAll(sent.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(sentBody))

	// The request context lives until the body is closed.
	require.NoError(t, sent.Context().Err())
	require.NoError(t, resp.Body.Close())
	assert.ErrorIs(t, sent.Context().Err(), context.Canceled)

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "HTTP request", records[0].Message)
	assert.Equal(t, "POST", records[0].Meta["method"])
	assert.Equal(t, "api.example.com", records[0].Meta["host"])
	assert.Equal(t, "HTTP response", records[1].Message)
	assert.Equal(t, http.StatusCreated, records[1].Meta["status"])
	assert.Equal(t, "Created", records[1].Meta["statusText"])
	assert.Equal(t, records[0].Meta["requestId"], records[1].Meta["requestId"])
	assert.NotEmpty(t, records[0].Meta["requestId"])
}

func TestHTTPRequestDefaultsToGet(t *testing.T) {
	t.Parallel()

	client := &countingClient{}
	s, _ := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

	resp, err := s.HTTPRequest(context.Background(), "https://api.example.com/", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.MethodGet, client.requests[0].Method)
}

func TestHTTPRequestFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	client := &countingClient{err: cause}
	s, rec := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

	_, err := s.HTTPRequest(context.Background(), "https://api.example.com/", nil)
	assert.Equal(t, cause, err)

	var timeout *sdk.RequestTimeoutError
	assert.False(t, errors.As(err, &timeout))
	assert.Equal(t, 1, rec.Count(audit.LevelInfo, "HTTP request"))
	assert.Equal(t, 1, rec.Count(audit.LevelError, "HTTP request failed"))
	assert.Zero(t, rec.Count(audit.LevelInfo, "HTTP response"))
}

func TestHTTPRequestRateLimit(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	client := &countingClient{}
	s, rec := newTestSDK(t, "archive", sdk.WithHTTPClient(client), sdk.WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < sdk.DefaultRateLimit; i++ {
		resp, err := s.HTTPRequest(ctx, "https://api.example.com/items", nil)
		require.NoError(t, err, "request %d", i+1)
		require.NoError(t, resp.Body.Close())
	}

	_, err := s.HTTPRequest(ctx, "https://api.example.com/items", nil)
	var limited *sdk.RateLimitExceededError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, "api.example.com", limited.Host)
	assert.Equal(t, clock.Now().Add(sdk.DefaultRateWindow), limited.ResetAt)
	assert.True(t, sdk.IsRetryable(err))

	assert.Equal(t, sdk.DefaultRateLimit, client.count())
	assert.Equal(t, sdk.DefaultRateLimit, rec.Count(audit.LevelInfo, "HTTP request"))
	assert.Equal(t, 1, rec.Count(audit.LevelWarn, "Rate limit exceeded"))

	// Other hosts have their own window.
	resp, err := s.HTTPRequest(ctx, "https://cdn.example.com/", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	count, resetAt, found := s.RateLimitStatus("API.example.com")
	require.True(t, found)
	assert.Equal(t, sdk.DefaultRateLimit, count)
	assert.Equal(t, limited.ResetAt, resetAt)
}

func TestHTTPRequestRateLimitResets(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	client := &countingClient{}
	s, err := sdk.New(
		sdk.Config{PluginID: "archive", RateLimit: 2, RateWindow: time.Second},
		sdk.WithAuditSink(audit.Discard),
		sdk.WithHTTPClient(client),
		sdk.WithClock(clock.Now),
	)
	require.NoError(t, err)
	ctx := context.Background()

	send := func() error {
		resp, err := s.HTTPRequest(ctx, "https://api.example.com/", nil)
		if err == nil {
			resp.Body.Close()
		}
		return err
	}

	require.NoError(t, send())
	require.NoError(t, send())
	assert.Error(t, send())

	clock.Advance(999 * time.Millisecond)
	assert.Error(t, send())

	clock.Advance(time.Millisecond)
	require.NoError(t, send())
	count, _, _ := s.RateLimitStatus("api.example.com")
	assert.Equal(t, 1, count)
}

func TestHTTPRequestQuotaIsPerSDK(t *testing.T) {
	t.Parallel()

	client := &countingClient{}
	a, err := sdk.New(sdk.Config{PluginID: "archive", RateLimit: 1}, sdk.WithAuditSink(audit.Discard), sdk.WithHTTPClient(client))
	require.NoError(t, err)
	b, err := sdk.New(sdk.Config{PluginID: "gallery", RateLimit: 1}, sdk.WithAuditSink(audit.Discard), sdk.WithHTTPClient(client))
	require.NoError(t, err)

	ctx := context.Background()
	resp, err := a.HTTPRequest(ctx, "https://api.example.com/", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = b.HTTPRequest(ctx, "https://api.example.com/", nil)
	require.NoError(t, err)
	resp.Body.Close()

	_, err = a.HTTPRequest(ctx, "https://api.example.com/", nil)
	var limited *sdk.RateLimitExceededError
	assert.ErrorAs(t, err, &limited)
}

// loopbackClient routes every public-looking host to the loopback test
// server, which the deny list would otherwise reject.
func loopbackClient(srv *httptest.Server) *http.Client {
	return &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, srv.Listener.Addr().String())
		},
	}}
}

func TestHTTPRequestTimeout(t *testing.T) {
	t.Parallel()

	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			close(aborted)
		case <-time.After(5 * time.Second):
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := loopbackClient(srv)

	rec := audit.NewRecorder()
	s, err := sdk.New(
		sdk.Config{PluginID: "archive", HTTPTimeout: 50 * time.Millisecond},
		sdk.WithAuditSink(rec),
		sdk.WithHTTPClient(client),
	)
	require.NoError(t, err)

	start := time.Now()
	_, err = s.HTTPRequest(context.Background(), "http://slow.example.com/report", nil)
	elapsed := time.Since(start)

	var timeout *sdk.RequestTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 50*time.Millisecond, timeout.Timeout)
	assert.Less(t, elapsed, 2*time.Second)

	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request was not aborted")
	}

	assert.Equal(t, 1, rec.Count(audit.LevelInfo, "HTTP request"))
	assert.Equal(t, 1, rec.Count(audit.LevelError, "HTTP request failed"))
	assert.Zero(t, rec.Count(audit.LevelInfo, "HTTP response"))
}

func TestHTTPRequestTimeoutStopsAtHeaders(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "first,")
		w.(http.Flusher).Flush()
		select {
		case <-release:
			_, _ = io.WriteString(w, "second")
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	rec := audit.NewRecorder()
	s, err := sdk.New(
		sdk.Config{PluginID: "archive", HTTPTimeout: 100 * time.Millisecond},
		sdk.WithAuditSink(rec),
		sdk.WithHTTPClient(loopbackClient(srv)),
	)
	require.NoError(t, err)

	resp, err := s.HTTPRequest(context.Background(), "http://stream.example.com/feed", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Stall the body well past the timeout before letting it finish.
	time.Sleep(250 * time.Millisecond)
	close(release)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "first,second", string(body))

	assert.Equal(t, 1, rec.Count(audit.LevelInfo, "HTTP response"))
	assert.Zero(t, rec.Count(audit.LevelError, "HTTP request failed"))
}

func TestHTTPRequestCallerDeadlineIsNotTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	s, rec := newTestSDK(t, "archive", sdk.WithHTTPClient(loopbackClient(srv)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.HTTPRequest(ctx, "http://slow.example.com/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var timeout *sdk.RequestTimeoutError
	assert.False(t, errors.As(err, &timeout), "caller deadline reported as governor timeout: %v", err)
	assert.Equal(t, 1, rec.Count(audit.LevelError, "HTTP request failed"))
}

func TestHTTPRequestRedactsCredentials(t *testing.T) {
	t.Parallel()

	client := &countingClient{err: errors.New(`Get "https://api.example.com/": proxy rejected Bearer s3cr3t-token`)}
	s, rec := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

	_, err := s.HTTPRequest(context.Background(), "https://api.example.com/?session=c00kie-value", &sdk.RequestOptions{
		Header: http.Header{
			"Authorization": []string{"Bearer s3cr3t-token"},
			"Cookie":        []string{"c00kie-value"},
		},
	})
	require.Error(t, err)

	require.Len(t, rec.Records(), 2)
	for _, r := range rec.Records() {
		for key, v := range r.Meta {
			assert.NotContains(t, fmt.Sprint(v), "s3cr3t-token", "%s in %q", key, r.Message)
			assert.NotContains(t, fmt.Sprint(v), "c00kie-value", "%s in %q", key, r.Message)
		}
	}
	assert.Contains(t, rec.Records()[1].Meta["error"], "[REDACTED]")
	assert.Equal(t, "https://api.example.com/?session=[REDACTED]", rec.Records()[0].Meta["url"])
}

func TestHTTPRequestCallerCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &countingClient{err: context.Canceled}
	s, _ := newTestSDK(t, "archive", sdk.WithHTTPClient(client))

	_, err := s.HTTPRequest(ctx, "https://api.example.com/", nil)
	assert.ErrorIs(t, err, context.Canceled)
	var timeout *sdk.RequestTimeoutError
	assert.False(t, errors.As(err, &timeout))
}

func TestHTTPRequestMetrics(t *testing.T) {
	t.Parallel()

	client := &countingClient{}
	s, err := sdk.New(
		sdk.Config{PluginID: "metrics-probe", RateLimit: 1, EnableMetrics: true},
		sdk.WithAuditSink(audit.Discard),
		sdk.WithHTTPClient(client),
	)
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := s.HTTPRequest(ctx, "https://api.example.com/", nil)
	require.NoError(t, err)
	resp.Body.Close()
	_, _ = s.HTTPRequest(ctx, "https://api.example.com/", nil)
	_, _ = s.HTTPRequest(ctx, "http://localhost/", nil)

	requests := metrics.GetHTTPRequestsTotal()
	require.NotNil(t, requests)
	assert.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues("metrics-probe", metrics.OutcomeCompleted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues("metrics-probe", metrics.OutcomeRateLimited)))
	assert.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues("metrics-probe", metrics.OutcomeForbidden)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GetRateLimitedTotal().WithLabelValues("metrics-probe")))
}
