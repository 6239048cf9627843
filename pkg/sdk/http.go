package sdk

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/metrics"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/audit"
	"github.com/google/uuid"
)

// RequestOptions describes an outbound request. The zero value is a GET
// with no body.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   io.Reader
}

var blockedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

var blockedHostPrefixes = []string{"192.168.", "10.", "172.16."}

// isForbiddenHost reports whether host is on the internal network deny
// list. The prefix match is textual: 172.17.x.x through 172.31.x.x, IPv6
// private ranges and names resolving to private addresses all pass.
func isForbiddenHost(host string) bool {
	if blockedHosts[host] {
		return true
	}
	for _, prefix := range blockedHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// HTTPRequest sends a governed outbound request on behalf of the plugin.
//
// The URL must be an absolute http or https URL; internal hosts are
// rejected with *ForbiddenHostError and each host is limited to a fixed
// number of requests per window (*RateLimitExceededError). A request whose
// response headers do not arrive within the SDK timeout is aborted and
// fails with *RequestTimeoutError. Reading the body is bounded only by ctx,
// and closing the body releases the request context.
func (s *SDK) HTTPRequest(ctx context.Context, rawURL string, opts *RequestOptions) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	parsed, err := parseRequestURL(rawURL)
	if err != nil {
		s.metrics.RecordHTTPRequest(s.pluginID, metrics.OutcomeInvalid, 0)
		return nil, err
	}
	host := strings.ToLower(parsed.Hostname())

	if isForbiddenHost(host) {
		s.Log(audit.LevelWarn, "Blocked request to internal/private network", map[string]any{"host": host})
		s.metrics.RecordHTTPRequest(s.pluginID, metrics.OutcomeForbidden, 0)
		return nil, &ForbiddenHostError{Host: host}
	}

	if ok, resetAt := s.limiter.allow(host); !ok {
		s.Log(audit.LevelWarn, "Rate limit exceeded", map[string]any{"host": host})
		s.metrics.RecordHTTPRequest(s.pluginID, metrics.OutcomeRateLimited, 0)
		return nil, &RateLimitExceededError{Host: host, Limit: s.limiter.limit, ResetAt: resetAt}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, opts.Body)
	if err != nil {
		cancel()
		return nil, &InvalidRequestError{URL: rawURL, Err: err}
	}
	for k, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	credentials := credentialValues(opts.Header)
	loggedURL := logging.Redact(rawURL, credentials)

	requestID := uuid.NewString()
	s.Log(audit.LevelInfo, "HTTP request", map[string]any{
		"method":    method,
		"url":       loggedURL,
		"host":      host,
		"requestId": requestID,
	})

	// The timeout covers dispatch up to the response headers. Once they
	// arrive the timer is stopped and the body is bounded only by ctx.
	var timedOut atomic.Bool
	timer := time.AfterFunc(s.httpTimeout, func() {
		timedOut.Store(true)
		cancel()
	})

	start := s.now()
	resp, err := s.client.Do(req)
	if !timer.Stop() && err == nil {
		// The timer fired as the headers arrived and the body's context is
		// already cancelled.
		if resp.Body != nil {
			resp.Body.Close()
		}
		resp, err = nil, context.DeadlineExceeded
	}
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		cancel()

		s.Log(audit.LevelError, "HTTP request failed", map[string]any{
			"url":       loggedURL,
			"error":     logging.Redact(err.Error(), credentials),
			"requestId": requestID,
		})

		if timedOut.Load() && ctx.Err() == nil {
			s.metrics.RecordHTTPRequest(s.pluginID, metrics.OutcomeTimedOut, elapsed)
			return nil, &RequestTimeoutError{URL: rawURL, Timeout: s.httpTimeout, Err: err}
		}
		s.metrics.RecordHTTPRequest(s.pluginID, metrics.OutcomeFailed, elapsed)
		return nil, err
	}

	s.Log(audit.LevelInfo, "HTTP response", map[string]any{
		"url":        loggedURL,
		"status":     resp.StatusCode,
		"statusText": http.StatusText(resp.StatusCode),
		"requestId":  requestID,
	})
	s.metrics.RecordHTTPRequest(s.pluginID, metrics.OutcomeCompleted, elapsed)

	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// credentialHeaders carry values that must not reach audit records.
var credentialHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie"}

// credentialValues returns the credential header values in h, plus the
// token part of "<scheme> <token>" values.
func credentialValues(h http.Header) []string {
	var values []string
	for _, name := range credentialHeaders {
		for _, v := range h.Values(name) {
			values = append(values, v)
			if _, token, ok := strings.Cut(v, " "); ok {
				values = append(values, strings.TrimSpace(token))
			}
		}
	}
	return values
}

// RateLimitStatus returns how many requests to host were counted in the
// current window and when it resets. found is false before the first
// request to host.
func (s *SDK) RateLimitStatus(host string) (count int, resetAt time.Time, found bool) {
	return s.limiter.snapshot(strings.ToLower(host))
}

func parseRequestURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidRequestError{URL: rawURL, Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &InvalidRequestError{URL: rawURL, Reason: "scheme must be http or https"}
	}
	if parsed.Hostname() == "" {
		return nil, &InvalidRequestError{URL: rawURL, Reason: "missing host"}
	}
	return parsed, nil
}

// cancelOnClose releases the request deadline once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
