// Package checker probes registered URLs with a single HTTP GET.
package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 10 * time.Second

// ProbeError describes a probe that did not produce an HTTP response.
type ProbeError struct {
	URL string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one probe. Exactly one of StatusCode and Err
// is meaningful.
type Result struct {
	StatusCode int
	Err        *ProbeError
}

// OK reports whether the probe received a response.
func (r Result) OK() bool {
	return r.Err == nil
}

// HTTPChecker issues probes through a shared http.Client.
type HTTPChecker struct {
	client *http.Client
	logger *zap.Logger
}

func New(timeout time.Duration, logger *zap.Logger) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPChecker{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Check performs one GET against url. It never retries.
func (c *HTTPChecker) Check(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Err: &ProbeError{URL: url, Err: err}}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Info("probe failed", zap.String("url", url), zap.Error(err))
		return Result{Err: &ProbeError{URL: url, Err: err}}
	}
	defer resp.Body.Close()

	// drain a bounded amount so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	c.logger.Info("probe finished",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{StatusCode: resp.StatusCode}
}
