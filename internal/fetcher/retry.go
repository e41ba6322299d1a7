package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxConsecutiveTimeouts abandons the direct strategy; proxies that slow rarely recover.
const maxConsecutiveTimeouts = 2

// retryPolicy decides, per direct fetch, whether another attempt is worthwhile.
// It is stateful and must not be shared between fetches.
type retryPolicy struct {
	log      *slog.Logger
	timeouts int
}

func (p *retryPolicy) check(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		if isProxyError(err) {
			p.log.WarnContext(ctx, "proxy failure, abandoning direct strategy", "error", err)
			return false, fmt.Errorf("%w: %w", ErrProxyFailure, err)
		}
		if isTimeout(err) {
			p.timeouts++
			p.log.WarnContext(ctx, "request timed out", "consecutive", p.timeouts)
			if p.timeouts >= maxConsecutiveTimeouts {
				return false, ErrRepeatedTimeouts
			}
			return true, nil
		}
		p.timeouts = 0
		p.log.WarnContext(ctx, "request failed", "error", err)
		return true, nil
	}

	p.timeouts = 0

	switch resp.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusProxyAuthRequired:
		p.log.WarnContext(ctx, "proxy rejected the request, abandoning direct strategy", "status", resp.StatusCode)
		return false, fmt.Errorf("%w: %s", ErrProxyFailure, resp.Status)
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusRequestTimeout:
		p.log.WarnContext(ctx, "blocked by remote", "status", resp.StatusCode)
		return true, nil
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		p.log.WarnContext(ctx, "server error", "status", resp.StatusCode)
		return true, nil
	}

	// Other client errors will not change on retry.
	return false, nil
}

// isProxyError covers dial failures to the proxy and CONNECT rejections tagged by rejectProxyConnect.
func isProxyError(err error) bool {
	if errors.Is(err, ErrProxyFailure) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "proxyconnect"
}

// rejectProxyConnect satisfies http.Transport.OnProxyConnectResponse. net/http reports a refused
// CONNECT as a bare error carrying the status text, so it is tagged here.
func rejectProxyConnect(_ context.Context, proxyURL *url.URL, _ *http.Request, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	return fmt.Errorf("%w: %s refused CONNECT: %s", ErrProxyFailure, proxyURL.Redacted(), resp.Status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// backoff adds baseWait × 2^attemptNum to the pacing jitter after a 403 or 429, attemptNum
// starting at 0 for the first retry. Other retries wait for the jitter only.
func backoff(jitter func() time.Duration, base time.Duration) retryablehttp.Backoff {
	return func(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
		wait := jitter()
		if resp != nil && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) {
			wait += time.Duration(float64(base) * math.Pow(2, float64(attemptNum)))
		}
		return wait
	}
}

// newRetryClient wraps the shared direct client in a single-use retry loop of maxAttempts attempts.
func (f *Fetcher) newRetryClient(log *slog.Logger, maxAttempts int) *retryablehttp.Client {
	policy := &retryPolicy{log: log}

	return &retryablehttp.Client{
		HTTPClient:   f.direct,
		Logger:       log,
		RetryWaitMin: f.cfg.RetryWait,
		RetryWaitMax: f.cfg.RetryWait,
		RetryMax:     maxAttempts - 1,
		CheckRetry:   policy.check,
		Backoff:      backoff(f.randomDelay, f.cfg.RetryWait),
		PrepareRetry: func(req *http.Request) error {
			setBrowserHeaders(req.Header)
			return nil
		},
	}
}
