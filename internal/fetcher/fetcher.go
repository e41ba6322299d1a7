// Package fetcher retrieves listing and detail pages through an ordered chain of strategies:
// a browser-fingerprinted client, a plain client with retries and proxy rotation, and finally
// a headless browser.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"
)

var (
	ErrAllStrategiesFailed = errors.New("all fetch strategies failed")
	ErrProxyFailure        = errors.New("proxy failure")
	ErrRepeatedTimeouts    = errors.New("repeated timeouts")
)

// Fetcher is safe for concurrent use, but a browser session is shared by all callers of one
// Fetcher; runs that must not share a session should own separate Fetchers.
type Fetcher struct {
	log     *slog.Logger
	cfg     config.Fetch
	evasion *http.Client // nil when the evasion strategy is disabled
	direct  *http.Client
	proxies *proxyPool

	sleep       func(ctx context.Context, d time.Duration) error
	newRenderer func() (Renderer, error)

	mu       sync.Mutex
	renderer Renderer
}

// New builds the HTTP clients eagerly; the browser is only launched on first use.
func New(log *slog.Logger, cfg config.Fetch) (*Fetcher, error) {
	proxies, err := newProxyPool(cfg.Proxies())
	if err != nil {
		return nil, fmt.Errorf("failed to configure proxies: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy:                  proxies.Proxy,
		OnProxyConnectResponse: rejectProxyConnect,
		MaxIdleConnsPerHost:    4,
		IdleConnTimeout:        90 * time.Second,
		TLSHandshakeTimeout:    cfg.Timeout,
		ResponseHeaderTimeout:  cfg.Timeout,
	}

	f := &Fetcher{
		log:     log,
		cfg:     cfg,
		direct:  &http.Client{Transport: transport, Jar: jar, Timeout: cfg.Timeout},
		proxies: proxies,
		sleep:   sleepContext,
	}

	if cfg.UseEvasion {
		if f.evasion, err = newEvasionClient(cfg.EvasionTimeout); err != nil {
			return nil, err
		}
	}

	f.newRenderer = func() (Renderer, error) {
		var proxy string
		if p := proxies.pick(); p != nil {
			proxy = p.String()
		}
		return newRodRenderer(log, cfg, proxy)
	}

	return f, nil
}

// Fetch retrieves a listing page. maxRetries <= 0 uses the configured default.
// A nil error always comes with content; failure of every strategy is ErrAllStrategiesFailed.
func (f *Fetcher) Fetch(ctx context.Context, url string, maxRetries int) (string, error) {
	return f.fetch(ctx, url, maxRetries, ListingMarkers)
}

// FetchDetail retrieves a single-product page.
func (f *Fetcher) FetchDetail(ctx context.Context, url string) (string, error) {
	return f.fetch(ctx, url, 0, DetailMarkers)
}

func (f *Fetcher) fetch(ctx context.Context, url string, maxRetries int, markers Markers) (string, error) {
	const opn = "fetcher.Fetch"
	log := f.log.With("op", opn, "url", url)

	if maxRetries <= 0 {
		maxRetries = max(f.cfg.MaxRetries, 1)
	}

	// Set when some strategy saw a page without product data, or the direct strategy was abandoned:
	// both suggest client-side rendering or a blocked network path that only a browser can get past.
	needsBrowser := false

	if f.evasion != nil {
		log.InfoContext(ctx, "trying strategy", "strategy", "evasion")
		content, status, err := f.fetchEvasion(ctx, url)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", fmt.Errorf("%s: %w", opn, ctx.Err())
			}
			log.WarnContext(ctx, "evasion strategy failed", "error", err)
		case status == http.StatusOK && markers.Found(content):
			log.InfoContext(ctx, "fetched", "strategy", "evasion")
			return content, nil
		case status == http.StatusOK:
			log.WarnContext(ctx, "evasion strategy returned a page without product markers")
			needsBrowser = true
		default:
			log.WarnContext(ctx, "evasion strategy rejected", "status", status)
		}
	}

	log.InfoContext(ctx, "trying strategy", "strategy", "direct", "max_retries", maxRetries)
	content, err := f.fetchDirect(ctx, log, url, maxRetries)
	switch {
	case err == nil && markers.Found(content):
		log.InfoContext(ctx, "fetched", "strategy", "direct")
		return content, nil
	case err == nil:
		log.WarnContext(ctx, "direct strategy returned a page without product markers")
		needsBrowser = true
	case ctx.Err() != nil:
		return "", fmt.Errorf("%s: %w", opn, ctx.Err())
	case errors.Is(err, ErrProxyFailure), errors.Is(err, ErrRepeatedTimeouts):
		log.WarnContext(ctx, "direct strategy abandoned", "error", err)
		needsBrowser = true
	default:
		log.WarnContext(ctx, "direct strategy exhausted", "error", err)
	}

	if f.cfg.UseBrowser && needsBrowser {
		log.InfoContext(ctx, "trying strategy", "strategy", "browser")
		content, err = f.render(ctx, url, markers)
		if err == nil {
			log.InfoContext(ctx, "fetched", "strategy", "browser", "markers", markers.Found(content))
			return content, nil
		}
		log.ErrorContext(ctx, "browser strategy failed", "error", err)
	}

	log.ErrorContext(ctx, "all strategies failed")

	return "", fmt.Errorf("%s: %s: %w", opn, url, ErrAllStrategiesFailed)
}

// fetchEvasion makes exactly one attempt.
func (f *Fetcher) fetchEvasion(ctx context.Context, url string) (string, int, error) {
	if err := f.sleep(ctx, f.randomDelay()); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request %s: %w", url, err)
	}
	setBrowserHeaders(req.Header)

	resp, err := f.evasion.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to request %s: %w", url, err)
	}

	content, err := readBody(resp)
	if err != nil {
		return "", resp.StatusCode, err
	}

	return content, resp.StatusCode, nil
}

// fetchDirect returns the body of a 200 response, whether or not it carries markers.
func (f *Fetcher) fetchDirect(ctx context.Context, log *slog.Logger, url string, maxAttempts int) (string, error) {
	if err := f.sleep(ctx, f.randomDelay()); err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request %s: %w", url, err)
	}
	setBrowserHeaders(req.Header)

	resp, err := f.newRetryClient(log, maxAttempts).Do(req)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", fmt.Errorf("status code error: [%d] %s", resp.StatusCode, resp.Status)
	}

	return readBody(resp)
}

// render lazily starts the browser session and reuses it until Close.
func (f *Fetcher) render(ctx context.Context, url string, markers Markers) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.renderer == nil {
		r, err := f.newRenderer()
		if err != nil {
			return "", err
		}
		f.renderer = r
	}

	return f.renderer.Render(ctx, url, markers)
}

// Close releases the browser session, if one was started. It is safe to call more than once.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.renderer == nil {
		return nil
	}

	err := f.renderer.Close()
	f.renderer = nil
	if err != nil {
		return fmt.Errorf("fetcher.Close: %w", err)
	}

	f.log.Debug("browser session released", "op", "fetcher.Close")

	return nil
}

// randomDelay is uniform in [min_delay, max_delay].
func (f *Fetcher) randomDelay() time.Duration {
	lo, hi := f.cfg.MinDelay, f.cfg.MaxDelay
	if hi <= lo {
		return lo
	}

	return lo + rand.N(hi-lo+1) //nolint:gosec // request pacing, not security
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
