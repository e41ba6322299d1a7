package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	scrollSettle  = 1500 * time.Millisecond
	markerTimeout = 10 * time.Second
)

// Renderer loads a page in a real browser and returns the rendered HTML.
type Renderer interface {
	Render(ctx context.Context, url string, markers Markers) (string, error)
	Close() error
}

// rodRenderer owns one Chromium process for its whole lifetime.
type rodRenderer struct {
	log      *slog.Logger
	cfg      config.Fetch
	launcher *launcher.Launcher
	browser  *rod.Browser
	sleep    func(ctx context.Context, d time.Duration) error
	warmedUp bool
}

func newRodRenderer(log *slog.Logger, cfg config.Fetch, proxy string) (*rodRenderer, error) {
	const opn = "fetcher.newRodRenderer"

	l := launcher.New().
		Headless(cfg.BrowserHeadless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", "pt-BR")
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if proxy != "" {
		l = l.Proxy(proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to launch browser: %w", opn, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%s: failed to connect to browser: %w", opn, err)
	}

	log.Info("headless browser started", "op", opn, "headless", cfg.BrowserHeadless, "proxy", proxy != "")

	return &rodRenderer{log: log, cfg: cfg, launcher: l, browser: browser, sleep: sleepContext}, nil
}

// Render visits the warm-up page once per session, then the target, scrolling until the
// page height settles so lazy-loaded cards are present in the returned HTML.
func (r *rodRenderer) Render(ctx context.Context, url string, markers Markers) (string, error) {
	const opn = "fetcher.rodRenderer.Render"
	log := r.log.With("op", opn, "url", url)

	page, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("%s: failed to open page: %w", opn, err)
	}
	defer page.Close()

	if r.cfg.BrowserTimeout > 0 {
		page = page.Timeout(r.cfg.BrowserTimeout)
	}

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      randomUserAgent(),
		AcceptLanguage: "pt-BR,pt;q=0.9,en-US;q=0.8",
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to set user agent: %w", opn, err)
	}

	if !r.warmedUp && r.cfg.WarmupURL != "" {
		log.DebugContext(ctx, "loading warm-up page", "warmup_url", r.cfg.WarmupURL)
		if err = navigate(page, r.cfg.WarmupURL); err != nil {
			log.WarnContext(ctx, "warm-up page failed", "error", err)
		} else {
			r.warmedUp = true
		}
	}

	if err = navigate(page, url); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	if err = r.scrollToBottom(ctx, page); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	if markers.Selector != "" {
		if _, err = page.Timeout(markerTimeout).Element(markers.Selector); err != nil {
			log.WarnContext(ctx, "marker element did not appear", "selector", markers.Selector)
		}
	}

	if _, err = page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		log.DebugContext(ctx, "scroll to top failed", "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("%s: failed to read page html: %w", opn, err)
	}

	return html, nil
}

func navigate(page *rod.Page, url string) error {
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}

	return nil
}

func (r *rodRenderer) scrollToBottom(ctx context.Context, page *rod.Page) error {
	height := func() (int, error) {
		res, err := page.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return 0, fmt.Errorf("failed to read page height: %w", err)
		}
		return res.Value.Int(), nil
	}

	last, err := height()
	if err != nil {
		return err
	}

	for range r.cfg.ScrollIterations {
		if _, err = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		if err = r.sleep(ctx, scrollSettle); err != nil {
			return err
		}

		current, hErr := height()
		if hErr != nil {
			return hErr
		}
		if current == last {
			break
		}
		last = current
	}

	return nil
}

// Close terminates the browser process and removes its profile directory.
func (r *rodRenderer) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	r.launcher.Cleanup()

	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}

	return nil
}
