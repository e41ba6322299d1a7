// Package collector drives one paginated collection run of a category.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/Houeta/pricewatch/internal/services/reconciler"
)

const (
	defaultMaxPages     = 10
	defaultPerPageLimit = 50
	defaultPageParam    = "_Paging"
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string, maxRetries int) (string, error)
}

type ListingExtractor interface {
	Extract(ctx context.Context, content, pageURL string, limit int) ([]models.Candidate, error)
}

type ProductReconciler interface {
	Reconcile(ctx context.Context, c models.Candidate, category string) (reconciler.Result, error)
}

// Snapshotter keeps pages that produced no candidates for later inspection.
type Snapshotter interface {
	Save(ctx context.Context, pageURL, content string) (string, error)
}

type Options struct {
	InterPageDelay         time.Duration
	MaxConsecutiveFailures int // MaxConsecutiveFailures below 1 stops at the first unfetchable page.
	PageParam              string
	MaxRetries             int // MaxRetries is passed to the fetcher; 0 uses its default.
}

// RunRequest describes one category run. Zero caps fall back to defaults, MaxProducts 0 means no cap.
type RunRequest struct {
	Category     string
	URL          string
	MaxPages     int
	PerPageLimit int
	MaxProducts  int
}

type Collector struct {
	log        *slog.Logger
	fetcher    PageFetcher
	extractor  ListingExtractor
	reconciler ProductReconciler
	runs       repository.RunStore
	snapshots  Snapshotter
	opts       Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(
	log *slog.Logger,
	fetcher PageFetcher,
	extractor ListingExtractor,
	rec ProductReconciler,
	runs repository.RunStore,
	opts Options,
) *Collector {
	if opts.PageParam == "" {
		opts.PageParam = defaultPageParam
	}

	return &Collector{
		log:        log,
		fetcher:    fetcher,
		extractor:  extractor,
		reconciler: rec,
		runs:       runs,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		sleep:      sleepContext,
	}
}

// WithSnapshots enables raw page snapshots for pages without candidates.
func (c *Collector) WithSnapshots(s Snapshotter) *Collector {
	c.snapshots = s
	return c
}

// Run executes the run state machine in_progress → success|error. It never returns an error
// or panics: every failure ends up in the returned result and in the run row.
func (c *Collector) Run(ctx context.Context, req RunRequest) models.RunResult {
	const opn = "collector.Run"
	log := c.log.With("op", opn, "category", req.Category)

	res := models.RunResult{Category: req.Category, Status: models.RunInProgress}

	runID, err := c.runs.StartRun(ctx, req.Category, c.now())
	if err != nil {
		log.ErrorContext(ctx, "failed to start run", "error", err)
		res.Status = models.RunError
		res.Error = fmt.Sprintf("failed to start run: %v", err)
		return res
	}
	res.RunID = runID
	log = log.With("run_id", runID)
	log.InfoContext(ctx, "collection run started", "url", req.URL)

	err = c.collectSafely(ctx, log, req, &res)

	finish := models.RunFinish{Totals: res.Totals, Status: models.RunSuccess, FinishedAt: c.now()}
	if err != nil {
		finish.Status = models.RunError
		finish.ErrorMessage = err.Error()
		log.ErrorContext(ctx, "collection run failed", "error", err)
	}

	// The run row must be finalized even when the run was canceled.
	if ferr := c.runs.FinishRun(context.WithoutCancel(ctx), runID, finish); ferr != nil {
		log.ErrorContext(ctx, "failed to finalize run", "error", ferr)
		finish.Status = models.RunError
		if finish.ErrorMessage == "" {
			finish.ErrorMessage = fmt.Sprintf("failed to finalize run: %v", ferr)
		}
	}

	res.Status = finish.Status
	res.Error = finish.ErrorMessage

	log.InfoContext(
		ctx,
		"collection run finished",
		"status", res.Status,
		"seen", res.Totals.Seen,
		"new", res.Totals.New,
		"updated", res.Totals.Updated,
		"pages", res.PagesVisited,
		"failed_pages", res.PagesFailed,
	)

	return res
}

func (c *Collector) collectSafely(ctx context.Context, log *slog.Logger, req RunRequest, res *models.RunResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during collection: %v", r)
		}
	}()

	return c.collect(ctx, log, req, res)
}

func (c *Collector) collect(ctx context.Context, log *slog.Logger, req RunRequest, res *models.RunResult) error {
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	perPage := req.PerPageLimit
	if perPage <= 0 {
		perPage = defaultPerPageLimit
	}

	consecutiveFailures := 0

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := c.sleep(ctx, c.opts.InterPageDelay); err != nil {
				return err
			}
		}

		pageURL, err := PageURL(req.URL, c.opts.PageParam, page)
		if err != nil {
			return err
		}
		plog := log.With("page", page)
		res.PagesVisited++

		candidates, err := c.fetchPage(ctx, pageURL, perPage)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.PagesFailed++
			consecutiveFailures++
			plog.WarnContext(ctx, "page skipped", "url", pageURL, "error", err)
			if consecutiveFailures >= max(c.opts.MaxConsecutiveFailures, 1) {
				plog.WarnContext(ctx, "too many consecutive page failures, stopping pagination")
				return nil
			}
			continue
		}
		consecutiveFailures = 0

		if len(candidates.items) == 0 {
			c.snapshot(ctx, plog, pageURL, candidates.content)
			plog.InfoContext(ctx, "no products on page, end of listing reached")
			return nil
		}

		capped, err := c.reconcilePage(ctx, plog, req, candidates.items, &res.Totals)
		if err != nil {
			return err
		}
		plog.InfoContext(ctx, "page processed", "candidates", len(candidates.items), "seen", res.Totals.Seen)

		if capped {
			plog.InfoContext(ctx, "product cap reached", "max_products", req.MaxProducts)
			return nil
		}
	}

	return nil
}

type pageCandidates struct {
	items   []models.Candidate
	content string
}

func (c *Collector) fetchPage(ctx context.Context, pageURL string, limit int) (pageCandidates, error) {
	content, err := c.fetcher.Fetch(ctx, pageURL, c.opts.MaxRetries)
	if err != nil {
		return pageCandidates{}, fmt.Errorf("failed to fetch page: %w", err)
	}

	items, err := c.extractor.Extract(ctx, content, pageURL, limit)
	if err != nil {
		return pageCandidates{}, fmt.Errorf("failed to extract page: %w", err)
	}

	return pageCandidates{items: items, content: content}, nil
}

// reconcilePage reports whether the product cap was reached.
func (c *Collector) reconcilePage(
	ctx context.Context,
	log *slog.Logger,
	req RunRequest,
	candidates []models.Candidate,
	totals *models.RunTotals,
) (bool, error) {
	for _, cand := range candidates {
		r, err := c.reconciler.Reconcile(ctx, cand, req.Category)
		switch {
		case errors.Is(err, reconciler.ErrInvalidCandidate):
			log.DebugContext(ctx, "invalid candidate skipped", "url", cand.URL)
			continue
		case err != nil:
			return false, fmt.Errorf("failed to store product %s: %w", cand.URL, err)
		}

		totals.Seen++
		if r.Created {
			totals.New++
		} else {
			totals.Updated++
		}

		if req.MaxProducts > 0 && totals.Seen >= req.MaxProducts {
			return true, nil
		}
	}

	return false, nil
}

func (c *Collector) snapshot(ctx context.Context, log *slog.Logger, pageURL, content string) {
	if c.snapshots == nil {
		return
	}

	path, err := c.snapshots.Save(ctx, pageURL, content)
	if err != nil {
		log.WarnContext(ctx, "failed to save page snapshot", "error", err)
		return
	}

	log.InfoContext(ctx, "page snapshot saved", "path", path)
}

// PageURL sets the pagination parameter of a listing URL, keeping the other query values.
func PageURL(base, param string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String(), nil
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
