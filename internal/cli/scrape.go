package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/services/collector"
	"github.com/spf13/cobra"
)

const defaultCategory = "general"

func newScrapeCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "scrape <url> [max-products] [max-pages]",
		Short: "Run one collection over a listing URL",
		Long: `Collects a single listing search and prints the run summary.
The category defaults to the first path segment of the URL.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := scrapeRequest(args, category)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, a.log, a.cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			res := runCategory(ctx, a.log, a.cfg, store, req)
			if err = printResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}

			if res.Status == models.RunError {
				return fmt.Errorf("%w: %s", errRunFailed, res.Error)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category name (default: first URL path segment)")

	return cmd
}

func scrapeRequest(args []string, category string) (collector.RunRequest, error) {
	u, err := url.Parse(args[0])
	if err != nil || u.Scheme == "" || u.Host == "" {
		return collector.RunRequest{}, fmt.Errorf("invalid listing url %q", args[0])
	}

	req := collector.RunRequest{Category: category, URL: args[0]}
	if req.Category == "" {
		req.Category = categoryFromURL(u)
	}

	if len(args) > 1 {
		if req.MaxProducts, err = positiveArg("max-products", args[1]); err != nil {
			return collector.RunRequest{}, err
		}
	}
	if len(args) > 2 {
		if req.MaxPages, err = positiveArg("max-pages", args[2]); err != nil {
			return collector.RunRequest{}, err
		}
	}

	return req, nil
}

func categoryFromURL(u *url.URL) string {
	first, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if first == "" {
		return defaultCategory
	}

	return first
}

func positiveArg(name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}

	return v, nil
}

func printResult(w io.Writer, res models.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to print run result: %w", err)
	}

	return nil
}

