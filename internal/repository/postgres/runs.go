package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/jackc/pgx/v5"
)

const runColumns = `id, category, started_at, finished_at, total_products_seen, total_new, total_updated,
	status, error_message`

func scanRun(row pgx.Row) (*models.CollectionRun, error) {
	var (
		run    models.CollectionRun
		status string
	)
	err := row.Scan(&run.ID, &run.Category, &run.StartedAt, &run.FinishedAt,
		&run.Totals.Seen, &run.Totals.New, &run.Totals.Updated, &status, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)

	return &run, nil
}

// StartRun inserts an in_progress run with zeroed counters.
func (r *Repository) StartRun(ctx context.Context, category string, at time.Time) (int64, error) {
	const opn = "repository.postgres.StartRun"

	var id int64
	err := r.pool.QueryRow(ctx,
		"INSERT INTO collection_runs (category, started_at, status) VALUES ($1, $2, $3) RETURNING id",
		category, at.UTC(), string(models.RunInProgress),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to insert run: %w", opn, err)
	}

	return id, nil
}

// FinishRun writes the terminal state once; terminal runs yield repository.ErrRunNotFound.
func (r *Repository) FinishRun(ctx context.Context, id int64, finish models.RunFinish) error {
	const opn = "repository.postgres.FinishRun"

	if !finish.Status.Terminal() {
		return fmt.Errorf("%s: status %q: %w", opn, finish.Status, repository.ErrRunNotTerminal)
	}

	var errMsg *string
	if finish.ErrorMessage != "" {
		errMsg = &finish.ErrorMessage
	}

	tag, err := r.pool.Exec(ctx, `UPDATE collection_runs SET
		finished_at = $1, total_products_seen = $2, total_new = $3, total_updated = $4, status = $5,
		error_message = $6
		WHERE id = $7 AND status = $8`,
		finish.FinishedAt.UTC(), finish.Totals.Seen, finish.Totals.New, finish.Totals.Updated,
		string(finish.Status), errMsg, id, string(models.RunInProgress),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update run %d: %w", opn, id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrRunNotFound
	}

	return nil
}

// RecentRuns lists the newest runs first. An empty category lists all categories.
func (r *Repository) RecentRuns(ctx context.Context, category string, limit int) ([]models.CollectionRun, error) {
	const opn = "repository.postgres.RecentRuns"

	rows, err := r.pool.Query(ctx, "SELECT "+runColumns+` FROM collection_runs
		WHERE ($1 = '' OR category = $1) ORDER BY started_at DESC, id DESC LIMIT $2`,
		category, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query runs: %w", opn, err)
	}
	defer rows.Close()

	var runs []models.CollectionRun
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: failed to scan run: %w", opn, scanErr)
		}
		runs = append(runs, *run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return runs, nil
}
