package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
)

// StartRun inserts an in_progress run with zeroed counters.
func (r *Repository) StartRun(ctx context.Context, category string, at time.Time) (int64, error) {
	const opn = "repository.sqlite.StartRun"

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO collection_runs (category, started_at, status) VALUES (?, ?, ?)",
		category, at.UTC(), string(models.RunInProgress),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to insert run: %w", opn, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read run id: %w", opn, err)
	}

	return id, nil
}

// FinishRun writes the terminal state. Runs that are already terminal are not touched
// and repository.ErrRunNotFound is returned.
func (r *Repository) FinishRun(ctx context.Context, id int64, finish models.RunFinish) error {
	const opn = "repository.sqlite.FinishRun"

	if !finish.Status.Terminal() {
		return fmt.Errorf("%s: status %q: %w", opn, finish.Status, repository.ErrRunNotTerminal)
	}

	var errMsg *string
	if finish.ErrorMessage != "" {
		errMsg = &finish.ErrorMessage
	}

	res, err := r.db.ExecContext(ctx, `UPDATE collection_runs SET
		finished_at = ?, total_products_seen = ?, total_new = ?, total_updated = ?, status = ?, error_message = ?
		WHERE id = ? AND status = ?`,
		finish.FinishedAt.UTC(), finish.Totals.Seen, finish.Totals.New, finish.Totals.Updated,
		string(finish.Status), errMsg, id, string(models.RunInProgress),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update run %d: %w", opn, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to read affected rows: %w", opn, err)
	}
	if affected == 0 {
		return repository.ErrRunNotFound
	}

	return nil
}

const runColumns = `id, category, started_at, finished_at, total_products_seen, total_new, total_updated,
	status, error_message`

func scanRun(row rowScanner) (*models.CollectionRun, error) {
	var run models.CollectionRun
	err := row.Scan(&run.ID, &run.Category, &run.StartedAt, &run.FinishedAt,
		&run.Totals.Seen, &run.Totals.New, &run.Totals.Updated, &run.Status, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// RecentRuns lists the newest runs first. An empty category lists all categories.
func (r *Repository) RecentRuns(ctx context.Context, category string, limit int) ([]models.CollectionRun, error) {
	const opn = "repository.sqlite.RecentRuns"

	query := "SELECT " + runColumns + " FROM collection_runs"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, normalizeLimit(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
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
