package sqlite_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Integration_RunLifecycle(t *testing.T) {
	repo := newTestDB(t)
	ctx := t.Context()
	started := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	runID, err := repo.StartRun(ctx, "notebook", started)
	require.NoError(t, err)

	t.Run("in_progress_after_start", func(t *testing.T) {
		runs, err := repo.RecentRuns(ctx, "notebook", 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, models.RunInProgress, runs[0].Status)
		assert.Nil(t, runs[0].FinishedAt)
		assert.Equal(t, models.RunTotals{}, runs[0].Totals)
	})

	t.Run("finish_sets_terminal_state", func(t *testing.T) {
		err := repo.FinishRun(ctx, runID, models.RunFinish{
			Totals:       models.RunTotals{Seen: 48, New: 10, Updated: 38},
			Status:       models.RunError,
			ErrorMessage: "database is locked",
			FinishedAt:   started.Add(5 * time.Minute),
		})
		require.NoError(t, err)

		runs, err := repo.RecentRuns(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, models.RunError, runs[0].Status)
		assert.Equal(t, models.RunTotals{Seen: 48, New: 10, Updated: 38}, runs[0].Totals)
		require.NotNil(t, runs[0].ErrorMessage)
		assert.Equal(t, "database is locked", *runs[0].ErrorMessage)
		require.NotNil(t, runs[0].FinishedAt)
	})

	t.Run("terminal_run_is_immutable", func(t *testing.T) {
		err := repo.FinishRun(ctx, runID, models.RunFinish{Status: models.RunSuccess, FinishedAt: time.Now()})
		require.ErrorIs(t, err, repository.ErrRunNotFound)
	})

	t.Run("non_terminal_status_is_rejected", func(t *testing.T) {
		otherID, err := repo.StartRun(ctx, "celular", started)
		require.NoError(t, err)

		err = repo.FinishRun(ctx, otherID, models.RunFinish{Status: models.RunInProgress, FinishedAt: time.Now()})
		require.ErrorIs(t, err, repository.ErrRunNotTerminal)

		err = repo.FinishRun(ctx, otherID, models.RunFinish{Status: "paused", FinishedAt: time.Now()})
		require.ErrorIs(t, err, repository.ErrRunNotTerminal)

		require.NoError(t, repo.FinishRun(ctx, otherID, models.RunFinish{Status: models.RunSuccess, FinishedAt: time.Now()}))
	})

	t.Run("unknown_run", func(t *testing.T) {
		err := repo.FinishRun(ctx, 777, models.RunFinish{Status: models.RunSuccess, FinishedAt: time.Now()})
		require.ErrorIs(t, err, repository.ErrRunNotFound)
	})

	t.Run("recent_runs_newest_first", func(t *testing.T) {
		_, err := repo.StartRun(ctx, "notebook", started.Add(time.Hour))
		require.NoError(t, err)
		_, err = repo.StartRun(ctx, "celular", started.Add(2*time.Hour))
		require.NoError(t, err)

		runs, err := repo.RecentRuns(ctx, "notebook", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))

		all, err := repo.RecentRuns(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "celular", all[0].Category)
	})
}

func TestRepository_Runs_Failures(t *testing.T) {
	ctx := t.Context()

	t.Run("start_exec_error", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("INSERT INTO collection_runs").WillReturnError(assert.AnError)

		_, err := repo.StartRun(ctx, "celular", time.Now())

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "repository.sqlite.StartRun")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finish_exec_error", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("UPDATE collection_runs SET").WillReturnError(assert.AnError)

		err := repo.FinishRun(ctx, 1, models.RunFinish{Status: models.RunSuccess, FinishedAt: time.Now()})

		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finish_passes_null_error_message_on_success", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("UPDATE collection_runs SET").
			WithArgs(sqlmock.AnyArg(), 3, 1, 2, "success", nil, int64(5), "in_progress").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.FinishRun(ctx, 5, models.RunFinish{
			Totals:     models.RunTotals{Seen: 3, New: 1, Updated: 2},
			Status:     models.RunSuccess,
			FinishedAt: time.Now(),
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("recent_runs_scan_error", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		rows := sqlmock.NewRows([]string{
			"id", "category", "started_at", "finished_at", "total_products_seen",
			"total_new", "total_updated", "status", "error_message",
		}).AddRow("not-a-number", "celular", time.Now(), nil, 0, 0, 0, "success", nil)
		mock.ExpectQuery("SELECT (.+) FROM collection_runs").WillReturnRows(rows)

		_, err := repo.RecentRuns(ctx, "celular", 5)

		require.ErrorContains(t, err, "failed to scan run")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
