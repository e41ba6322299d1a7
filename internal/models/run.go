package models

import "time"

// RunStatus is the lifecycle state of a collection run.
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunSuccess    RunStatus = "success"
	RunError      RunStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s RunStatus) Terminal() bool {
	return s == RunSuccess || s == RunError
}

// RunTotals are the counters accumulated during a run.
type RunTotals struct {
	Seen    int `json:"total_products_seen"`
	New     int `json:"total_new"`
	Updated int `json:"total_updated"`
}

// CollectionRun is the audit row of one "scrape category X" execution.
type CollectionRun struct {
	ID           int64      `json:"id"`
	Category     string     `json:"category"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Totals       RunTotals  `json:"totals"`
	Status       RunStatus  `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// RunFinish carries the terminal values written once at the end of a run.
type RunFinish struct {
	Totals       RunTotals
	Status       RunStatus
	ErrorMessage string
	FinishedAt   time.Time
}

// RunResult is the structured outcome returned to callers of a collection run.
type RunResult struct {
	RunID        int64     `json:"run_id"`
	Category     string    `json:"category"`
	Status       RunStatus `json:"status"`
	Totals       RunTotals `json:"totals"`
	PagesVisited int       `json:"pages_visited"`
	PagesFailed  int       `json:"pages_failed"`
	Error        string    `json:"error,omitempty"`
}
