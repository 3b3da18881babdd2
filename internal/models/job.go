package models

import "time"

// SolveJobStatus tracks an asynchronous timetable generation.
type SolveJobStatus string

const (
	SolveJobStatusQueued    SolveJobStatus = "QUEUED"
	SolveJobStatusRunning   SolveJobStatus = "RUNNING"
	SolveJobStatusSucceeded SolveJobStatus = "SUCCEEDED"
	SolveJobStatusFailed    SolveJobStatus = "FAILED"
)

// Terminal reports whether the job will not change again.
func (s SolveJobStatus) Terminal() bool {
	return s == SolveJobStatusSucceeded || s == SolveJobStatusFailed
}

// SolveJob is the bookkeeping record of a queued solve.
type SolveJob struct {
	ID         string         `json:"id"`
	Status     SolveJobStatus `json:"status"`
	CreatedBy  string         `json:"created_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}
