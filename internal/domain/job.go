package domain

import "time"

// JobStatus enumerates batch enhancement job lifecycle states.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobStarted    JobStatus = "started"
	JobProcessing JobStatus = "processing"
	JobFinished   JobStatus = "finished"
	JobFailed     JobStatus = "failed"
	JobError      JobStatus = "error"
)

// Terminal reports whether no further status messages are expected or trusted.
func (s JobStatus) Terminal() bool {
	return s == JobFinished || s == JobFailed || s == JobError
}

// Known reports whether s is one of the six protocol statuses.
func (s JobStatus) Known() bool {
	switch s {
	case JobQueued, JobStarted, JobProcessing, JobFinished, JobFailed, JobError:
		return true
	}
	return false
}

// Progress is a monotonically advancing position within one job.
type Progress struct {
	Current int
	Total   int
}

// ResultSummary is populated only once a job reaches a terminal status.
type ResultSummary struct {
	Successful      int
	Failed          int
	DurationSeconds float64
}

// BatchJob is the client-side view of one server-side enhancement job. Each
// progress message replaces the whole value; fields are never merged across
// messages.
type BatchJob struct {
	ID       string
	Status   JobStatus
	Progress Progress
	Message  string
	Percent  float64
	Summary  *ResultSummary
}

// EnhancementJob is the server-side job row the worker executes. Jobs carry
// either a preset name or, for custom edits, an explicit engine-space
// adjustment payload; AdjustmentsJSON takes precedence when present.
type EnhancementJob struct {
	ID              string
	Status          JobStatus
	Preset          string
	AdjustmentsJSON []byte
	ImageIDs        []string
	Current         int
	Total           int
	Message         string
	Successful      int
	Failed          int
	DurationSeconds float64
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
