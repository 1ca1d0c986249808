package history

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusPartial     Status = "partial"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
	StatusInterrupted Status = "interrupted"
)

// Run is one processing attempt of a source file.
type Run struct {
	ID          int64
	RunID       string
	Source      string
	SourceSize  int64
	SourceMTime time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      Status
	Error       string
	Outputs     []Output
}

// Output is a placed output file.
type Output struct {
	Tier int
	Path string
	Size int64
}

// Duration is the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
