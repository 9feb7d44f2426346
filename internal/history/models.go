package history

import "time"

// Status is the outcome of one episode within a batch.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one recorded episode run.
type Entry struct {
	ID         int64
	RunID      string
	Episode    int
	Title      string
	Status     Status
	Segments   int
	Chunks     int
	Fallbacks  int
	Normalized int
	Chars      int
	Elapsed    time.Duration
	OutputPath string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
