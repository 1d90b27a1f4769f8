package model

// ProgressState is the state of a long running job.
type ProgressState string

const (
	ProgressRunning   ProgressState = "running"
	ProgressCompleted ProgressState = "completed"
	ProgressFailed    ProgressState = "failed"
)

// ProgressEvent reports the progress of the embedding pipeline.
// Percent is between 0 and 100, Message may be empty.
type ProgressEvent struct {
	Percent float64       `json:"percent"`
	Message string        `json:"message"`
	State   ProgressState `json:"state"`
}

// Done reports whether the event is the last one of a run.
func (e ProgressEvent) Done() bool {
	return e.State == ProgressCompleted || e.State == ProgressFailed
}
