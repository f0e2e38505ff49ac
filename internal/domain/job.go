package domain

import "time"

// JobStatus is the lifecycle vocabulary reported by the render service.
// The set is open-ended on the remote side: anything that is not
// StatusSucceeded or StatusFailed counts as non-terminal.
type JobStatus string

const (
	StatusStarting   JobStatus = "starting"
	StatusProcessing JobStatus = "processing"
	StatusSucceeded  JobStatus = "succeeded"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further polling should occur for this status.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is one generation request tracked by the opaque id the render
// service assigned at submission. The id is set once and never reassigned.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Output []string  `json:"output"`
	Detail string    `json:"detail,omitempty"`
}

// GallerySize is how many artifacts the front end displays at once.
const GallerySize = 4

// Gallery returns up to the last four output references, most recent
// first. The render service appends to Output as artifacts finish, so the
// tail is the freshest batch.
func (j *Job) Gallery() []string {
	if j == nil || len(j.Output) == 0 {
		return nil
	}
	count := GallerySize
	if len(j.Output) < count {
		count = len(j.Output)
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, j.Output[len(j.Output)-1-i])
	}
	return out
}

// Clone returns a deep copy so the state store never hands out a snapshot
// that aliases a slice the poller may still replace.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Output = append([]string(nil), j.Output...)
	return &cp
}

// JobRecord is the persisted history row for a submission and its outcome.
type JobRecord struct {
	ID        string
	SessionID string
	Prompt    string
	Status    JobStatus
	Output    []string
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
