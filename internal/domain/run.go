package domain

import "time"

// Outcome is the normalized result category of a run or job.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeOther     Outcome = "other"
)

// Concluded reports whether the outcome is a finished result rather than
// an in-flight or unknown state.
func (o Outcome) Concluded() bool {
	return o == OutcomeSuccess || o == OutcomeFailure || o == OutcomeCancelled
}

// Attribution selects which instant places a run in a reporting window.
type Attribution string

const (
	// AttributeStarted uses the start time, falling back to creation. It is
	// the zero value.
	AttributeStarted Attribution = ""
	// AttributeCreated uses the creation time, falling back to the start. A
	// re-run keeps the week of its original creation.
	AttributeCreated Attribution = "created"
)

// RunRecord is a single CI workflow run as reported by a provider.
type RunRecord struct {
	ID    string `json:"id" yaml:"id"`
	Group string `json:"group" yaml:"group"` // workflow or pipeline name
	// Title is the commit message headline or run title, when known.
	Title      string     `json:"title,omitempty" yaml:"title,omitempty"`
	Number     int        `json:"number,omitempty" yaml:"number,omitempty"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Status     string     `json:"status" yaml:"status"`         // queued, in_progress, completed, ...
	Conclusion string     `json:"conclusion" yaml:"conclusion"` // only meaningful once completed
	HTMLURL    string     `json:"html_url" yaml:"html_url"`

	// AttributedBy is set by the provider that produced the record.
	AttributedBy Attribution `json:"attributed_by,omitempty" yaml:"attributed_by,omitempty"`
}

// Timestamp returns the instant a run is attributed to. Window filtering,
// daily buckets and failure patterns all use it.
func (r RunRecord) Timestamp() time.Time {
	started := r.StartedAt != nil && !r.StartedAt.IsZero()
	if r.AttributedBy == AttributeCreated {
		if r.CreatedAt.IsZero() && started {
			return *r.StartedAt
		}
		return r.CreatedAt
	}
	if started {
		return *r.StartedAt
	}
	return r.CreatedAt
}

// StepRecord is one step within a job.
type StepRecord struct {
	Name       string
	Conclusion string
}

// JobRecord is one job of a run.
type JobRecord struct {
	ID         string
	Name       string
	Status     string
	Conclusion string
	Steps      []StepRecord
}
