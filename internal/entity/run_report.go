package entity

import "time"

// SkippedEntity records a municipality left out of the dataset because its
// detail page could not be fetched.
type SkippedEntity struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	DetailURL string    `json:"detail_url"`
	Reason    string    `json:"reason"`
	SkippedAt time.Time `json:"skipped_at"`
}

// RunReport describes the outcome of one run.
type RunReport struct {
	RunID      string          `json:"run_id"`
	IndexURL   string          `json:"index_url"`
	Requested  int             `json:"requested"`
	Emitted    int             `json:"emitted"`
	Skipped    []SkippedEntity `json:"skipped,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Duration returns how long the run took.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
