package response

import "time"

// ScrapeResponse is the JSON rendering of a finished run.
type ScrapeResponse struct {
	RunID     string          `json:"run_id"`
	Header    []string        `json:"header"`
	Rows      [][]string      `json:"rows"`
	Requested int             `json:"requested"`
	Emitted   int             `json:"emitted"`
	Skipped   []SkippedEntity `json:"skipped"`
	Duration  string          `json:"duration"`
}

// SkippedEntity is a DTO for entity.SkippedEntity.
type SkippedEntity struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	DetailURL string    `json:"detail_url"`
	Reason    string    `json:"reason"`
	SkippedAt time.Time `json:"skipped_at"`
}

// SkippedResponse lists the skipped entities of a run.
type SkippedResponse struct {
	RunID   string          `json:"run_id"`
	Skipped []SkippedEntity `json:"skipped"`
}

// RunResponse is a DTO for a stored entity.RunReport.
type RunResponse struct {
	RunID      string    `json:"run_id"`
	IndexURL   string    `json:"index_url"`
	Requested  int       `json:"requested"`
	Emitted    int       `json:"emitted"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
