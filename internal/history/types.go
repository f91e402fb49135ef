package history

import (
	"encoding/json"
	"time"

	"github.com/arrmate/arrmate/internal/intent"
)

// Source names the surface a command came from.
type Source string

const (
	SourceAPI         Source = "api"
	SourceCLI         Source = "cli"
	SourceWebSocket   Source = "websocket"
	SourceInteractive Source = "interactive"
)

// Entry is one recorded pipeline run.
type Entry struct {
	ID         string                  `json:"id"`
	Source     Source                  `json:"source"`
	Text       string                  `json:"text,omitempty"`
	Stage      string                  `json:"stage"`
	Status     string                  `json:"status"`
	Message    string                  `json:"message,omitempty"`
	Action     intent.Action           `json:"action,omitempty"`
	MediaType  intent.MediaType        `json:"mediaType,omitempty"`
	Title      string                  `json:"title,omitempty"`
	ResolvedID string                  `json:"resolvedId,omitempty"`
	Intent     *intent.Intent          `json:"intent,omitempty"`
	Result     *intent.ExecutionResult `json:"result,omitempty"`
	Detail     json.RawMessage         `json:"detail,omitempty"`
	DryRun     bool                    `json:"dryRun"`
	DurationMs int64                   `json:"durationMs"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// Record is what the pipeline stores after a run. Detail holds stage
// specific data such as rejection reasons or ambiguous candidates.
type Record struct {
	ID       string
	Source   Source
	Text     string
	Stage    string
	Status   string
	Message  string
	Intent   *intent.Intent
	Result   *intent.ExecutionResult
	Detail   any
	DryRun   bool
	Duration time.Duration
	At       time.Time
}

// ListOptions contains options for listing history.
type ListOptions struct {
	Status    string
	MediaType string
	Page      int
	PageSize  int
}

// ListResponse contains paginated history results.
type ListResponse struct {
	Items      []*Entry `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalCount int64    `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}

// RetentionSettings controls how long entries are kept.
type RetentionSettings struct {
	Enabled       bool `json:"enabled"`
	RetentionDays int  `json:"retentionDays"`
}
