// Package export delivers task records to files and external destinations.
package export

// Status is the overall outcome of a destination export.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusError          Status = "error"
)

// Summary reports the result of a destination export. Partial failures are
// reported here rather than returned as errors.
type Summary struct {
	Status       Status   `json:"status"`
	Message      string   `json:"message"`
	CreatedCount int      `json:"created_count,omitempty"`
	FailedCount  int      `json:"failed_count,omitempty"`
	UpdatedRows  int      `json:"updated_rows,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}
