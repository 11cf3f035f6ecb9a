// internal/workers/record-failure/models.go
package recordfailure

// Input carries the error variables the failing worker attached when it threw
// the BPMN error, plus the run identity.
type Input struct {
	RunID        string `json:"runId"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}

type Output struct {
	// Recorded reports whether this job won the terminal-state race for the
	// runId; a re-delivered job, or one racing a published report, observes
	// false.
	Recorded bool `json:"recorded"`
}
