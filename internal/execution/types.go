package execution

import (
	"encoding/json"

	"algocrack/internal/submission/model"
)

// TestCase is a legacy testcase; Input is a JSON object of named arguments.
type TestCase struct {
	Input json.RawMessage `json:"input"`
}

// Request submits code to the execution engine.
type Request struct {
	SubmissionID string     `json:"submissionId,omitempty"`
	UserID       int64      `json:"userId,omitempty"`
	QuestionID   int64      `json:"questionId"`
	Language     string     `json:"language"`
	Code         string     `json:"code"`
	TestCases    []TestCase `json:"testCases,omitempty"`
}

// Accepted acknowledges a queued execution.
type Accepted struct {
	SubmissionID model.ID     `json:"submissionId"`
	Status       model.Status `json:"status"`
	Message      string       `json:"message"`
}

// StatusResponse is the engine's view of an execution in progress.
type StatusResponse struct {
	SubmissionID model.ID       `json:"submissionId"`
	Status       model.Status   `json:"status"`
	Verdict      *model.Verdict `json:"verdict,omitempty"`
	RuntimeMs    *int64         `json:"runtimeMs,omitempty"`
	MemoryKb     *int64         `json:"memoryKb,omitempty"`
}

// Results is a finished execution with its per-testcase outcomes.
type Results struct {
	SubmissionID    model.ID               `json:"submissionId"`
	Status          model.Status           `json:"status"`
	Verdict         model.Verdict          `json:"verdict"`
	RuntimeMs       *int64                 `json:"runtimeMs"`
	TestCaseResults []model.TestCaseResult `json:"testCaseResults"`
}

// CancelResponse reports a cancellation.
type CancelResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	SubmissionID model.ID `json:"submissionId"`
}

// Health states.
const (
	HealthUp   = "UP"
	HealthDown = "DOWN"
)

// Health is the engine's load report.
type Health struct {
	Status             string  `json:"status"`
	QueueSize          int     `json:"queueSize"`
	ActiveWorkers      int     `json:"activeWorkers"`
	AvgExecutionTimeMs float64 `json:"avgExecutionTimeMs"`
}

// Up reports whether the engine accepts work.
func (h Health) Up() bool {
	return h.Status == HealthUp
}
