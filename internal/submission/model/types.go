package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID is an identifier the services encode either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp accepts RFC 3339 and zone-less ISO local date-times. Zone-less values are UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// TestCaseInput is one entry of a run request.
type TestCaseInput struct {
	Input string `json:"input"`
}

// TestCaseResult is the outcome of one testcase, in testcase-list order.
// Passed is nil while the case has not been judged.
type TestCaseResult struct {
	Index           int     `json:"index"`
	Passed          *bool   `json:"passed"`
	ActualOutput    string  `json:"actualOutput"`
	ExpectedOutput  *string `json:"expectedOutput,omitempty"`
	ExecutionTimeMs int64   `json:"executionTimeMs"`
	MemoryBytes     *int64  `json:"memoryBytes,omitempty"`
	Error           *string `json:"error"`
	ErrorType       *string `json:"errorType,omitempty"`
}

// RunRequest is the body of POST /submissions/run.
type RunRequest struct {
	QuestionID      int64           `json:"questionId"`
	Language        string          `json:"language"`
	Code            string          `json:"code"`
	CustomTestCases []TestCaseInput `json:"customTestCases"`
}

// RunResponse is the synchronous run outcome.
type RunResponse struct {
	Verdict           Verdict          `json:"verdict"`
	Success           bool             `json:"success"`
	RuntimeMs         *int64           `json:"runtimeMs"`
	MemoryKb          *int64           `json:"memoryKb"`
	CompilationOutput *string          `json:"compilationOutput"`
	ErrorMessage      *string          `json:"errorMessage"`
	TestCaseResults   []TestCaseResult `json:"testCaseResults"`
}

// SubmitRequest is the body of POST /submissions.
type SubmitRequest struct {
	UserID     string `json:"userId"`
	QuestionID int64  `json:"questionId"`
	Language   string `json:"language"`
	Code       string `json:"code"`
	IPAddress  string `json:"ipAddress,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	SubmissionID ID     `json:"submissionId"`
	Status       Status `json:"status"`
	Message      string `json:"message"`
}

// Submission is the full record returned by GET /submissions/{id}.
type Submission struct {
	SubmissionID      ID               `json:"submissionId"`
	UserID            ID               `json:"userId"`
	QuestionID        int64            `json:"questionId"`
	Language          string           `json:"language"`
	Code              string           `json:"code"`
	Status            Status           `json:"status"`
	Verdict           *Verdict         `json:"verdict"`
	RuntimeMs         *int64           `json:"runtimeMs"`
	MemoryKb          *int64           `json:"memoryKb"`
	PassedTestCases   *int             `json:"passedTestCases"`
	TotalTestCases    *int             `json:"totalTestCases"`
	ErrorMessage      *string          `json:"errorMessage"`
	CompilationOutput *string          `json:"compilationOutput,omitempty"`
	TestCaseResults   []TestCaseResult `json:"testCaseResults,omitempty"`
	QueuedAt          *Timestamp       `json:"queuedAt"`
	StartedAt         *Timestamp       `json:"startedAt"`
	CompletedAt       *Timestamp       `json:"completedAt"`
}

// StatusEvent is a realtime frame for one submission.
type StatusEvent struct {
	SubmissionID      ID               `json:"submissionId"`
	Status            Status           `json:"status"`
	Verdict           *Verdict         `json:"verdict,omitempty"`
	RuntimeMs         *int64           `json:"runtimeMs,omitempty"`
	MemoryKb          *int64           `json:"memoryKb,omitempty"`
	PassedTestCases   *int             `json:"passedTestCases,omitempty"`
	TotalTestCases    *int             `json:"totalTestCases,omitempty"`
	ErrorMessage      *string          `json:"errorMessage,omitempty"`
	Error             *string          `json:"error,omitempty"`
	CompilationOutput *string          `json:"compilationOutput,omitempty"`
	TestCaseResults   []TestCaseResult `json:"testCaseResults,omitempty"`
}

// Page is the paged envelope used by list endpoints.
type Page[T any] struct {
	Content  []T `json:"content"`
	Pageable struct {
		PageNumber int `json:"pageNumber"`
		PageSize   int `json:"pageSize"`
	} `json:"pageable"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}
