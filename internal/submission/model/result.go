package model

// DefaultFailureMessage is used when a failure frame carries no text.
const DefaultFailureMessage = "Submission Failed"

// Result is the settled outcome copied into the submission state.
type Result struct {
	Verdict           Verdict
	RuntimeMs         *int64
	MemoryKb          *int64
	PassedTestCases   *int
	TotalTestCases    *int
	ErrorMessage      *string
	CompilationOutput *string
	TestCaseResults   []TestCaseResult
}

// Result converts a run response.
func (r RunResponse) Result() Result {
	return Result{
		Verdict:           r.Verdict,
		RuntimeMs:         r.RuntimeMs,
		MemoryKb:          r.MemoryKb,
		PassedTestCases:   countPassed(r.TestCaseResults),
		TotalTestCases:    countTotal(r.TestCaseResults),
		ErrorMessage:      r.ErrorMessage,
		CompilationOutput: r.CompilationOutput,
		TestCaseResults:   r.TestCaseResults,
	}
}

// Result converts a fetched submission.
func (s Submission) Result() Result {
	var verdict Verdict
	if s.Verdict != nil {
		verdict = *s.Verdict
	}
	return Result{
		Verdict:           verdict,
		RuntimeMs:         s.RuntimeMs,
		MemoryKb:          s.MemoryKb,
		PassedTestCases:   s.PassedTestCases,
		TotalTestCases:    s.TotalTestCases,
		ErrorMessage:      s.ErrorMessage,
		CompilationOutput: s.CompilationOutput,
		TestCaseResults:   s.TestCaseResults,
	}
}

// FailureMessage returns the error text of a failed submission.
func (s Submission) FailureMessage() string {
	if s.ErrorMessage != nil && *s.ErrorMessage != "" {
		return *s.ErrorMessage
	}
	return DefaultFailureMessage
}

// Result converts a completed realtime frame.
func (e StatusEvent) Result() Result {
	var verdict Verdict
	if e.Verdict != nil {
		verdict = *e.Verdict
	}
	return Result{
		Verdict:           verdict,
		RuntimeMs:         e.RuntimeMs,
		MemoryKb:          e.MemoryKb,
		PassedTestCases:   e.PassedTestCases,
		TotalTestCases:    e.TotalTestCases,
		ErrorMessage:      e.ErrorMessage,
		CompilationOutput: e.CompilationOutput,
		TestCaseResults:   e.TestCaseResults,
	}
}

// FailureMessage returns errorMessage, then error, then the generic fallback.
func (e StatusEvent) FailureMessage() string {
	if e.ErrorMessage != nil && *e.ErrorMessage != "" {
		return *e.ErrorMessage
	}
	if e.Error != nil && *e.Error != "" {
		return *e.Error
	}
	return DefaultFailureMessage
}

func countPassed(results []TestCaseResult) *int {
	if results == nil {
		return nil
	}
	n := 0
	for _, r := range results {
		if r.Passed != nil && *r.Passed {
			n++
		}
	}
	return &n
}

func countTotal(results []TestCaseResult) *int {
	if results == nil {
		return nil
	}
	n := len(results)
	return &n
}
