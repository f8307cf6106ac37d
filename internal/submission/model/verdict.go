package model

// Verdict is a run or submit outcome. The two vocabularies never share a value.
type Verdict string

// Run verdicts, produced by the synchronous run endpoint.
const (
	VerdictPassedRun           Verdict = "PASSED_RUN"
	VerdictFailedRun           Verdict = "FAILED_RUN"
	VerdictCompilationErrorRun Verdict = "COMPILATION_ERROR_RUN"
	VerdictRuntimeErrorRun     Verdict = "RUNTIME_ERROR_RUN"
	VerdictTimeoutRun          Verdict = "TIMEOUT_RUN"
	VerdictMemoryLimitRun      Verdict = "MEMORY_LIMIT_RUN"
	VerdictInternalErrorRun    Verdict = "INTERNAL_ERROR_RUN"
)

// Submit verdicts, produced by official judging.
const (
	VerdictAccepted            Verdict = "ACCEPTED"
	VerdictWrongAnswer         Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded   Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictRuntimeError        Verdict = "RUNTIME_ERROR"
	VerdictCompilationError    Verdict = "COMPILATION_ERROR"
	VerdictMemoryLimitExceeded Verdict = "MEMORY_LIMIT_EXCEEDED"
)

// Colour names used by the display table.
const (
	ColorGreen  = "green"
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorBlue   = "blue"
	ColorGray   = "gray"
)

// VerdictDisplay is how a verdict is presented.
type VerdictDisplay struct {
	Label     string
	Color     string
	IsSuccess bool
}

var verdictDisplay = map[Verdict]VerdictDisplay{
	VerdictPassedRun:           {Label: "All Tests Passed", Color: ColorGreen, IsSuccess: true},
	VerdictFailedRun:           {Label: "Wrong Answer", Color: ColorRed},
	VerdictCompilationErrorRun: {Label: "Compilation Error", Color: ColorOrange},
	VerdictRuntimeErrorRun:     {Label: "Runtime Error", Color: ColorOrange},
	VerdictTimeoutRun:          {Label: "Time Limit Exceeded", Color: ColorOrange},
	VerdictMemoryLimitRun:      {Label: "Memory Limit Exceeded", Color: ColorOrange},
	VerdictInternalErrorRun:    {Label: "Internal Error", Color: ColorRed},

	VerdictAccepted:            {Label: "Accepted", Color: ColorGreen, IsSuccess: true},
	VerdictWrongAnswer:         {Label: "Wrong Answer", Color: ColorRed},
	VerdictTimeLimitExceeded:   {Label: "Time Limit Exceeded", Color: ColorOrange},
	VerdictRuntimeError:        {Label: "Runtime Error", Color: ColorOrange},
	VerdictCompilationError:    {Label: "Compilation Error", Color: ColorOrange},
	VerdictMemoryLimitExceeded: {Label: "Memory Limit Exceeded", Color: ColorOrange},
}

// Display returns the presentation of v. Unknown verdicts show their raw value in gray.
func (v Verdict) Display() VerdictDisplay {
	if d, ok := verdictDisplay[v]; ok {
		return d
	}
	return VerdictDisplay{Label: string(v), Color: ColorGray}
}

// Known reports whether v belongs to either vocabulary.
func (v Verdict) Known() bool {
	_, ok := verdictDisplay[v]
	return ok
}

// IsRun reports whether v belongs to the run vocabulary.
func (v Verdict) IsRun() bool {
	switch v {
	case VerdictPassedRun, VerdictFailedRun, VerdictCompilationErrorRun, VerdictRuntimeErrorRun,
		VerdictTimeoutRun, VerdictMemoryLimitRun, VerdictInternalErrorRun:
		return true
	}
	return false
}

func (v Verdict) String() string {
	return string(v)
}
