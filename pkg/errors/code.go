package errors

import "net/http"

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: Transport & common errors
// 11000-11999: Session & auth errors
// 12000-12999: Problem catalog errors
// 13000-13999: Run & submission lifecycle errors
// 14000-14999: Realtime delivery errors

const (
	// ========== Transport & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008
	NetworkError        ErrorCode = 10009
	DecodeFailed        ErrorCode = 10010

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300
	InvalidValue     ErrorCode = 10302

	// ========== Session & Auth Errors (11000-11999) ==========

	InvalidCredentials ErrorCode = 11000
	TokenExpired       ErrorCode = 11003
	TokenInvalid       ErrorCode = 11004
	SessionStateFailed ErrorCode = 11010

	// ========== Problem Catalog Errors (12000-12999) ==========

	ProblemNotFound  ErrorCode = 12000
	ProblemNotLoaded ErrorCode = 12010
	LanguageMissing  ErrorCode = 12011

	// ========== Run & Submission Lifecycle Errors (13000-13999) ==========

	SubmissionNotFound  ErrorCode = 13000
	TestCaseListEmpty   ErrorCode = 13010
	PollTimeout         ErrorCode = 13011
	StaleUpdate         ErrorCode = 13012
	SubmissionSettled   ErrorCode = 13013
	SubmissionBusy      ErrorCode = 13014
	MissingSubmission   ErrorCode = 13015
	SubmissionUnsettled ErrorCode = 13016

	// ========== Realtime Delivery Errors (14000-14999) ==========

	RealtimeUnavailable ErrorCode = 14000
	RealtimeClosed      ErrorCode = 14001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized",
	Forbidden:           "Forbidden",
	TooManyRequests:     "Too many requests, please slow down and try again shortly",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",
	NetworkError:        "Network request failed",
	DecodeFailed:        "Failed to decode response",

	CacheError: "Cache operation failed",

	ValidationFailed: "Validation failed",
	InvalidValue:     "Invalid value",

	InvalidCredentials: "Invalid email or password",
	TokenExpired:       "Token has expired",
	TokenInvalid:       "Invalid token",
	SessionStateFailed: "Failed to persist session state",

	ProblemNotFound:  "Problem not found",
	ProblemNotLoaded: "No problem is loaded",
	LanguageMissing:  "Language is not available for this problem",

	SubmissionNotFound:  "Submission not found",
	TestCaseListEmpty:   "At least one testcase is required to run",
	PollTimeout:         "Timed out waiting for submission result",
	StaleUpdate:         "Update is older than the current submission state",
	SubmissionSettled:   "Submission already has a final result",
	SubmissionBusy:      "Another run or submission is in progress",
	MissingSubmission:   "No submission identifier returned",
	SubmissionUnsettled: "Submission updates ended without a final result",

	RealtimeUnavailable: "Realtime updates unavailable",
	RealtimeClosed:      "Realtime subscription closed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// FromHTTPStatus maps a response status to the error code used for it.
func FromHTTPStatus(status int) ErrorCode {
	switch {
	case status >= 200 && status < 300:
		return Success
	case status == http.StatusUnauthorized:
		return Unauthorized
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusTooManyRequests:
		return TooManyRequests
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return Timeout
	case status == http.StatusUnprocessableEntity:
		return ValidationFailed
	case status >= 400 && status < 500:
		return InvalidParams
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway:
		return ServiceUnavailable
	default:
		return InternalServerError
	}
}
