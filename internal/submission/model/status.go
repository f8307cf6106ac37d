// Package model defines the submission wire types shared by the run, submit, poll and realtime paths.
package model

import (
	"encoding/json"
	"strings"
)

// Status is the lifecycle state of a run or submission.
// Wire values are uppercase; decoding normalises case.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusQueued    Status = "QUEUED"
	StatusCompiling Status = "COMPILING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"

	// StatusError only appears on realtime frames and is handled like StatusFailed.
	StatusError Status = "ERROR"
)

// ParseStatus normalises a raw status string.
func ParseStatus(raw string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(raw)))
}

// UnmarshalJSON accepts any letter case.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// IsTerminal reports whether no further transition can follow.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusError:
		return true
	}
	return false
}

// IsFailure reports a failed delivery or judging error.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusError
}

func (s Status) String() string {
	return string(s)
}
