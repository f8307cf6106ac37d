// Package realtime delivers pushed status updates for one submission at a time.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"algocrack/internal/submission/model"
)

// EventKind classifies an inbound frame.
type EventKind int

const (
	// EventStatus is an interim status update without result fields.
	EventStatus EventKind = iota
	// EventResult is a completed submission carrying its outcome.
	EventResult
	// EventError is a failed submission or a broker-side error frame.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one decoded realtime frame.
type Event struct {
	Kind         EventKind
	SubmissionID string
	Status       model.Status
	Result       model.Result
	Message      string
}

// Terminal reports whether no further frames are expected for the submission.
func (e Event) Terminal() bool {
	return e.Kind != EventStatus || e.Status.IsTerminal()
}

// Decode parses a frame body. ok is false for frames that carry no status.
func Decode(body []byte) (Event, bool, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Event{}, false, nil
	}
	var frame model.StatusEvent
	if err := json.Unmarshal(body, &frame); err != nil {
		return Event{}, false, fmt.Errorf("decode status frame failed: %w", err)
	}
	if frame.Status == "" {
		return Event{}, false, nil
	}
	return Classify(frame), true, nil
}

// Classify maps a frame to an event: FAILED and ERROR are errors, COMPLETED is a result,
// anything else is an interim status.
func Classify(frame model.StatusEvent) Event {
	ev := Event{SubmissionID: frame.SubmissionID.String(), Status: frame.Status}
	switch {
	case frame.Status.IsFailure():
		ev.Kind = EventError
		ev.Message = frame.FailureMessage()
	case frame.Status == model.StatusCompleted:
		ev.Kind = EventResult
		ev.Result = frame.Result()
	default:
		ev.Kind = EventStatus
	}
	return ev
}
