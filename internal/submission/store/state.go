// Package store holds the current run or submission of one editor session.
package store

import (
	"context"
	"sync"

	"algocrack/internal/submission/model"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// Stamp orders writes. A State issues stamps in increasing order and rejects a write
// whose stamp is not newer than the last one it applied.
type Stamp uint64

// Snapshot is a copy of the session's current submission.
// Optional fields are nil when absent; TestCaseResults is never nil.
type Snapshot struct {
	SubmissionID      string
	Status            model.Status
	Verdict           *model.Verdict
	RuntimeMs         *int64
	MemoryKb          *int64
	PassedTestCases   *int
	TotalTestCases    *int
	ErrorMessage      *string
	CompilationOutput *string
	TestCaseResults   []model.TestCaseResult
	IsRunning         bool
	IsSubmitting      bool
}

// Busy reports whether a run or submission is in flight.
func (s Snapshot) Busy() bool {
	return s.IsRunning || s.IsSubmitting
}

func emptySnapshot() Snapshot {
	return Snapshot{TestCaseResults: []model.TestCaseResult{}}
}

// State is the mutable submission record of one session. It is safe for concurrent use.
type State struct {
	mu        sync.Mutex
	snap      Snapshot
	issued    Stamp
	applied   Stamp
	settled   bool
	listeners []func(Snapshot)
}

func New() *State {
	return &State{snap: emptySnapshot()}
}

// Snapshot returns a copy of the current record.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// OnChange registers fn to receive the record after every applied write.
func (s *State) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Stamp issues a stamp for a write whose request is about to start.
func (s *State) Stamp() Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// StartRun begins a run: clears prior results and errors, sets QUEUED and the running flag.
func (s *State) StartRun(id string) {
	s.start(id, model.StatusQueued, true)
}

// StartSubmission begins a submission: clears prior results and errors, sets PENDING and the submitting flag.
func (s *State) StartSubmission(id string) {
	s.start(id, model.StatusPending, false)
}

// TryStartRun is StartRun unless a run or submission is in flight, which fails with SubmissionBusy.
func (s *State) TryStartRun(id string) error {
	return s.tryStart(id, model.StatusQueued, true)
}

// TryStartSubmission is StartSubmission unless a run or submission is in flight.
func (s *State) TryStartSubmission(id string) error {
	return s.tryStart(id, model.StatusPending, false)
}

func (s *State) start(id string, status model.Status, running bool) {
	s.mutate(func() bool {
		s.startLocked(id, status, running)
		return true
	})
}

func (s *State) tryStart(id string, status model.Status, running bool) error {
	var err error
	s.mutate(func() bool {
		if s.snap.Busy() {
			err = pkgerrors.New(pkgerrors.SubmissionBusy).WithDetail("submissionId", s.snap.SubmissionID)
			return false
		}
		s.startLocked(id, status, running)
		return true
	})
	return err
}

func (s *State) startLocked(id string, status model.Status, running bool) {
	s.issued++
	s.applied = s.issued
	s.settled = false
	s.snap = emptySnapshot()
	s.snap.SubmissionID = id
	s.snap.Status = status
	s.snap.IsRunning = running
	s.snap.IsSubmitting = !running
}

// Acknowledge re-keys a submission started under a provisional id to the id issued by the service.
func (s *State) Acknowledge(provisionalID string, ack model.SubmitResponse) error {
	var err error
	s.mutate(func() bool {
		switch {
		case s.settled:
			err = pkgerrors.New(pkgerrors.SubmissionSettled)
		case s.snap.SubmissionID != provisionalID:
			err = pkgerrors.Newf(pkgerrors.StaleUpdate, "submission %s is no longer current", provisionalID)
		default:
			s.snap.SubmissionID = ack.SubmissionID.String()
			if ack.Status != "" {
				s.snap.Status = ack.Status
			}
			return true
		}
		return false
	})
	return err
}

// UpdateStatus overwrites the status only.
func (s *State) UpdateStatus(status model.Status) error {
	return s.ApplyStatus(s.Stamp(), status)
}

// SetResults settles the record with a result.
func (s *State) SetResults(res model.Result) error {
	return s.ApplyResults(s.Stamp(), res)
}

// SetError settles the record as failed, keeping any verdict and results already present.
func (s *State) SetError(message string) error {
	return s.ApplyError(s.Stamp(), message)
}

// ApplyStatus is UpdateStatus for a write stamped before its request started.
func (s *State) ApplyStatus(stamp Stamp, status model.Status) error {
	return s.apply(stamp, func() {
		s.snap.Status = status
	})
}

// ApplyResults clears both busy flags, sets COMPLETED and copies res.
// Absent optional fields become nil and absent testcase results an empty list.
func (s *State) ApplyResults(stamp Stamp, res model.Result) error {
	return s.apply(stamp, func() {
		verdict := res.Verdict
		s.snap.IsRunning = false
		s.snap.IsSubmitting = false
		s.snap.Status = model.StatusCompleted
		s.snap.Verdict = &verdict
		s.snap.RuntimeMs = res.RuntimeMs
		s.snap.MemoryKb = res.MemoryKb
		s.snap.PassedTestCases = res.PassedTestCases
		s.snap.TotalTestCases = res.TotalTestCases
		s.snap.ErrorMessage = res.ErrorMessage
		s.snap.CompilationOutput = res.CompilationOutput
		s.snap.TestCaseResults = res.TestCaseResults
		if s.snap.TestCaseResults == nil {
			s.snap.TestCaseResults = []model.TestCaseResult{}
		}
		s.settled = true
	})
}

// ApplyError clears both busy flags, sets FAILED and records message.
func (s *State) ApplyError(stamp Stamp, message string) error {
	return s.apply(stamp, func() {
		msg := message
		s.snap.IsRunning = false
		s.snap.IsSubmitting = false
		s.snap.Status = model.StatusFailed
		s.snap.ErrorMessage = &msg
		s.settled = true
	})
}

// SetCancelled settles the record as cancelled.
func (s *State) SetCancelled() error {
	return s.ApplyCancelled(s.Stamp())
}

// ApplyCancelled clears both busy flags and sets CANCELLED without touching results.
func (s *State) ApplyCancelled(stamp Stamp) error {
	return s.apply(stamp, func() {
		s.snap.IsRunning = false
		s.snap.IsSubmitting = false
		s.snap.Status = model.StatusCancelled
		s.settled = true
	})
}

// Reset returns to the initial empty record and invalidates every outstanding stamp.
func (s *State) Reset() {
	s.mutate(func() bool {
		s.issued++
		s.applied = s.issued
		s.settled = false
		s.snap = emptySnapshot()
		return true
	})
}

func (s *State) apply(stamp Stamp, fn func()) error {
	var err error
	var id string
	s.mutate(func() bool {
		id = s.snap.SubmissionID
		switch {
		case s.settled:
			err = pkgerrors.New(pkgerrors.SubmissionSettled).WithDetail("submissionId", id)
		case stamp <= s.applied:
			err = pkgerrors.New(pkgerrors.StaleUpdate).
				WithDetail("stamp", uint64(stamp)).
				WithDetail("applied", uint64(s.applied))
		default:
			s.applied = stamp
			fn()
			return true
		}
		return false
	})
	if err != nil {
		logger.Debug(logger.WithSubmission(context.Background(), id), "submission write rejected", zap.Error(err))
	}
	return err
}

// mutate runs fn under the lock and, when fn reports a change, notifies listeners after unlocking.
func (s *State) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	snap := s.copyLocked()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(snap)
	}
}

func (s *State) copyLocked() Snapshot {
	out := s.snap
	out.TestCaseResults = append([]model.TestCaseResult{}, s.snap.TestCaseResults...)
	return out
}
