package lifecycle

import (
	"context"

	"algocrack/internal/submission/api"
	"algocrack/internal/submission/model"
	"algocrack/internal/submission/store"
	"algocrack/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionAPI is the service surface used by Actions.
type SubmissionAPI interface {
	Run(ctx context.Context, req model.RunRequest) (model.RunResponse, error)
	Submit(ctx context.Context, req model.SubmitRequest) (model.SubmitResponse, error)
}

// RunInput is a run of code against explicit testcases.
type RunInput struct {
	QuestionID int64
	Language   string
	Code       string
	TestCases  []model.TestCaseInput
}

// SubmitInput is an official submission.
type SubmitInput struct {
	UserID     string
	QuestionID int64
	Language   string
	Code       string
}

// Actions are the run and submit handlers of every editor session. Failures are written
// into the session's state as well as returned.
type Actions struct {
	api         SubmissionAPI
	coordinator *Coordinator
	sessions    *store.Sessions
	newID       func() string
}

// ActionsOption configures Actions.
type ActionsOption func(*Actions)

// WithIDGenerator replaces the uuid generator used for run and provisional submission ids.
func WithIDGenerator(fn func() string) ActionsOption {
	return func(a *Actions) { a.newID = fn }
}

// WithSessions shares an existing session registry.
func WithSessions(sessions *store.Sessions) ActionsOption {
	return func(a *Actions) { a.sessions = sessions }
}

func NewActions(submissions SubmissionAPI, coordinator *Coordinator, opts ...ActionsOption) *Actions {
	a := &Actions{
		api:         submissions,
		coordinator: coordinator,
		sessions:    store.NewSessions(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the session's submission state.
func (a *Actions) State(sessionID string) *store.State {
	return a.sessions.Get(sessionID)
}

// Close forgets the session and its state.
func (a *Actions) Close(sessionID string) {
	a.sessions.Drop(sessionID)
}

// Run executes code synchronously and settles the session's state with the result.
func (a *Actions) Run(ctx context.Context, sessionID string, in RunInput) (store.Snapshot, error) {
	st := a.sessions.Get(sessionID)
	runID := a.newID()
	if err := st.TryStartRun(runID); err != nil {
		return st.Snapshot(), err
	}
	ctx = logger.WithSubmission(logger.WithSession(ctx, sessionID), runID)
	stamp := st.Stamp()

	req, err := api.BuildRunRequest(in.QuestionID, in.Language, in.Code, in.TestCases)
	if err != nil {
		return a.fail(ctx, st, stamp, err)
	}
	resp, err := a.api.Run(ctx, req)
	if err != nil {
		return a.fail(ctx, st, stamp, err)
	}
	if err := st.ApplyResults(stamp, resp.Result()); err != nil {
		return st.Snapshot(), err
	}
	return st.Snapshot(), nil
}

// Submit queues code for judging under a provisional id, re-keys the state to the issued
// id and follows the submission until it settles.
func (a *Actions) Submit(ctx context.Context, sessionID string, in SubmitInput) (store.Snapshot, error) {
	st := a.sessions.Get(sessionID)
	provisional := a.newID()
	if err := st.TryStartSubmission(provisional); err != nil {
		return st.Snapshot(), err
	}
	ctx = logger.WithSession(ctx, sessionID)
	stamp := st.Stamp()

	req, err := api.BuildSubmitRequest(in.UserID, in.QuestionID, in.Language, in.Code)
	if err != nil {
		return a.fail(ctx, st, stamp, err)
	}
	ack, err := a.api.Submit(ctx, req)
	if err != nil {
		return a.fail(ctx, st, stamp, err)
	}
	if err := st.Acknowledge(provisional, ack); err != nil {
		return st.Snapshot(), err
	}

	target := Target{SessionID: sessionID, SubmissionID: ack.SubmissionID.String()}
	if err := a.coordinator.Follow(ctx, target, st); err != nil {
		return a.fail(ctx, st, st.Stamp(), err)
	}
	return st.Snapshot(), nil
}

func (a *Actions) fail(ctx context.Context, st *store.State, stamp store.Stamp, err error) (store.Snapshot, error) {
	logger.Warn(ctx, "action failed", zap.Error(err))
	if applyErr := st.ApplyError(stamp, err.Error()); applyErr != nil {
		logger.Debug(ctx, "failure not recorded", zap.Error(applyErr))
	}
	return st.Snapshot(), err
}
