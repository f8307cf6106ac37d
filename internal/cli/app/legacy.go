package app

import (
	"context"
	"strconv"

	"algocrack/internal/execution"
	"algocrack/internal/submission/lifecycle"
	"algocrack/internal/submission/model"
	"algocrack/internal/submission/store"
	"algocrack/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecuteLegacy runs code on the execution engine directly and polls it with the run
// budget. The session's state tracks it like a run.
func (a *App) ExecuteLegacy(ctx context.Context, sessionID string, in lifecycle.RunInput) (store.Snapshot, error) {
	st := a.Actions.State(sessionID)
	localID := uuid.NewString()
	if err := st.TryStartRun(localID); err != nil {
		return st.Snapshot(), err
	}
	ctx = logger.WithSubmission(logger.WithSession(ctx, sessionID), localID)
	stamp := st.Stamp()

	fail := func(err error) (store.Snapshot, error) {
		if applyErr := st.ApplyError(stamp, err.Error()); applyErr != nil {
			logger.Debug(ctx, "legacy failure not recorded", zap.Error(applyErr))
		}
		return st.Snapshot(), err
	}

	cases, err := execution.TestCases(in.TestCases)
	if err != nil {
		return fail(err)
	}
	req := execution.Request{
		SubmissionID: localID,
		QuestionID:   in.QuestionID,
		Language:     in.Language,
		Code:         in.Code,
		TestCases:    cases,
	}
	if id, err := strconv.ParseInt(a.Tokens.State().UserID, 10, 64); err == nil {
		req.UserID = id
	}
	acc, err := a.Execution.Submit(ctx, req)
	if err != nil {
		return fail(err)
	}
	if err := st.Acknowledge(localID, model.SubmitResponse{SubmissionID: acc.SubmissionID, Status: acc.Status}); err != nil {
		return st.Snapshot(), err
	}
	target := lifecycle.Target{SessionID: sessionID, SubmissionID: acc.SubmissionID.String()}
	if err := a.Legacy.Follow(ctx, target, st); err != nil {
		stamp = st.Stamp()
		return fail(err)
	}
	return st.Snapshot(), nil
}
