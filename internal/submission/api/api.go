// Package api builds and sends run and submit requests to the submission service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"algocrack/internal/client/transport"
	"algocrack/internal/submission/model"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// BasePath is the submission service route prefix.
const BasePath = "/api/v1/submissions"

// Requester is the transport surface used by the client.
type Requester interface {
	Request(ctx context.Context, method, path string, in, out interface{}, opts ...transport.Option) (transport.ResponseInfo, error)
}

// Client talks to the submission service.
type Client struct {
	http Requester
}

func New(http Requester) *Client {
	return &Client{http: http}
}

// BuildRunRequest shapes a run payload. At least one testcase is required.
func BuildRunRequest(questionID int64, language, code string, cases []model.TestCaseInput) (model.RunRequest, error) {
	if err := validateCommon(questionID, language); err != nil {
		return model.RunRequest{}, err
	}
	if len(cases) == 0 {
		return model.RunRequest{}, pkgerrors.New(pkgerrors.TestCaseListEmpty)
	}
	copied := make([]model.TestCaseInput, len(cases))
	copy(copied, cases)
	return model.RunRequest{
		QuestionID:      questionID,
		Language:        strings.ToLower(language),
		Code:            code,
		CustomTestCases: copied,
	}, nil
}

// BuildSubmitRequest shapes a submit payload. Testcases are never sent.
func BuildSubmitRequest(userID string, questionID int64, language, code string) (model.SubmitRequest, error) {
	if err := validateCommon(questionID, language); err != nil {
		return model.SubmitRequest{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return model.SubmitRequest{}, pkgerrors.ValidationError("userId", "required")
	}
	return model.SubmitRequest{
		UserID:     userID,
		QuestionID: questionID,
		Language:   strings.ToLower(language),
		Code:       code,
	}, nil
}

func validateCommon(questionID int64, language string) error {
	if questionID <= 0 {
		return pkgerrors.ValidationError("questionId", "must be positive")
	}
	if strings.TrimSpace(language) == "" {
		return pkgerrors.ValidationError("language", "required")
	}
	return nil
}

// Run executes code synchronously against the supplied testcases.
// An empty testcase list is rejected without a network call.
func (c *Client) Run(ctx context.Context, req model.RunRequest) (model.RunResponse, error) {
	var resp model.RunResponse
	if len(req.CustomTestCases) == 0 {
		return resp, pkgerrors.New(pkgerrors.TestCaseListEmpty)
	}
	if _, err := c.http.Request(ctx, http.MethodPost, BasePath+"/run", req, &resp); err != nil {
		return resp, err
	}
	logger.Debug(ctx, "run finished",
		zap.String("verdict", resp.Verdict.String()),
		zap.Int("testcases", len(resp.TestCaseResults)),
	)
	return resp, nil
}

// Submit queues code for official judging and returns the acknowledgement.
func (c *Client) Submit(ctx context.Context, req model.SubmitRequest) (model.SubmitResponse, error) {
	var resp model.SubmitResponse
	if _, err := c.http.Request(ctx, http.MethodPost, BasePath, req, &resp); err != nil {
		return resp, err
	}
	if resp.SubmissionID == "" {
		return resp, pkgerrors.New(pkgerrors.MissingSubmission)
	}
	if resp.Status == "" {
		resp.Status = model.StatusPending
	}
	logger.Info(logger.WithSubmission(ctx, resp.SubmissionID.String()), "submission accepted",
		zap.String("status", resp.Status.String()))
	return resp, nil
}

// Get fetches the current record of a submission.
func (c *Client) Get(ctx context.Context, submissionID string) (model.Submission, error) {
	var sub model.Submission
	if strings.TrimSpace(submissionID) == "" {
		return sub, pkgerrors.ValidationError("submissionId", "required")
	}
	path := fmt.Sprintf("%s/%s", BasePath, url.PathEscape(submissionID))
	if _, err := c.http.Request(ctx, http.MethodGet, path, nil, &sub); err != nil {
		return sub, err
	}
	return sub, nil
}

// HistoryQuery filters a user's submission history.
type HistoryQuery struct {
	Page       int
	Size       int
	QuestionID int64
}

// ListByUser returns a user's submissions, newest first by queue time.
func (c *Client) ListByUser(ctx context.Context, userID string, q HistoryQuery) ([]model.Submission, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.ValidationError("userId", "required")
	}
	if q.Size <= 0 {
		q.Size = 20
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("size", strconv.Itoa(q.Size))
	if q.QuestionID > 0 {
		values.Set("questionId", strconv.FormatInt(q.QuestionID, 10))
	}

	var subs []model.Submission
	path := fmt.Sprintf("%s/user/%s", BasePath, url.PathEscape(userID))
	if _, err := c.http.Request(ctx, http.MethodGet, path, nil, &subs, transport.WithQuery(values)); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	SortNewestFirst(subs)
	return subs, nil
}

// SortNewestFirst orders by queuedAt descending; records without one sort last.
func SortNewestFirst(subs []model.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		a, b := subs[i].QueuedAt, subs[j].QueuedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(b.Time)
	})
}
