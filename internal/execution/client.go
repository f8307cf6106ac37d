// Package execution is a client for the code-execution engine's direct API. It predates
// the submission service's run endpoint and is kept for health checks and for engines
// that are reachable directly.
package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"algocrack/internal/client/transport"
	"algocrack/internal/submission/model"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// BasePath is the engine's route prefix.
const BasePath = "/api/v1/execution"

// Requester is the transport surface used by the client.
type Requester interface {
	Request(ctx context.Context, method, path string, in, out interface{}, opts ...transport.Option) (transport.ResponseInfo, error)
}

// Client talks to the execution engine. Requests are sent without credentials.
type Client struct {
	http Requester
}

func New(http Requester) *Client {
	return &Client{http: http}
}

// TestCases converts editor inputs. At least one is required and each must be a JSON object.
func TestCases(cases []model.TestCaseInput) ([]TestCase, error) {
	if len(cases) == 0 {
		return nil, pkgerrors.New(pkgerrors.TestCaseListEmpty)
	}
	out := make([]TestCase, 0, len(cases))
	for i, tc := range cases {
		raw := strings.TrimSpace(tc.Input)
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return nil, pkgerrors.ValidationError(fmt.Sprintf("testCases[%d]", i), "input must be a JSON object")
		}
		out = append(out, TestCase{Input: json.RawMessage(raw)})
	}
	return out, nil
}

// Submit queues code for execution.
func (c *Client) Submit(ctx context.Context, req Request) (Accepted, error) {
	var resp Accepted
	if req.QuestionID <= 0 {
		return resp, pkgerrors.ValidationError("questionId", "must be positive")
	}
	if strings.TrimSpace(req.Language) == "" {
		return resp, pkgerrors.ValidationError("language", "required")
	}
	req.Language = strings.ToLower(req.Language)
	if _, err := c.http.Request(ctx, http.MethodPost, BasePath+"/submit", req, &resp, transport.WithSkipAuth()); err != nil {
		return resp, err
	}
	if resp.SubmissionID == "" {
		return resp, pkgerrors.New(pkgerrors.MissingSubmission)
	}
	logger.Info(logger.WithSubmission(ctx, resp.SubmissionID.String()), "execution queued", zap.String("status", resp.Status.String()))
	return resp, nil
}

// Status fetches the progress of an execution.
func (c *Client) Status(ctx context.Context, submissionID string) (StatusResponse, error) {
	var resp StatusResponse
	err := c.get(ctx, "status", submissionID, &resp)
	return resp, err
}

// Results fetches the outcome of a finished execution.
func (c *Client) Results(ctx context.Context, submissionID string) (Results, error) {
	var resp Results
	err := c.get(ctx, "results", submissionID, &resp)
	return resp, err
}

// Cancel stops a queued or running execution.
func (c *Client) Cancel(ctx context.Context, submissionID string) (CancelResponse, error) {
	var resp CancelResponse
	path, err := idPath("cancel", submissionID)
	if err != nil {
		return resp, err
	}
	_, err = c.http.Request(ctx, http.MethodDelete, path, nil, &resp, transport.WithSkipAuth())
	return resp, err
}

// Health reports the engine's load.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var resp Health
	_, err := c.http.Request(ctx, http.MethodGet, BasePath+"/health", nil, &resp, transport.WithSkipAuth())
	return resp, err
}

// Get implements poller.Fetcher. A completed execution is returned with its testcase results.
func (c *Client) Get(ctx context.Context, submissionID string) (model.Submission, error) {
	st, err := c.Status(ctx, submissionID)
	if err != nil {
		return model.Submission{}, err
	}
	sub := model.Submission{
		SubmissionID: model.ID(submissionID),
		Status:       st.Status,
		Verdict:      st.Verdict,
		RuntimeMs:    st.RuntimeMs,
		MemoryKb:     st.MemoryKb,
	}
	if st.Status != model.StatusCompleted {
		return sub, nil
	}

	res, err := c.Results(ctx, submissionID)
	if err != nil {
		return model.Submission{}, err
	}
	if res.Verdict != "" {
		verdict := res.Verdict
		sub.Verdict = &verdict
	}
	if res.RuntimeMs != nil {
		sub.RuntimeMs = res.RuntimeMs
	}
	sub.TestCaseResults = res.TestCaseResults
	passed, total := 0, len(res.TestCaseResults)
	for _, r := range res.TestCaseResults {
		if r.Passed != nil && *r.Passed {
			passed++
		}
	}
	sub.PassedTestCases = &passed
	sub.TotalTestCases = &total
	return sub, nil
}

func (c *Client) get(ctx context.Context, action, submissionID string, out interface{}) error {
	path, err := idPath(action, submissionID)
	if err != nil {
		return err
	}
	_, err = c.http.Request(ctx, http.MethodGet, path, nil, out, transport.WithSkipAuth())
	return err
}

func idPath(action, submissionID string) (string, error) {
	if strings.TrimSpace(submissionID) == "" {
		return "", pkgerrors.ValidationError("submissionId", "required")
	}
	return fmt.Sprintf("%s/%s/%s", BasePath, action, url.PathEscape(submissionID)), nil
}
