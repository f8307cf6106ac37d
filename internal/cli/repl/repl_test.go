package repl_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"algocrack/internal/cli/app"
	"algocrack/internal/cli/repl"
	"algocrack/internal/client/config"
	"algocrack/internal/client/state"
	"algocrack/internal/submission/model"
	"algocrack/internal/testutil"
	pkgerrors "algocrack/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type scripted struct {
	lines []string
}

func (s *scripted) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func userToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "ada@example.com",
		"userId": 42,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

func newGateway(t *testing.T, token string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/questions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":                  1,
			"questionTitle":       "Two Sum",
			"questionDescription": "Find two numbers.\n\nConstraints:\n2 <= n",
			"difficultyLevel":     "Easy",
			"metadataList":        []gin.H{{"language": "java", "codeTemplate": "class Solution {}"}},
		})
	})
	router.GET("/api/v1/testcases/question/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": 1, "input": `{"nums":[2,7],"target":9}`, "orderIndex": 1, "type": "DEFAULT"}})
	})
	router.GET("/api/v1/tags", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": 1, "name": "array"}})
	})
	router.POST("/api/v1/auth/signin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": token, "type": "Bearer"})
	})
	router.GET("/api/v1/user/profile/:id", func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userDetails": gin.H{"name": "Ada"}})
	})
	router.GET("/api/v1/user/heatmap/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"totalSubmissions": 4, "totalActiveDays": 2})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

type harness struct {
	session *repl.Session
	out     *bytes.Buffer
	svc     *testutil.SubmissionService
	tokens  *state.TokenStore
}

func newHarness(t *testing.T, signedIn bool, lines ...string) *harness {
	t.Helper()
	token := userToken(t)
	gateway := newGateway(t, token)
	svc := testutil.NewSubmissionService(t)

	cfg := config.Config{}
	cfg.Services.Gateway = gateway.URL
	cfg.Services.Submission = svc.URL()
	cfg.Realtime.Mode = config.RealtimeOff
	cfg.Poll.Submit = config.Budget{Attempts: 5, Interval: 5 * time.Millisecond}
	cfg.TokenStatePath = ""
	config.ApplyDefaults(&cfg)

	initial := state.TokenState{}
	if signedIn {
		initial = state.TokenState{AccessToken: token, UserID: "42"}
	}
	tokens := state.NewMemory(initial)
	a, err := app.New(context.Background(), cfg, app.WithTokenStore(tokens))
	if err != nil {
		t.Fatalf("build app failed: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	out := &bytes.Buffer{}
	session := repl.New(a, out, repl.WithInput(&scripted{lines: lines}))
	return &harness{session: session, out: out, svc: svc, tokens: tokens}
}

func (h *harness) exec(t *testing.T, line string) {
	t.Helper()
	if err := h.session.Execute(context.Background(), line); err != nil {
		t.Fatalf("%s failed: %v\n%s", line, err, h.out.String())
	}
}

func (h *harness) assertOutput(t *testing.T, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(h.out.String(), p) {
			t.Fatalf("output missing %q:\n%s", p, h.out.String())
		}
	}
}

func TestRunLoopOpensEditsAndRuns(t *testing.T) {
	h := newHarness(t, false,
		"open 1",
		`tc add '{"nums":[1,2,3],"target":5}'`,
		"run",
		"exit",
	)
	passed := true
	h.svc.SetRunReply(testutil.Reply{Body: model.RunResponse{
		Verdict:         model.VerdictPassedRun,
		TestCaseResults: []model.TestCaseResult{{Index: 0, Passed: &passed}, {Index: 1, Passed: &passed}},
	}})

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("run loop failed: %v", err)
	}
	h.assertOutput(t, "1. Two Sum", "language java", "case 2: {\"nums\":[1,2,3],\"target\":5}", "All Tests Passed", "bye")

	runs := h.svc.Runs()
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	cases := runs[0].CustomTestCases
	testutil.AssertEqual(t, len(cases), 2, "testcases sent")
	testutil.AssertEqual(t, cases[1].Input, `{"nums":[1,2,3],"target":5}`, "added testcase last")
	testutil.AssertEqual(t, runs[0].Code, "class Solution {}", "template code")
}

func TestSubmitFollowsToVerdict(t *testing.T) {
	h := newHarness(t, true)
	h.svc.SetSubmitReply(testutil.Reply{Body: gin.H{"submissionId": "sub-9", "status": "QUEUED"}})
	h.svc.Script("sub-9",
		testutil.Reply{Body: testutil.Running("sub-9", model.StatusRunning)},
		testutil.Reply{Body: testutil.Completed("sub-9", model.VerdictAccepted, 3, 3)},
	)

	h.exec(t, "open 1")
	h.exec(t, "submit")
	h.assertOutput(t, "sub-9 RUNNING", "Accepted", "passed 3/3")

	submits := h.svc.Submits()
	if len(submits) != 1 || submits[0].UserID != "42" {
		t.Fatalf("unexpected submit payload %+v", submits)
	}
	traces := h.svc.Traces()
	if len(traces) < 2 || traces[0] == "" {
		t.Fatalf("expected traced requests, got %v", traces)
	}
	for _, id := range traces[1:] {
		testutil.AssertEqual(t, id, traces[0], "one trace per command")
	}
}

func TestSubmitReplaysAfterLogin(t *testing.T) {
	h := newHarness(t, false, "ada@example.com", "secret")
	h.svc.SetSubmitReply(testutil.Reply{Body: gin.H{"submissionId": "sub-1"}})
	h.svc.Script("sub-1", testutil.Reply{Body: testutil.Completed("sub-1", model.VerdictWrongAnswer, 1, 3)})

	h.exec(t, "open 1")
	if err := h.session.Execute(context.Background(), "submit"); !pkgerrors.Is(err, pkgerrors.Unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	h.assertOutput(t, "sign-in required")

	h.exec(t, "login")
	h.assertOutput(t, "signed in as ada@example.com (user 42", "retrying: submit", "Wrong Answer")
	testutil.AssertEqual(t, len(h.svc.Submits()), 1, "submits")
}

func TestUnauthorizedRequestReplaysAfterLogin(t *testing.T) {
	h := newHarness(t, false)
	if err := h.session.Execute(context.Background(), "profile user_id=42"); !pkgerrors.Is(err, pkgerrors.Unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	h.exec(t, "login email=ada@example.com password=secret")
	h.assertOutput(t, "retrying: profile user_id=42", "Ada", "4 submissions on 2 days")
	testutil.AssertTrue(t, h.tokens.Token() != "", "token stored")
}

func TestRawCommandAndEditorErrors(t *testing.T) {
	h := newHarness(t, false)
	h.exec(t, "problem tags")
	h.assertOutput(t, "HTTP 200", `"name":"array"`)

	if err := h.session.Execute(context.Background(), "run"); !pkgerrors.Is(err, pkgerrors.ProblemNotLoaded) {
		t.Fatalf("expected problem not loaded, got %v", err)
	}
	h.exec(t, "open 1")
	if err := h.session.Execute(context.Background(), "tc rm 1"); err == nil {
		t.Fatalf("removing a default testcase must fail")
	}
	if err := h.session.Execute(context.Background(), "lang cpp"); !pkgerrors.Is(err, pkgerrors.LanguageMissing) {
		t.Fatalf("expected language missing, got %v", err)
	}
	if err := h.session.Execute(context.Background(), "nope nope"); err == nil {
		t.Fatalf("unknown command must fail")
	}
}
