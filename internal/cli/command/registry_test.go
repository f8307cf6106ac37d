package command_test

import (
	"net/http"
	"testing"

	"algocrack/internal/cli/command"
	"algocrack/internal/testutil"
)

func TestBuildQueryWithDefaults(t *testing.T) {
	cmd := command.Registry()["problem list"]
	params, err := command.ParseParams([]string{"difficulty=Easy", "q=two sum"})
	if err != nil {
		t.Fatalf("parse params failed: %v", err)
	}

	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	testutil.AssertEqual(t, req.Method, http.MethodGet, "method")
	testutil.AssertEqual(t, req.Path, "/api/v1/questions", "path")
	testutil.AssertEqual(t, req.Query.Encode(), "difficulty=Easy&page=0&search=two+sum&size=20", "query")
	testutil.AssertTrue(t, req.SkipAuth, "catalog reads skip auth")
	testutil.AssertEqual(t, req.Target, command.TargetProblem, "target")
}

func TestBuildPathParams(t *testing.T) {
	cmd := command.Registry()["submission list"]
	params := command.Params{}
	params.Set("user_id", "u 1")
	params.Set("question_id", "3")

	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	testutil.AssertEqual(t, req.Path, "/api/v1/submissions/user/u%201", "path")
	testutil.AssertEqual(t, req.Query.Get("questionId"), "3", "wire name")
	testutil.AssertFalse(t, req.SkipAuth, "history is authenticated")
}

func TestBuildRejectsBadInput(t *testing.T) {
	cmd := command.Registry()["problem solutions"]
	if _, err := command.BuildRequest(cmd, command.Params{}); err == nil {
		t.Fatalf("expected missing parameter error")
	}
	missing := command.Missing(cmd, command.Params{})
	testutil.AssertEqual(t, len(missing), 1, "missing fields")
	testutil.AssertEqual(t, missing[0].Name, "id", "missing field")

	params := command.Params{}
	params.Set("question_id", "abc")
	if _, err := command.BuildRequest(cmd, params); err == nil {
		t.Fatalf("expected invalid int error")
	}
	if _, err := command.ParseParams([]string{"novalue"}); err == nil {
		t.Fatalf("expected invalid param error")
	}
}

func TestUsageAndOrdering(t *testing.T) {
	cmds := command.Sorted(command.Registry())
	for i := 1; i < len(cmds); i++ {
		testutil.AssertTrue(t, cmds[i-1].Key() < cmds[i].Key(), "sorted keys")
	}
	testutil.AssertEqual(t, command.Registry()["user heatmap"].Usage(), "user heatmap user_id=<user_id> [year=<year>]", "usage")
}
