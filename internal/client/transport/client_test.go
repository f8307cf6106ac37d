package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"algocrack/internal/client/state"
	"algocrack/internal/client/transport"
	pkgerrors "algocrack/pkg/errors"

	"github.com/gin-gonic/gin"
)

type recordedRequest struct {
	auth  string
	trace string
	query url.Values
	body  string
}

type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
	server   *httptest.Server
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &fakeService{}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		data, _ := c.GetRawData()
		svc.mu.Lock()
		svc.requests = append(svc.requests, recordedRequest{
			auth:  c.GetHeader("Authorization"),
			trace: c.GetHeader(transport.TraceHeader),
			query: c.Request.URL.Query(),
			body:  string(data),
		})
		svc.mu.Unlock()
		c.Next()
	})
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "two-sum"})
	})
	router.POST("/echo", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"received": true})
	})
	router.DELETE("/empty", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/secure", func(c *gin.Context) {
		c.String(http.StatusUnauthorized, "token expired")
	})
	router.POST("/invalid", func(c *gin.Context) {
		c.String(http.StatusBadRequest, "language is required")
	})
	router.GET("/limited", func(c *gin.Context) {
		c.String(http.StatusTooManyRequests, "rate limited")
	})
	router.GET("/broken", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	router.GET("/garbled", func(c *gin.Context) {
		c.String(http.StatusOK, "{not json")
	})
	svc.server = httptest.NewServer(router)
	t.Cleanup(svc.server.Close)
	return svc
}

func (s *fakeService) last() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func (s *fakeService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newClient(svc *fakeService, tokens transport.TokenSource, redirect func(string)) *transport.Client {
	return transport.New(transport.Config{
		BaseURL:  svc.server.URL,
		Timeout:  2 * time.Second,
		Tokens:   tokens,
		Location: func() string { return "/problems/7" },
		Redirect: redirect,
	})
}

func TestGetAttachesBearerToken(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, state.NewMemory(state.TokenState{AccessToken: "tok"}), nil)

	var out struct {
		Name string `json:"name"`
	}
	if err := client.Get(context.Background(), "/ok", &out, transport.WithQuery(url.Values{"page": {"0"}})); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out.Name != "two-sum" {
		t.Fatalf("unexpected body: %+v", out)
	}
	req := svc.last()
	if req.auth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", req.auth)
	}
	if req.query.Get("page") != "0" {
		t.Fatalf("query not forwarded: %v", req.query)
	}
}

func TestSkipAuthOmitsToken(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, state.NewMemory(state.TokenState{AccessToken: "stale"}), nil)

	if err := client.Post(context.Background(), "/echo", map[string]string{"email": "a@b.c"}, nil, transport.WithSkipAuth()); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	req := svc.last()
	if req.auth != "" {
		t.Fatalf("expected no auth header, got %q", req.auth)
	}
	if req.body != `{"email":"a@b.c"}` {
		t.Fatalf("unexpected body: %s", req.body)
	}
}

func TestUnauthorizedClearsTokenAndRedirects(t *testing.T) {
	svc := newFakeService(t)
	tokens := state.NewMemory(state.TokenState{AccessToken: "tok"})
	var target string
	client := newClient(svc, tokens, func(s string) { target = s })

	err := client.Get(context.Background(), "/secure", nil)
	if !pkgerrors.Is(err, pkgerrors.Unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err.Error() != "Unauthorized" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if tokens.Token() != "" {
		t.Fatalf("token not cleared")
	}
	if target != "/auth/signin?next=%2Fproblems%2F7" {
		t.Fatalf("unexpected redirect target: %q", target)
	}

	if err := client.Get(context.Background(), "/ok", nil); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if auth := svc.last().auth; auth != "" {
		t.Fatalf("token sent after 401: %q", auth)
	}
}

func TestNonSuccessCarriesBodyText(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, nil, nil)

	err := client.Post(context.Background(), "/invalid", map[string]string{}, nil)
	if !pkgerrors.Is(err, pkgerrors.InvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
	if err.Error() != "language is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if pkgerrors.Status(err) != http.StatusBadRequest {
		t.Fatalf("unexpected status detail: %d", pkgerrors.Status(err))
	}

	err = client.Get(context.Background(), "/broken", nil)
	if err == nil || err.Error() != "API Error: 500" {
		t.Fatalf("unexpected error for empty body: %v", err)
	}

	err = client.Get(context.Background(), "/limited", nil)
	if !pkgerrors.Is(err, pkgerrors.TooManyRequests) {
		t.Fatalf("expected too many requests, got %v", err)
	}
	if err.Error() != pkgerrors.TooManyRequests.Message() {
		t.Fatalf("rate limit must use the fixed message, got %q", err.Error())
	}
}

func TestEmptyBodyLeavesOutputUntouched(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, nil, nil)

	out := map[string]interface{}{"kept": true}
	if err := client.Delete(context.Background(), "/empty", &out); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(out) != 1 || out["kept"] != true {
		t.Fatalf("output mutated: %v", out)
	}
}

func TestDecodeFailure(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, nil, nil)

	var out map[string]interface{}
	err := client.Get(context.Background(), "/garbled", &out)
	if !pkgerrors.Is(err, pkgerrors.DecodeFailed) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, nil, nil)
	svc.server.Close()

	err := client.Get(context.Background(), "/ok", nil)
	if !pkgerrors.Is(err, pkgerrors.NetworkError) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestCancelledContextSendsNothing(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.Get(ctx, "/ok", nil); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if svc.count() != 0 {
		t.Fatalf("request reached the service")
	}
}

func TestTraceHeaderFollowsContext(t *testing.T) {
	svc := newFakeService(t)
	client := newClient(svc, nil, nil)

	ctx := transport.WithTrace(context.Background(), "trace-1")
	for i := 0; i < 2; i++ {
		if err := client.Get(ctx, "/ok", nil); err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got := svc.last().trace; got != "trace-1" {
			t.Fatalf("unexpected trace header: %q", got)
		}
	}

	if err := client.Get(context.Background(), "/ok", nil); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	first := svc.last().trace
	if err := client.Get(context.Background(), "/ok", nil); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	second := svc.last().trace
	if first == "" || second == "" || first == second {
		t.Fatalf("expected distinct generated traces, got %q and %q", first, second)
	}
}
