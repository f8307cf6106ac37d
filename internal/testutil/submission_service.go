package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"algocrack/internal/submission/model"

	"github.com/gin-gonic/gin"
)

const traceHeader = "X-Trace-Id"

// SubmissionService is a scripted fake of the submission service.
// Each GET of a submission consumes the next scripted reply; the last one repeats.
type SubmissionService struct {
	Server *httptest.Server

	mu          sync.Mutex
	scripts     map[string][]Reply
	gets        map[string][]time.Time
	runs        []model.RunRequest
	submits     []model.SubmitRequest
	runReply    Reply
	submitReply Reply
	history     []model.Submission
	authHeaders []string
	traces      []string
}

// Reply is one scripted response. A zero Status means 200.
type Reply struct {
	Status int
	Body   interface{}
}

func NewSubmissionService(t *testing.T) *SubmissionService {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &SubmissionService{
		scripts: make(map[string][]Reply),
		gets:    make(map[string][]time.Time),
	}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceHeader))
		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, c.GetHeader("Authorization"))
		s.traces = append(s.traces, traceID)
		s.mu.Unlock()
		if traceID != "" {
			c.Writer.Header().Set(traceHeader, traceID)
		}
		c.Next()
	})
	group := router.Group("/api/v1/submissions")
	group.POST("/run", s.handleRun)
	group.POST("", s.handleSubmit)
	group.GET("/user/:userId", s.handleHistory)
	group.GET("/:id", s.handleGet)
	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Server.Close)
	return s
}

func (s *SubmissionService) URL() string {
	return s.Server.URL
}

// Script sets the replies for GET /submissions/{id}.
func (s *SubmissionService) Script(id string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[id] = append([]Reply(nil), replies...)
}

func (s *SubmissionService) SetRunReply(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runReply = r
}

func (s *SubmissionService) SetSubmitReply(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitReply = r
}

func (s *SubmissionService) SetHistory(subs []model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = subs
}

// Gets returns the arrival times of GET requests for id.
func (s *SubmissionService) Gets(id string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.gets[id]...)
}

func (s *SubmissionService) Runs() []model.RunRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RunRequest(nil), s.runs...)
}

func (s *SubmissionService) Submits() []model.SubmitRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SubmitRequest(nil), s.submits...)
}

// AuthHeaders returns the Authorization header of every request received.
func (s *SubmissionService) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

// Traces returns the X-Trace-Id header of every request received.
func (s *SubmissionService) Traces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.traces...)
}

func (s *SubmissionService) handleRun(c *gin.Context) {
	var req model.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.runs = append(s.runs, req)
	reply := s.runReply
	s.mu.Unlock()
	write(c, reply)
}

func (s *SubmissionService) handleSubmit(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.submits = append(s.submits, req)
	reply := s.submitReply
	s.mu.Unlock()
	write(c, reply)
}

func (s *SubmissionService) handleGet(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	s.gets[id] = append(s.gets[id], time.Now())
	replies := s.scripts[id]
	var reply Reply
	switch len(replies) {
	case 0:
		reply = Reply{Status: http.StatusNotFound, Body: "submission not found"}
	case 1:
		reply = replies[0]
	default:
		reply = replies[0]
		s.scripts[id] = replies[1:]
	}
	s.mu.Unlock()
	write(c, reply)
}

func (s *SubmissionService) handleHistory(c *gin.Context) {
	s.mu.Lock()
	history := s.history
	s.mu.Unlock()
	c.JSON(http.StatusOK, history)
}

func write(c *gin.Context, r Reply) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	switch body := r.Body.(type) {
	case nil:
		c.Status(status)
	case string:
		c.String(status, body)
	default:
		c.JSON(status, body)
	}
}

// Running returns a submission record in the given non-terminal status.
func Running(id string, status model.Status) model.Submission {
	return model.Submission{SubmissionID: model.ID(id), Status: status}
}

// Completed returns a settled submission record with a verdict and counts.
func Completed(id string, verdict model.Verdict, passed, total int) model.Submission {
	runtime, memory := int64(12), int64(2048)
	return model.Submission{
		SubmissionID:    model.ID(id),
		Status:          model.StatusCompleted,
		Verdict:         &verdict,
		RuntimeMs:       &runtime,
		MemoryKb:        &memory,
		PassedTestCases: &passed,
		TotalTestCases:  &total,
	}
}

// Failed returns a failed submission record.
func Failed(id, message string) model.Submission {
	return model.Submission{SubmissionID: model.ID(id), Status: model.StatusFailed, ErrorMessage: &message}
}
