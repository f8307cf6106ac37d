package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	. "algocrack/pkg/errors"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusOK, Success},
		{http.StatusBadRequest, InvalidParams},
		{http.StatusUnauthorized, Unauthorized},
		{http.StatusForbidden, Forbidden},
		{http.StatusNotFound, NotFound},
		{http.StatusUnprocessableEntity, ValidationFailed},
		{http.StatusTooManyRequests, TooManyRequests},
		{http.StatusBadGateway, ServiceUnavailable},
		{http.StatusInternalServerError, InternalServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := FromHTTPStatus(tt.status); got != tt.want {
				t.Errorf("FromHTTPStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestFromStatusKeepsBodyVerbatim(t *testing.T) {
	err := FromStatus(http.StatusBadRequest, []byte("language must be one of java, python\n"))
	if err.Code != InvalidParams {
		t.Fatalf("unexpected code: %v", err.Code)
	}
	if err.Error() != "language must be one of java, python" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if Status(err) != http.StatusBadRequest {
		t.Fatalf("status detail missing: %v", err.Details)
	}
}

func TestFromStatusEmptyBody(t *testing.T) {
	err := FromStatus(http.StatusInternalServerError, nil)
	if err.Error() != "API Error: 500" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestFromStatusRateLimitHasDistinctMessage(t *testing.T) {
	err := FromStatus(http.StatusTooManyRequests, []byte("bucket empty"))
	if err.Error() != TooManyRequests.Message() {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	base := New(PollTimeout)
	wrapped := fmt.Errorf("submit flow: %w", base)
	if GetCode(wrapped) != PollTimeout {
		t.Fatalf("code lost through wrapping")
	}
	if !Is(wrapped, PollTimeout) {
		t.Fatalf("Is should see through wrapping")
	}
	if GetCode(errors.New("plain")) != InternalServerError {
		t.Fatalf("plain errors should map to InternalServerError")
	}
	if GetCode(nil) != Success {
		t.Fatalf("nil should map to Success")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrapf(cause, NetworkError, "request failed")
	if !errors.Is(err, cause) {
		t.Fatalf("cause should be reachable")
	}
	if Wrap(nil, NetworkError) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}
