package lifecycle_test

import (
	"context"
	"errors"
	"sync/atomic"

	"algocrack/internal/submission/realtime"
)

// chanTransport serves every open from one shared frame channel.
type chanTransport struct {
	frames chan []byte
	fail   bool
	opens  atomic.Int32
}

func (t *chanTransport) Open(ctx context.Context, submissionID string) (realtime.Stream, error) {
	t.opens.Add(1)
	if t.fail {
		return nil, errors.New("connection refused")
	}
	return &chanStream{frames: t.frames}, nil
}

type chanStream struct {
	frames chan []byte
}

func (s *chanStream) Messages() <-chan []byte { return s.frames }
func (s *chanStream) Err() error              { return nil }
func (s *chanStream) Close() error            { return nil }
