package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "algocrack/pkg/errors"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// HeaderMessageID carries the submission id on judge status events.
const HeaderMessageID = "x-message-id"

// KafkaConfig configures consumption of judge status events.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// GroupPrefix names the per-subscription consumer group. Each Open uses a fresh group
	// so every watcher sees every partition from the latest offset.
	GroupPrefix string
	MinBytes    int
	MaxBytes    int
	MaxWait     time.Duration
}

// MessageReader is the subset of *kafka.Reader used by the transport.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaTransport reads status events from a topic keyed by submission id.
type KafkaTransport struct {
	cfg       KafkaConfig
	newReader func(kafka.ReaderConfig) MessageReader
}

func NewKafkaTransport(cfg KafkaConfig) (*KafkaTransport, error) {
	if len(cfg.Brokers) == 0 {
		return nil, pkgerrors.ValidationError("brokers", "required")
	}
	if cfg.Topic == "" {
		return nil, pkgerrors.ValidationError("topic", "required")
	}
	return newKafkaTransport(cfg, func(rc kafka.ReaderConfig) MessageReader {
		return kafka.NewReader(rc)
	}), nil
}

// NewKafkaTransportWithReader builds a transport over a custom reader factory.
func NewKafkaTransportWithReader(cfg KafkaConfig, newReader func(kafka.ReaderConfig) MessageReader) *KafkaTransport {
	return newKafkaTransport(cfg, newReader)
}

func newKafkaTransport(cfg KafkaConfig, newReader func(kafka.ReaderConfig) MessageReader) *KafkaTransport {
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "algocrack-watch"
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 1 << 20
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	return &KafkaTransport{cfg: cfg, newReader: newReader}
}

// ReaderConfig returns the reader settings used for one subscription.
func (t *KafkaTransport) ReaderConfig() kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     t.cfg.Brokers,
		Topic:       t.cfg.Topic,
		GroupID:     t.cfg.GroupPrefix + "-" + uuid.NewString(),
		MinBytes:    t.cfg.MinBytes,
		MaxBytes:    t.cfg.MaxBytes,
		MaxWait:     t.cfg.MaxWait,
		StartOffset: kafka.LastOffset,
	}
}

func (t *KafkaTransport) Open(ctx context.Context, submissionID string) (Stream, error) {
	reader := t.newReader(t.ReaderConfig())
	streamCtx, cancel := context.WithCancel(ctx)
	s := &kafkaStream{
		reader: reader,
		id:     submissionID,
		out:    make(chan []byte),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.pump(streamCtx)
	return s, nil
}

// MatchesSubmission reports whether msg belongs to submissionID, by key or id header.
func MatchesSubmission(msg kafka.Message, submissionID string) bool {
	if string(msg.Key) == submissionID {
		return true
	}
	for _, h := range msg.Headers {
		if h.Key == HeaderMessageID && string(h.Value) == submissionID {
			return true
		}
	}
	return false
}

type kafkaStream struct {
	reader MessageReader
	id     string
	out    chan []byte
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func (s *kafkaStream) pump(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}
		if !MatchesSubmission(msg, s.id) {
			continue
		}
		select {
		case s.out <- msg.Value:
		case <-ctx.Done():
			return
		}
	}
}

func (s *kafkaStream) Messages() <-chan []byte {
	return s.out
}

func (s *kafkaStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *kafkaStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		err = s.reader.Close()
	})
	return err
}
