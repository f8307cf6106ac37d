package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// STOMPConfig configures the websocket STOMP transport.
type STOMPConfig struct {
	// URL is the raw websocket endpoint, e.g. ws://host/ws/websocket.
	URL               string
	DestinationPrefix string
	HeartbeatOutgoing time.Duration
	HeartbeatIncoming time.Duration
	HandshakeTimeout  time.Duration
	// Token returns the bearer token sent on the handshake and CONNECT frame.
	Token func() string
}

// STOMPTransport subscribes to /topic/submissions/{id} over STOMP on a websocket.
type STOMPTransport struct {
	cfg    STOMPConfig
	dialer *websocket.Dialer
}

func NewSTOMPTransport(cfg STOMPConfig) *STOMPTransport {
	if cfg.DestinationPrefix == "" {
		cfg.DestinationPrefix = "/topic/submissions/"
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &STOMPTransport{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Subprotocols: []string{"v12.stomp"}},
	}
}

// Destination returns the topic for submissionID.
func (t *STOMPTransport) Destination(submissionID string) string {
	return t.cfg.DestinationPrefix + submissionID
}

func (t *STOMPTransport) Open(ctx context.Context, submissionID string) (Stream, error) {
	u, err := url.Parse(t.cfg.URL)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.InvalidValue, "invalid realtime url: %v", err)
	}

	header := http.Header{}
	token := ""
	if t.cfg.Token != nil {
		token = t.cfg.Token()
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := t.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %w", u.Redacted(), err)
	}
	rwc := NewWebSocketConn(ws)

	// Unblock the handshake if ctx ends first.
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Host(u.Hostname()),
		stomp.ConnOpt.HeartBeat(t.cfg.HeartbeatOutgoing, t.cfg.HeartbeatIncoming),
		stomp.ConnOpt.AcceptVersion(stomp.V12),
	}
	if token != "" {
		opts = append(opts, stomp.ConnOpt.Header("Authorization", "Bearer "+token))
	}
	conn, err := stomp.Connect(rwc, opts...)
	if err != nil {
		stop()
		_ = rwc.Close()
		return nil, fmt.Errorf("stomp connect failed: %w", err)
	}

	destination := t.Destination(submissionID)
	sub, err := conn.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		stop()
		_ = conn.MustDisconnect()
		return nil, fmt.Errorf("stomp subscribe %s failed: %w", destination, err)
	}
	if !stop() {
		_ = conn.MustDisconnect()
		return nil, ctx.Err()
	}
	logger.Debug(ctx, "stomp subscribed", zap.String("destination", destination))

	s := &stompStream{
		conn: conn,
		sub:  sub,
		out:  make(chan []byte),
		quit: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

type stompStream struct {
	conn *stomp.Conn
	sub  *stomp.Subscription
	out  chan []byte
	quit chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func (s *stompStream) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.quit:
			return
		case msg, ok := <-s.sub.C:
			if !ok {
				return
			}
			if msg.Err != nil {
				s.mu.Lock()
				s.err = msg.Err
				s.mu.Unlock()
				return
			}
			select {
			case s.out <- msg.Body:
			case <-s.quit:
				return
			}
		}
	}
}

func (s *stompStream) Messages() <-chan []byte {
	return s.out
}

func (s *stompStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stompStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		// MustDisconnect closes the socket without waiting for a RECEIPT.
		_ = s.conn.MustDisconnect()
	})
	return nil
}
