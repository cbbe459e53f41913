package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/pkg/protocol"

	"github.com/gorilla/websocket"
)

const (
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultLivenessTimeout   = 60 * time.Second
	defaultHandshakeTimeout  = 10 * time.Second
	writeWait                = 10 * time.Second
	closeWait                = time.Second
	maxFrameSize             = 64 * 1024
)

// FrameSink receives everything a live connection produces. OnFrame is called in
// arrival order from a single goroutine; OnClose is called exactly once, last.
type FrameSink interface {
	OnFrame(data []byte)
	OnClose(code int, reason string)
}

// Conn is a live, authenticated-or-authenticating connection.
type Conn interface {
	Send(frame protocol.OutboundFrame) error
	Close(code int, reason string) error
}

// Opener establishes connections. Dialer is the websocket implementation.
type Opener interface {
	Open(ctx context.Context, endpoint, credential string, sink FrameSink) (Conn, error)
}

type DialerOptions struct {
	HeartbeatInterval time.Duration
	// LivenessTimeout closes a connection that has been silent this long; 0 disables it.
	LivenessTimeout  time.Duration
	HandshakeTimeout time.Duration
}

type Dialer struct {
	opts   DialerOptions
	ws     *websocket.Dialer
	logger logger.ILogger
}

func NewDialer(opts DialerOptions, log logger.ILogger) *Dialer {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Dialer{
		opts: opts,
		ws: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		logger: log,
	}
}

// Open dials endpoint and sends the auth frame as the first message. It does not wait
// for auth_ok; the answer arrives through sink like any other frame.
func (d *Dialer) Open(ctx context.Context, endpoint, credential string, sink FrameSink) (Conn, error) {
	conn, _, err := d.ws.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	t := &Transport{
		conn:      conn,
		sink:      sink,
		heartbeat: d.opts.HeartbeatInterval,
		liveness:  d.opts.LivenessTimeout,
		done:      make(chan struct{}),
		logger:    d.logger,
	}

	if err := t.Send(protocol.AuthFrame(credential)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send auth frame: %w", err)
	}

	go t.readPump()
	go t.pingLoop()

	d.logger.Debug("Transport", "Connection opened", map[string]interface{}{"endpoint": endpoint})
	return t, nil
}

// Transport owns one websocket connection.
type Transport struct {
	conn      *websocket.Conn
	sink      FrameSink
	heartbeat time.Duration
	liveness  time.Duration
	logger    logger.ILogger

	writeMu sync.Mutex

	closeOnce   sync.Once
	done        chan struct{}
	mu          sync.Mutex
	localCode   int
	localReason string
}

// Send writes one frame. Delivery is not confirmed beyond the socket write.
func (t *Transport) Send(frame protocol.OutboundFrame) error {
	select {
	case <-t.done:
		return ErrNotConnected
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteJSON(frame)
}

// Close sends a close frame with code and shuts the socket. The sink sees the same code.
// It runs on the supervisor loop, so a peer that stopped reading costs at most closeWait.
func (t *Transport) Close(code int, reason string) error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.localCode, t.localReason = code, reason
		t.mu.Unlock()
		close(t.done)

		msg := websocket.FormatCloseMessage(code, reason)
		err = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		if cerr := t.conn.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

// abort drops the socket without a close frame; the peer and the sink see 1006.
func (t *Transport) abort() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.conn.Close()
	})
}

func (t *Transport) readPump() {
	code, reason := websocket.CloseAbnormalClosure, ""
	defer func() {
		t.abort()
		t.mu.Lock()
		if t.localCode != 0 {
			code, reason = t.localCode, t.localReason
		}
		t.mu.Unlock()
		t.sink.OnClose(code, reason)
	}()

	t.extendDeadline()
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				code, reason = ce.Code, ce.Text
			} else {
				reason = err.Error()
			}
			return
		}
		t.extendDeadline()
		t.sink.OnFrame(data)
	}
}

func (t *Transport) extendDeadline() {
	if t.liveness > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.liveness))
	}
}

func (t *Transport) pingLoop() {
	ticker := time.NewTicker(t.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if err := t.Send(protocol.PingFrame()); err != nil {
				if errors.Is(err, ErrNotConnected) {
					return
				}
				t.logger.Warn("Transport", "Heartbeat failed, dropping connection", map[string]interface{}{"error": err.Error()})
				t.abort()
				return
			}
		}
	}
}
