package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"healthtrack-realtime/internal/pkg/logger"

	"github.com/gorilla/websocket"
)

// DefaultSchedule is the reconnect backoff table.
var DefaultSchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
	30 * time.Second,
}

// BackoffDelay returns the delay before retry number n (0-based), capped at the last entry.
func BackoffDelay(schedule []time.Duration, n int) time.Duration {
	if len(schedule) == 0 {
		return 0
	}
	if n < 0 {
		n = 0
	}
	if n >= len(schedule) {
		n = len(schedule) - 1
	}
	return schedule[n]
}

// TokenSource hands out a fresh bearer token for each connection attempt.
type TokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Dispatcher consumes decoded frames; Router is the production implementation.
type Dispatcher interface {
	Dispatch(frame []byte) Control
}

// Session is a signed-in user for whom a connection should exist.
type Session struct {
	UserID string
	Tokens TokenSource
}

type SupervisorOptions struct {
	Opener      Opener
	Dispatcher  Dispatcher
	Endpoint    string
	PageOrigin  string
	DefaultPath string
	Schedule    []time.Duration
	DialTimeout time.Duration

	OnStateChange    func(from, to ConnectionState)
	OnRetryScheduled func(attempt int, delay time.Duration)
}

type signalKind int

const (
	sigSessionStarted signalKind = iota
	sigSessionStopped
	sigReconnect
	sigVisibilityRegained
	sigDialed
	sigDialFailed
	sigAttemptFailed
	sigFrame
	sigClosed
	sigRetryDue
)

type signal struct {
	kind    signalKind
	gen     uint64
	session Session
	conn    Conn
	err     error
	data    []byte
	code    int
	reason  string
}

// Supervisor owns the connection lifecycle for one session. All state changes happen on
// the goroutine running Run; every other method only posts a signal to it.
type Supervisor struct {
	opts    SupervisorOptions
	logger  logger.ILogger
	signals chan signal
	done    chan struct{}

	mu       sync.RWMutex
	state    ConnectionState
	attempts int
	lastErr  error

	// owned by the loop
	ctx     context.Context
	session *Session
	gen     uint64
	conn    Conn
	timer   *time.Timer
}

func NewSupervisor(opts SupervisorOptions, log logger.ILogger) *Supervisor {
	if len(opts.Schedule) == 0 {
		opts.Schedule = DefaultSchedule
	}
	if opts.DefaultPath == "" {
		opts.DefaultPath = DefaultPath
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 15 * time.Second
	}
	return &Supervisor{
		opts:    opts,
		logger:  log,
		signals: make(chan signal, 64),
		done:    make(chan struct{}),
		state:   StateDisconnected,
	}
}

func (s *Supervisor) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Supervisor) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

// LastError is the reason behind the latest Error or abnormal Disconnected state.
func (s *Supervisor) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// StartSession connects for sess unless an attempt is in flight or a connection is open.
func (s *Supervisor) StartSession(sess Session) {
	s.post(signal{kind: sigSessionStarted, session: sess})
}

// StopSession closes the connection normally and cancels pending retries.
func (s *Supervisor) StopSession() {
	s.post(signal{kind: sigSessionStopped})
}

// Reconnect tears the current connection down and connects again for the same session.
func (s *Supervisor) Reconnect() {
	s.post(signal{kind: sigReconnect})
}

func (s *Supervisor) VisibilityChanged(visible bool) {
	if visible {
		s.post(signal{kind: sigVisibilityRegained})
	}
}

// Run is the event loop. It returns when ctx is done, closing any live connection.
func (s *Supervisor) Run(ctx context.Context) {
	s.ctx = ctx
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.stopTimer()
			s.teardown(websocket.CloseGoingAway, "client shutting down")
			s.setState(StateDisconnected, nil)
			return
		case sig := <-s.signals:
			s.handle(sig)
		}
	}
}

func (s *Supervisor) post(sig signal) {
	select {
	case s.signals <- sig:
	case <-s.done:
	}
}

func (s *Supervisor) handle(sig signal) {
	switch sig.kind {
	case sigSessionStarted:
		// a live or pending session keeps its token source
		if st := s.State(); st == StateDisconnected || st == StateError {
			sess := sig.session
			s.session = &sess
			s.connect()
		}

	case sigSessionStopped:
		s.session = nil
		s.stopTimer()
		s.teardown(websocket.CloseNormalClosure, "session ended")
		s.setState(StateDisconnected, nil)

	case sigReconnect:
		if s.session == nil {
			return
		}
		s.teardown(websocket.CloseNormalClosure, "session context changed")
		s.connect()

	case sigVisibilityRegained:
		if s.session != nil && s.State() == StateDisconnected {
			s.connect()
		}

	case sigRetryDue:
		if sig.gen != s.gen || s.session == nil || s.State() != StateDisconnected {
			return
		}
		s.connect()

	case sigDialed:
		if sig.gen != s.gen {
			sig.conn.Close(websocket.CloseNormalClosure, "superseded")
			return
		}
		s.conn = sig.conn

	case sigDialFailed:
		if sig.gen != s.gen {
			return
		}
		s.gen++
		s.setState(StateDisconnected, sig.err)
		s.scheduleRetry()

	case sigAttemptFailed:
		if sig.gen != s.gen {
			return
		}
		s.fail(sig.err)

	case sigFrame:
		if sig.gen != s.gen {
			return
		}
		switch s.opts.Dispatcher.Dispatch(sig.data) {
		case ControlAuthenticated:
			if s.State() == StateConnecting {
				s.mu.Lock()
				s.attempts = 0
				s.mu.Unlock()
				s.setState(StateConnected, nil)
			}
		case ControlAuthRejected:
			s.teardown(websocket.CloseNormalClosure, "authentication rejected")
			s.setState(StateError, ErrAuthRejected)
		}

	case sigClosed:
		if sig.gen != s.gen {
			return
		}
		s.conn = nil
		s.gen++
		if IsNormalClose(sig.code) {
			s.setState(StateDisconnected, nil)
			return
		}
		s.setState(StateDisconnected, &CloseError{Code: sig.code, Reason: sig.reason})
		s.scheduleRetry()
	}
}

// connect starts a new attempt. Token fetch and dial run off the loop and report back
// tagged with the attempt's generation.
func (s *Supervisor) connect() {
	s.stopTimer()
	s.gen++
	gen := s.gen

	endpoint, err := ResolveEndpoint(s.opts.Endpoint, s.opts.PageOrigin, s.opts.DefaultPath)
	if err != nil {
		s.fail(err)
		return
	}
	s.setState(StateConnecting, nil)

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	tokens := s.session.Tokens
	sink := &attemptSink{s: s, gen: gen}

	go func() {
		dialCtx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
		defer cancel()

		token, err := fetchToken(dialCtx, tokens)
		if err != nil {
			s.post(signal{kind: sigAttemptFailed, gen: gen, err: err})
			return
		}

		conn, err := s.opts.Opener.Open(dialCtx, endpoint, token, sink)
		if err != nil {
			s.post(signal{kind: sigDialFailed, gen: gen, err: err})
			return
		}
		s.post(signal{kind: sigDialed, gen: gen, conn: conn})
	}()
}

func fetchToken(ctx context.Context, tokens TokenSource) (string, error) {
	if tokens == nil {
		return "", ErrCredentialUnavailable
	}
	token, err := tokens.GetAccessToken(ctx)
	if err != nil {
		if errors.Is(err, ErrCredentialUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}
	if token == "" {
		return "", ErrCredentialUnavailable
	}
	return token, nil
}

// fail ends the current attempt in the Error state. Nothing retries from there.
func (s *Supervisor) fail(err error) {
	s.gen++
	s.stopTimer()
	if s.conn != nil {
		s.conn.Close(websocket.CloseNormalClosure, "")
		s.conn = nil
	}
	s.setState(StateError, err)
}

// teardown invalidates every callback of the current generation and closes the socket.
func (s *Supervisor) teardown(code int, reason string) {
	s.gen++
	if s.conn != nil {
		if err := s.conn.Close(code, reason); err != nil {
			s.logger.Debug("Supervisor", "Close on teardown failed", map[string]interface{}{"error": err.Error()})
		}
		s.conn = nil
	}
}

func (s *Supervisor) scheduleRetry() {
	if s.session == nil {
		return
	}
	s.mu.Lock()
	delay := BackoffDelay(s.opts.Schedule, s.attempts)
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	gen := s.gen
	s.stopTimer()
	s.timer = time.AfterFunc(delay, func() {
		s.post(signal{kind: sigRetryDue, gen: gen})
	})

	s.logger.Info("Supervisor", "Reconnect scheduled", map[string]interface{}{"attempt": attempt, "delay": delay.String()})
	if s.opts.OnRetryScheduled != nil {
		s.opts.OnRetryScheduled(attempt, delay)
	}
}

func (s *Supervisor) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Supervisor) setState(to ConnectionState, err error) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.lastErr = err
	s.mu.Unlock()

	if from == to {
		return
	}
	details := map[string]interface{}{"from": from.String(), "to": to.String()}
	if err != nil {
		details["error"] = err.Error()
	}
	s.logger.Info("Supervisor", "Connection state changed", details)
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(from, to)
	}
}

// attemptSink tags transport callbacks with the generation they were opened under.
type attemptSink struct {
	s   *Supervisor
	gen uint64
}

func (a *attemptSink) OnFrame(data []byte) {
	a.s.post(signal{kind: sigFrame, gen: a.gen, data: data})
}

func (a *attemptSink) OnClose(code int, reason string) {
	a.s.post(signal{kind: sigClosed, gen: a.gen, code: code, reason: reason})
}
