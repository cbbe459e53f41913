package realtime

import (
	"context"
	"errors"
	"sync"

	"healthtrack-realtime/internal/model"
	"healthtrack-realtime/pkg/protocol"
)

type recordingCache struct {
	mu          sync.Mutex
	keys        []string
	invalidated int
}

func (c *recordingCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
}

func (c *recordingCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
}

func (c *recordingCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

type recordingAlerter struct {
	mu     sync.Mutex
	events []protocol.EventType
}

func (a *recordingAlerter) Alert(evt protocol.InboundEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, evt.Type)
}

func (a *recordingAlerter) Events() []protocol.EventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]protocol.EventType(nil), a.events...)
}

type staticPrefs struct {
	prefs model.Preferences
}

func (p staticPrefs) Current() model.Preferences {
	return p.prefs.Clone()
}

type staticTokens string

func (s staticTokens) GetAccessToken(ctx context.Context) (string, error) {
	return string(s), nil
}

type failingTokens struct{}

func (failingTokens) GetAccessToken(ctx context.Context) (string, error) {
	return "", errors.New("refresh token expired")
}

type fakeConn struct {
	mu     sync.Mutex
	closed bool
	code   int
	sent   []protocol.OutboundFrame
}

func (c *fakeConn) Send(frame protocol.OutboundFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	return nil
}

func (c *fakeConn) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.code
}

// fakeOpener records every attempt so tests can drive its sink by hand.
type fakeOpener struct {
	mu     sync.Mutex
	err    error
	tokens []string
	sinks  []FrameSink
	conns  []*fakeConn
	opened chan struct{}
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{opened: make(chan struct{}, 32)}
}

func (o *fakeOpener) Open(ctx context.Context, endpoint, credential string, sink FrameSink) (Conn, error) {
	o.mu.Lock()
	o.tokens = append(o.tokens, credential)
	if o.err != nil {
		err := o.err
		o.mu.Unlock()
		o.opened <- struct{}{}
		return nil, err
	}
	conn := &fakeConn{}
	o.sinks = append(o.sinks, sink)
	o.conns = append(o.conns, conn)
	o.mu.Unlock()
	o.opened <- struct{}{}
	return conn, nil
}

func (o *fakeOpener) Attempts() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.tokens)
}

func (o *fakeOpener) Tokens() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.tokens...)
}

func (o *fakeOpener) Sink(i int) FrameSink {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sinks[i]
}

func (o *fakeOpener) Conn(i int) *fakeConn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conns[i]
}

func (o *fakeOpener) SetErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func mustFrame(t protocol.EventType, payload any) []byte {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		panic(err)
	}
	return data
}
