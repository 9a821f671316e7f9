package skifflib

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder collects every event emitted for one connection. Payload slices
// are copied on delivery since they are only valid during the call.
type recorder struct {
	ch chan Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Event, 128)}
}

func (r *recorder) HandleEvent(_ *Conn, ev Event) {
	switch e := ev.(type) {
	case Received:
		ev = Received{Data: append([]byte(nil), e.Data...)}
	case WriteFailed:
		ev = WriteFailed{Data: append([]byte(nil), e.Data...), Token: e.Token, Reason: e.Reason}
	}
	r.ch <- ev
}

func (r *recorder) next(t testing.TB) Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func (r *recorder) expectNone(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("expected no event, got %T%+v", ev, ev)
	case <-time.After(d):
	}
}

func register(t testing.TB, c *Conn, cfg Config) *recorder {
	t.Helper()
	rec := newRecorder()
	require.NoError(t, c.Register(rec, cfg))
	ev := rec.next(t)
	connected, ok := ev.(Connected)
	require.True(t, ok, "expected Connected, got %T", ev)
	require.NotNil(t, connected.Local)
	require.NotNil(t, connected.Remote)
	return rec
}

type readChunk struct {
	data []byte
	err  error
}

// fakeEndpoint is a scripted Endpoint. Reads block until the test feeds a
// chunk; writes block until the test releases one, which keeps a write
// pending for as long as a flow-control scenario needs.
type fakeEndpoint struct {
	reads   chan readChunk
	writeGo chan error

	mu      sync.Mutex
	writes  [][]byte
	finSent bool
	didRST  bool

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		reads:   make(chan readChunk, 16),
		writeGo: make(chan error, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeEndpoint) Read(p []byte) (int, error) {
	select {
	case ch := <-f.reads:
		n := copy(p, ch.data)
		return n, ch.err
	case <-f.closed:
		return 0, net.ErrClosed
	}
}

func (f *fakeEndpoint) Write(p []byte) (int, error) {
	select {
	case err := <-f.writeGo:
		if err != nil {
			return 0, err
		}
		f.mu.Lock()
		f.writes = append(f.writes, append([]byte(nil), p...))
		f.mu.Unlock()
		return len(p), nil
	case <-f.closed:
		return 0, net.ErrClosed
	}
}

func (f *fakeEndpoint) CloseWrite() error {
	f.mu.Lock()
	f.finSent = true
	f.mu.Unlock()
	return nil
}

func (f *fakeEndpoint) Reset() error {
	f.mu.Lock()
	f.didRST = true
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeEndpoint) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeEndpoint) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
}

func (f *fakeEndpoint) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40001}
}

func (f *fakeEndpoint) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeEndpoint) feed(b []byte)       { f.reads <- readChunk{data: b} }
func (f *fakeEndpoint) feedEOF()            { f.reads <- readChunk{err: io.EOF} }
func (f *fakeEndpoint) feedError(err error) { f.reads <- readChunk{err: err} }
func (f *fakeEndpoint) allowWrite()         { f.writeGo <- nil }

func (f *fakeEndpoint) sentFIN() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finSent
}

func (f *fakeEndpoint) wasReset() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.didRST
}

func (f *fakeEndpoint) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeEndpoint) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}
