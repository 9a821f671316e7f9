package skifflib

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"
)

const (
	DefaultReadBufferSize  = 4096
	DefaultRegisterTimeout = 3 * time.Second
)

type Options struct {
	ReadBufferSize  int
	WriteTimeout    time.Duration
	RegisterTimeout time.Duration
	Logger          *zerolog.Logger
}

type command struct {
	op    Op
	pw    *pendingWrite
	h     Handler
	cfg   Config
	reply chan error
}

type readResult struct {
	data []byte
	err  error
}

// Conn is a single-connection protocol engine. All commands funnel through
// one serialized queue drained by the engine goroutine, so no two commands
// for the same connection are ever processed concurrently. A reader and a
// writer goroutine perform the blocking socket calls and report back into
// the engine as events.
type Conn struct {
	ep Endpoint

	readBufferSize  int
	writeTimeout    time.Duration
	registerTimeout time.Duration
	logger          zerolog.Logger

	mu         sync.Mutex
	queue      []command
	dead       bool
	registered bool

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	readGate chan struct{}
	readRes  chan readResult
	writeCh  chan *pendingWrite
	writeRes chan error

	// Everything below is owned by the engine goroutine.
	handler  Handler
	mode     FlowControl
	keepOpen bool
	liveness <-chan struct{}

	regTimer *time.Timer
	regC     <-chan time.Time

	localWriteOpen  bool
	remoteReadOpen  bool
	readSuspended   bool
	readPending     bool
	deliverReads    bool
	pending         *pendingWrite
	writeSuspended  bool
	resumeRequested bool
	draining        bool
	drainCause      CloseCause
	terminated      bool
}

// NewConn wraps an established net.Conn in an engine. The engine starts out
// unregistered: it must receive Register before the registration deadline or
// it destroys itself and releases the socket.
func NewConn(conn net.Conn, opts Options) *Conn {
	return newConn(NewEndpoint(conn), opts)
}

func newConn(ep Endpoint, opts Options) *Conn {
	c := &Conn{
		ep:              ep,
		readBufferSize:  opts.ReadBufferSize,
		writeTimeout:    opts.WriteTimeout,
		registerTimeout: opts.RegisterTimeout,
		logger:          zerolog.Nop(),
		notify:          make(chan struct{}, 1),
		done:            make(chan struct{}),
		readGate:        make(chan struct{}, 1),
		readRes:         make(chan readResult, 1),
		writeCh:         make(chan *pendingWrite, 1),
		writeRes:        make(chan error, 1),
	}
	if c.readBufferSize <= 0 {
		c.readBufferSize = DefaultReadBufferSize
	}
	if c.registerTimeout <= 0 {
		c.registerTimeout = DefaultRegisterTimeout
	}
	if opts.Logger != nil {
		c.logger = *opts.Logger
	}

	c.wg.Add(3)
	go c.run()
	go c.readLoop()
	go c.writeLoop()

	return c
}

// Dial connects to addr and returns the unregistered engine for the new
// connection. Redialing on failure is the caller's business.
func Dial(network, addr string, opts Options) (*Conn, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	return NewConn(conn, opts), nil
}

// Register binds the handler that will receive all events for this
// connection, fixes the flow-control mode and the peer-close policy, and
// moves the engine into normal operation. Valid exactly once.
func (c *Conn) Register(h Handler, cfg Config) error {
	if h == nil {
		return errors.New("skiff: nil handler")
	}

	reply := make(chan error, 1)
	if err := c.enqueue(command{op: OpRegister, h: h, cfg: cfg, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrConnClosed
		}
	}
}

// Write submits data for transmission. The data is copied, so the caller may
// reuse the slice immediately. A non-nil token is echoed back in WriteAcked
// once the write has fully reached the socket; a nil token suppresses the
// acknowledgement. At most one write is in flight at a time; contention is
// resolved by the registered flow-control mode and reported via WriteFailed.
func (c *Conn) Write(data []byte, token interface{}) error {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if !c.registered {
		c.mu.Unlock()
		return ErrNotRegistered
	}
	buf := bytebufferpool.Get()
	_, _ = buf.Write(data)
	pw := pendingWritePool.acquire(buf, token)
	c.queue = append(c.queue, command{op: OpWrite, pw: pw})
	c.mu.Unlock()
	c.wake()
	return nil
}

// Close flushes any pending write, sends FIN and waits for the remote FIN
// before the terminal Closed{CauseRequested} is delivered. Inbound data is
// no longer delivered once the close has been issued.
func (c *Conn) Close() error { return c.command(OpClose) }

// ConfirmedClose behaves like Close but keeps delivering inbound data until
// the remote FIN arrives; the terminal cause is CauseConfirmed.
func (c *Conn) ConfirmedClose() error { return c.command(OpConfirmedClose) }

// Abort discards any pending write, resets the connection and delivers the
// terminal Closed{CauseAborted} immediately.
func (c *Conn) Abort() error { return c.command(OpAbort) }

// SuspendReading stops the engine from issuing further socket reads. A read
// already in flight may still be delivered.
func (c *Conn) SuspendReading() error { return c.command(OpSuspendReading) }

func (c *Conn) ResumeReading() error { return c.command(OpResumeReading) }

// ResumeWriting lifts the write suspension of FlowNackSuspend mode. The
// WritingResumed reply is held back until the in-flight write completes.
func (c *Conn) ResumeWriting() error { return c.command(OpResumeWriting) }

func (c *Conn) LocalAddr() net.Addr  { return c.ep.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.ep.RemoteAddr() }

// Done is closed once the engine has been torn down and the socket released.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) command(op Op) error {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if !c.registered {
		c.mu.Unlock()
		return ErrNotRegistered
	}
	c.queue = append(c.queue, command{op: op})
	c.mu.Unlock()
	c.wake()
	return nil
}

func (c *Conn) enqueue(cmd command) error {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return ErrConnClosed
	}
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()
	c.wake()
	return nil
}

// shutdown force-terminates from any state, registered or not.
func (c *Conn) shutdown() {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, command{op: opShutdown})
	c.mu.Unlock()
	c.wake()
}

func (c *Conn) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// wait blocks until the engine, reader and writer goroutines have all exited.
func (c *Conn) wait() { c.wg.Wait() }
