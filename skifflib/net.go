package skifflib

import (
	"net"
	"strconv"
)

type Handler interface {
	HandleEvent(conn *Conn, ev Event)
}

type HandlerFunc func(conn *Conn, ev Event)

func (fn HandlerFunc) HandleEvent(conn *Conn, ev Event) { fn(conn, ev) }

// Acceptor receives every accepted connection, still unregistered. It must
// call Register before the registration deadline or the engine destroys
// itself and releases the socket.
type Acceptor interface {
	ServeConn(conn *Conn)
}

type AcceptorFunc func(conn *Conn)

func (fn AcceptorFunc) ServeConn(conn *Conn) { fn(conn) }

// FlowControl selects how a write arriving while another is still pending is
// handled. It is fixed at registration.
type FlowControl uint8

const (
	// FlowAck rejects contending writes; a disciplined caller that waits
	// for each WriteAcked before writing again never sees a rejection.
	FlowAck FlowControl = iota
	// FlowNack rejects contending writes and leaves it at that; the
	// caller's protocol must tolerate gaps.
	FlowNack
	// FlowNackSuspend rejects the contending write and then every write
	// after it until ResumeWriting, whose WritingResumed reply is held
	// back until the in-flight write has fully completed.
	FlowNackSuspend
)

func (f FlowControl) String() string {
	switch f {
	case FlowAck:
		return "ack"
	case FlowNack:
		return "nack"
	case FlowNackSuspend:
		return "nack_suspend"
	}
	return "unknown"
}

// Config is fixed for the lifetime of a connection once passed to Register.
type Config struct {
	FlowControl         FlowControl
	KeepOpenOnPeerClose bool

	// Liveness, when non-nil, is the handler liveness watch: if it is
	// closed the engine assumes the handler is gone, discards any pending
	// write and releases the socket without notification.
	Liveness <-chan struct{}
}

// Op identifies a command in CommandFailed events.
type Op uint8

const (
	OpRegister Op = iota
	OpWrite
	OpClose
	OpConfirmedClose
	OpAbort
	OpSuspendReading
	OpResumeReading
	OpResumeWriting
	opShutdown // internal, server teardown
)

func (op Op) String() string {
	switch op {
	case OpRegister:
		return "register"
	case OpWrite:
		return "write"
	case OpClose:
		return "close"
	case OpConfirmedClose:
		return "confirmed_close"
	case OpAbort:
		return "abort"
	case OpSuspendReading:
		return "suspend_reading"
	case OpResumeReading:
		return "resume_reading"
	case OpResumeWriting:
		return "resume_writing"
	}
	return "unknown"
}

type BindFunc func() (net.Listener, error)

func BindTCPAnyPort() BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp", ":0") }
}

func BindTCP(addr string) BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp", addr) }
}

func BindTCPv4(addr string) BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp4", addr) }
}

func BindTCPv6(addr string) BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp6", addr) }
}

func HostAddr(host net.IP, port uint16) string {
	h := ""
	if len(host) > 0 {
		h = host.String()
	}
	p := strconv.FormatUint(uint64(port), 10)
	return net.JoinHostPort(h, p)
}
