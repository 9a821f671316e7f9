package skifflib

import (
	"net"
	"time"
)

// Endpoint is the socket contract the engine drives. The Go runtime netpoller
// plays the role of the readiness demultiplexer: a goroutine parked in Read or
// Write is woken exactly when the socket becomes readable or writable, so no
// would-block result ever reaches the engine.
type Endpoint interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	// CloseWrite sends FIN and shuts down the write side only.
	CloseWrite() error
	// Reset tears the connection down abruptly (RST where the transport
	// supports it), discarding anything unflushed.
	Reset() error
	Close() error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	SetWriteDeadline(t time.Time) error
}

// NewEndpoint adapts a net.Conn. TCP connections get true half-close and RST
// semantics; anything else degrades CloseWrite and Reset to a full close.
func NewEndpoint(conn net.Conn) Endpoint {
	if tc, ok := conn.(*net.TCPConn); ok {
		return tcpEndpoint{tc}
	}
	return connEndpoint{conn}
}

type tcpEndpoint struct {
	*net.TCPConn
}

func (e tcpEndpoint) Reset() error {
	_ = e.SetLinger(0)
	return e.TCPConn.Close()
}

type connEndpoint struct {
	net.Conn
}

func (e connEndpoint) CloseWrite() error {
	if cw, ok := e.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return e.Conn.Close()
}

func (e connEndpoint) Reset() error { return e.Conn.Close() }
