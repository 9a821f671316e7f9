package skifflib

import "net"

// Event is the notification surface delivered to a registered Handler. All
// events for one Conn arrive serialized on the engine goroutine.
type Event interface {
	isEvent()
}

// Connected confirms registration and reports the endpoint addresses.
type Connected struct {
	Local  net.Addr
	Remote net.Addr
}

// Received carries an inbound chunk. Data is only valid for the duration of
// the HandleEvent call; copy it if it must be retained.
type Received struct {
	Data []byte
}

// WriteAcked echoes the token of a fully transmitted write. Writes issued
// with a nil token are never acknowledged.
type WriteAcked struct {
	Token interface{}
}

// WriteFailed reports a rejected or failed write together with the payload
// and token that identify it. Data follows the same lifetime rule as
// Received.Data.
type WriteFailed struct {
	Data   []byte
	Token  interface{}
	Reason error
}

// CommandFailed reports a command that was illegal in the current state.
// The connection itself is unaffected.
type CommandFailed struct {
	Op     Op
	Reason error
}

// WritingResumed is emitted in suspending flow-control mode once the write
// that triggered suspension has fully completed; the next write is
// guaranteed not to be rejected for contention.
type WritingResumed struct{}

// PeerClosed is emitted when the remote sends FIN while the connection is
// configured to stay open; the write side remains usable.
type PeerClosed struct{}

// Closed is the single terminal event. After it, no further events are
// delivered and the socket has been released.
type Closed struct {
	Cause CloseCause
	Err   error
}

func (Connected) isEvent()      {}
func (Received) isEvent()       {}
func (WriteAcked) isEvent()     {}
func (WriteFailed) isEvent()    {}
func (CommandFailed) isEvent()  {}
func (WritingResumed) isEvent() {}
func (PeerClosed) isEvent()     {}
func (Closed) isEvent()         {}

type CloseCause uint8

const (
	CauseRequested CloseCause = iota
	CauseConfirmed
	CauseAborted
	CausePeerClosed
	CauseError
)

func (c CloseCause) String() string {
	switch c {
	case CauseRequested:
		return "requested"
	case CauseConfirmed:
		return "confirmed"
	case CauseAborted:
		return "aborted"
	case CausePeerClosed:
		return "peer_closed"
	case CauseError:
		return "error"
	}
	return "unknown"
}
