package skifflib

import (
	"errors"
	"io"
	"time"
)

var zeroTime time.Time

func (c *Conn) run() {
	defer c.wg.Done()

	c.regTimer = timerPool.acquire(c.registerTimeout)
	c.regC = c.regTimer.C

	for !c.terminated {
		select {
		case <-c.notify:
			c.processQueue()
		case r := <-c.readRes:
			c.handleReadResult(r)
		case err := <-c.writeRes:
			c.handleWriteDone(err)
		case <-c.regC:
			c.logger.Debug().Msg("no registration before deadline, destroying connection")
			c.regC = nil
			c.terminate(CauseError, nil, true, false)
		case <-c.liveness:
			c.logger.Debug().Msg("handler liveness lost, destroying connection")
			c.terminate(CauseError, nil, true, false)
		}
	}

	if c.regTimer != nil {
		timerPool.release(c.regTimer)
		c.regTimer = nil
	}

	c.mu.Lock()
	cmds := c.queue
	c.queue = nil
	c.mu.Unlock()
	for i := range cmds {
		c.discard(cmds[i])
	}
}

func (c *Conn) processQueue() {
	c.mu.Lock()
	cmds := c.queue
	c.queue = nil
	c.mu.Unlock()

	for i := range cmds {
		if c.terminated {
			c.discard(cmds[i])
			continue
		}
		c.dispatch(cmds[i])
	}
}

func (c *Conn) dispatch(cmd command) {
	switch cmd.op {
	case OpRegister:
		c.handleRegister(cmd)
	case OpWrite:
		c.handleWrite(cmd.pw)
	case OpClose:
		c.handleClose(CauseRequested, OpClose)
	case OpConfirmedClose:
		c.handleClose(CauseConfirmed, OpConfirmedClose)
	case OpAbort:
		c.terminate(CauseAborted, nil, true, true)
	case OpSuspendReading:
		c.handleSuspendReading()
	case OpResumeReading:
		c.handleResumeReading()
	case OpResumeWriting:
		c.handleResumeWriting()
	case opShutdown:
		c.terminate(CauseAborted, nil, true, true)
	}
}

func (c *Conn) discard(cmd command) {
	if cmd.reply != nil {
		cmd.reply <- ErrConnClosed
	}
	if cmd.pw != nil {
		pendingWritePool.release(cmd.pw)
	}
}

func (c *Conn) handleRegister(cmd command) {
	if c.handler != nil {
		cmd.reply <- ErrAlreadyRegistered
		return
	}

	c.handler = cmd.h
	c.mode = cmd.cfg.FlowControl
	c.keepOpen = cmd.cfg.KeepOpenOnPeerClose
	c.liveness = cmd.cfg.Liveness
	c.localWriteOpen = true
	c.remoteReadOpen = true
	c.deliverReads = true

	if c.regTimer != nil {
		timerPool.release(c.regTimer)
		c.regTimer = nil
		c.regC = nil
	}

	c.mu.Lock()
	c.registered = true
	c.mu.Unlock()

	connsOpened.Inc()
	c.logger.Debug().Stringer("flow_control", c.mode).Msg("connection registered")

	cmd.reply <- nil
	c.emit(Connected{Local: c.ep.LocalAddr(), Remote: c.ep.RemoteAddr()})
	c.grantRead()
}

func (c *Conn) handleClose(cause CloseCause, op Op) {
	if c.draining || !c.localWriteOpen {
		c.fail(op, ErrClosePending)
		return
	}

	c.draining = true
	c.drainCause = cause
	if cause == CauseRequested {
		// A plain close stops delivering inbound data. The socket is
		// still drained so the remote FIN can be observed.
		c.deliverReads = false
	}

	if c.pending == nil {
		c.finishLocalClose()
	}
}

// finishLocalClose sends FIN once any pending write has been flushed. The
// connection terminates as soon as both directions are finished.
func (c *Conn) finishLocalClose() {
	_ = c.ep.CloseWrite()
	c.localWriteOpen = false
	if !c.remoteReadOpen {
		c.terminate(c.drainCause, nil, false, true)
	}
}

func (c *Conn) handleSuspendReading() {
	if !c.remoteReadOpen {
		c.fail(OpSuspendReading, ErrReadSideClosed)
		return
	}
	c.readSuspended = true
}

func (c *Conn) handleResumeReading() {
	if !c.remoteReadOpen {
		c.fail(OpResumeReading, ErrReadSideClosed)
		return
	}
	c.readSuspended = false
	c.grantRead()
}

func (c *Conn) handleResumeWriting() {
	if c.mode != FlowNackSuspend || !c.writeSuspended {
		c.fail(OpResumeWriting, ErrNotSuspended)
		return
	}
	if c.pending != nil {
		// Answered once the in-flight write completes, so that the
		// resumed sender's next write cannot be rejected for contention.
		c.resumeRequested = true
		return
	}
	c.writeSuspended = false
	c.emit(WritingResumed{})
}

// grantRead hands the reader goroutine a single read credit. At most one
// read is outstanding; withholding the next credit is what suspension,
// peer close and teardown have in common.
func (c *Conn) grantRead() {
	if c.terminated || c.readPending || c.readSuspended || !c.remoteReadOpen || c.handler == nil {
		return
	}
	c.readPending = true
	c.readGate <- struct{}{}
}

func (c *Conn) handleReadResult(r readResult) {
	c.readPending = false

	if len(r.data) > 0 {
		bytesRead.Add(float64(len(r.data)))
		if c.deliverReads {
			c.emit(Received{Data: r.data})
		}
	}

	if r.err != nil {
		if errors.Is(r.err, io.EOF) {
			c.handlePeerFIN()
		} else {
			c.terminate(CauseError, r.err, false, true)
		}
		return
	}

	c.grantRead()
}

func (c *Conn) handlePeerFIN() {
	c.remoteReadOpen = false

	if c.draining {
		// Local close already under way; if the flush has finished the
		// FIN exchange is complete, otherwise the write completion
		// finishes the close.
		if !c.localWriteOpen {
			c.terminate(c.drainCause, nil, false, true)
		}
		return
	}

	if c.keepOpen {
		c.emit(PeerClosed{})
		return
	}

	_ = c.ep.CloseWrite()
	c.localWriteOpen = false
	c.terminate(CausePeerClosed, nil, false, true)
}

func (c *Conn) fail(op Op, reason error) {
	c.emit(CommandFailed{Op: op, Reason: reason})
}

func (c *Conn) emit(ev Event) {
	c.handler.HandleEvent(c, ev)
}

// terminate releases the socket exactly once and delivers at most one
// terminal notification. Silent paths (registration timeout, liveness loss)
// pass notify=false; with no handler there is nobody to tell anyway.
func (c *Conn) terminate(cause CloseCause, err error, abrupt, notify bool) {
	if c.terminated {
		return
	}
	c.terminated = true

	c.mu.Lock()
	c.dead = true
	c.mu.Unlock()

	if c.regTimer != nil {
		timerPool.release(c.regTimer)
		c.regTimer = nil
		c.regC = nil
	}

	close(c.done)

	if abrupt {
		_ = c.ep.Reset()
	} else {
		_ = c.ep.Close()
	}

	// The writer goroutine may still hold the pending buffer; it is left
	// to the GC instead of the pool.
	c.pending = nil

	if notify && c.handler != nil {
		connsClosed.WithLabelValues(cause.String()).Inc()
		c.logger.Debug().Stringer("cause", cause).Err(err).Msg("connection closed")
		c.emit(Closed{Cause: cause, Err: err})
	} else {
		connsAbandoned.Inc()
	}
}

func (c *Conn) readLoop() {
	defer c.wg.Done()

	buf := make([]byte, c.readBufferSize)
	for {
		select {
		case <-c.done:
			return
		case <-c.readGate:
		}

		n, err := c.ep.Read(buf)

		select {
		case c.readRes <- readResult{data: buf[:n], err: err}:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()

	for {
		var pw *pendingWrite
		select {
		case <-c.done:
			return
		case pw = <-c.writeCh:
		}

		err := c.writeFull(pw.buf.B)

		select {
		case c.writeRes <- err:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeFull(b []byte) error {
	if c.writeTimeout > 0 {
		if err := c.ep.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	for len(b) > 0 {
		n, err := c.ep.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	if c.writeTimeout > 0 {
		_ = c.ep.SetWriteDeadline(zeroTime)
	}
	return nil
}
