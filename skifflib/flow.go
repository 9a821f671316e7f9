package skifflib

// handleWrite enforces the single-pending-write rule. The engine buffers at
// most one write; what happens to a second one depends on the flow-control
// mode fixed at registration. In every mode a disciplined sender that waits
// for the previous acknowledgement never sees a rejection.
func (c *Conn) handleWrite(pw *pendingWrite) {
	if !c.localWriteOpen || c.draining {
		c.rejectWrite(pw, ErrWriteAfterClose)
		return
	}

	if c.writeSuspended {
		// Suspended sub-state: rejected without even attempting
		// transmission, until ResumeWriting.
		c.rejectWrite(pw, ErrWritesSuspended)
		return
	}

	if c.pending != nil {
		if c.mode == FlowNackSuspend {
			c.writeSuspended = true
		}
		c.rejectWrite(pw, ErrWriteBusy)
		return
	}

	c.pending = pw
	c.writeCh <- pw
}

func (c *Conn) handleWriteDone(err error) {
	pw := c.pending
	if pw == nil {
		return
	}
	c.pending = nil

	if err != nil {
		c.emit(WriteFailed{Data: pw.buf.B, Token: pw.token, Reason: err})
		pendingWritePool.release(pw)
		c.terminate(CauseError, err, false, true)
		return
	}

	bytesWritten.Add(float64(pw.buf.Len()))
	if pw.token != nil {
		c.emit(WriteAcked{Token: pw.token})
	}
	pendingWritePool.release(pw)

	if c.writeSuspended && c.resumeRequested {
		c.writeSuspended = false
		c.resumeRequested = false
		c.emit(WritingResumed{})
	}

	if c.draining && c.localWriteOpen {
		c.finishLocalClose()
	}
}

func (c *Conn) rejectWrite(pw *pendingWrite, reason error) {
	writesRejected.WithLabelValues(rejectionLabel(reason)).Inc()
	c.emit(WriteFailed{Data: pw.buf.B, Token: pw.token, Reason: reason})
	pendingWritePool.release(pw)
}

func rejectionLabel(reason error) string {
	switch reason {
	case ErrWriteBusy:
		return "busy"
	case ErrWritesSuspended:
		return "suspended"
	case ErrWriteAfterClose:
		return "closed"
	}
	return "other"
}
