package skifflib

import (
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

var pendingWritePool = &PendingWritePool{sp: sync.Pool{}, m: newPoolMetrics()}

type pendingWrite struct {
	buf   *bytebufferpool.ByteBuffer // pooled copy of the caller's payload
	token interface{}                // acknowledgement token, nil means no ack requested
}

type PendingWritePool struct {
	sp sync.Pool
	m  *PoolMetrics
}

func (p *PendingWritePool) acquire(buf *bytebufferpool.ByteBuffer, token interface{}) *pendingWrite {
	v := p.sp.Get()
	if v == nil {
		v = &pendingWrite{}
		atomic.AddUint32(&p.m.na, uint32(1))
	} else {
		atomic.AddUint32(&p.m.nr, uint32(1))
	}

	pw := v.(*pendingWrite)
	pw.buf = buf
	pw.token = token
	return pw
}

func (p *PendingWritePool) release(pw *pendingWrite) {
	bytebufferpool.Put(pw.buf)
	pw.buf = nil
	pw.token = nil
	p.sp.Put(pw)
	atomic.AddUint32(&p.m.np, uint32(1))
}
