// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

// Flow control

package http2

import "sync"

// A Flow is the send-side flow-control window for one connection.
// Body writers block in Acquire until the peer has granted enough
// credit; the read loop returns credit through Add as connection-level
// WINDOW_UPDATE frames arrive, and Close releases every waiter when
// the connection dies.
type Flow struct {
	mu     sync.Mutex
	cond   *sync.Cond
	avail  int32
	closed bool
}

// NewFlow returns a Flow holding n bytes of initial credit.
func NewFlow(n int32) *Flow {
	f := &Flow{avail: n}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Available reports the credit currently in the window. The value is
// a snapshot: concurrent acquirers may consume it before the caller
// acts on it.
func (f *Flow) Available() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.avail
}

// Acquire blocks until n bytes of credit are available, consumes
// them, and reports true. It reports false if the window was closed,
// before or while waiting; the credit is not consumed in that case
// and the caller should abandon the write.
func (f *Flow) Acquire(n int32) bool {
	if n < 0 {
		panic("http2: negative flow-control acquire")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.avail < n {
		if f.closed {
			return false
		}
		f.cond.Wait()
	}
	if f.closed {
		return false
	}
	f.avail -= n
	return true
}

// Add returns n bytes of credit to the window. n may be negative: a
// SETTINGS_INITIAL_WINDOW_SIZE decrease shrinks windows that are
// already open (RFC 9113 §6.9.2). It reports false if the sum would
// exceed the protocol's 2^31-1 ceiling, which the caller must treat
// as a FLOW_CONTROL_ERROR.
func (f *Flow) Add(n int32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if int64(f.avail)+int64(n) > 1<<31-1 {
		return false
	}
	f.avail += n
	f.cond.Broadcast()
	return true
}

// Close marks the window dead and wakes every blocked Acquire. The
// connection is failing, so there is no credit left to wait for.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}
