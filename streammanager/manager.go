// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

// Package streammanager pools HTTP/2 connections behind a single
// Manager and hands out client-initiated streams from whichever
// connection has room, opening new connections only when every live
// one is full.
//
// Every entry point follows the same discipline: take the lock,
// mutate state, build a work packet describing the side effects, drop
// the lock, execute the packet. No user callback and no call into
// conn or ConnectionManager (both of which may themselves call back
// synchronously) ever runs while Manager.mu is held.
package streammanager

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	http2 "h2stack"
	"h2stack/conn"
)

// defaultAssumeMaxConcurrentStream matches conn package's own
// no-limit-until-SETTINGS-arrives default. The manager tracks the
// value independently of each connection, since its copy sizes
// new-connection requests before any connection exists.
const defaultAssumeMaxConcurrentStream = 1<<31 - 1

type smState int

const (
	stateReady smState = iota
	stateShuttingDown
)

// smConnection pairs a connection handle with an atomically-updated
// open-stream count; stream completion decrements it before taking
// Manager.mu, while the selector reads it with Manager.mu held.
type smConnection struct {
	conn           *conn.Connection
	numStreamsOpen int32
	goingAway      int32 // atomic bool; 1 once GOAWAY/close observed
}

func (sc *smConnection) isGoingAway() bool { return atomic.LoadInt32(&sc.goingAway) != 0 }

// Options configures a Manager. Several fields (TLSOptions,
// MonitorFn, ProxyFn) are carried only as opaque collaborator handles
// and never inspected by this package.
type Options struct {
	// Host and Port address the peer when ConnManager is nil; Manager
	// builds a DialingConnectionManager from them.
	Host string
	Port int

	// SocketOptions is forwarded to conn.Dial by the default
	// DialingConnectionManager. Ignored when ConnManager is set.
	SocketOptions conn.SocketOptions

	// TLSOptions is an opaque TLS collaborator handle. This package
	// never negotiates TLS/ALPN itself; a non-nil value only has
	// meaning to a caller-supplied ConnManager.
	TLSOptions interface{}

	// EnableReadBackPressure is not read by this package and is not
	// passed to the ConnManager; conn.Connection's DATA-frame path reads
	// eagerly into the body pipe regardless.
	EnableReadBackPressure bool

	// MonitorFn and ProxyFn are opaque hooks for connection-health
	// monitoring and proxy handshakes (see proxystrategy). Neither is
	// called by this package.
	MonitorFn func(*conn.Connection)
	ProxyFn   func(*conn.RequestParams)

	// MaxConnections bounds the default DialingConnectionManager.
	// Ignored when ConnManager is set.
	MaxConnections int

	// InitialWindowSize is not read by this package and is not passed
	// to the ConnManager; the default DialingConnectionManager/conn.Dial
	// pair doesn't negotiate a non-default client
	// SETTINGS_INITIAL_WINDOW_SIZE.
	InitialWindowSize uint32

	// ConnManager overrides the default dial-based ConnectionManager.
	ConnManager ConnectionManager

	// InitialAssumeMaxConcurrentStream seeds assume_max_concurrent_stream
	// before any connection's SETTINGS frame has been seen. Zero means
	// defaultAssumeMaxConcurrentStream.
	InitialAssumeMaxConcurrentStream uint32

	// ShutdownCompleteFn and ShutdownCompleteUserData are called once,
	// after the manager has fully destroyed itself (every connection
	// released, the underlying ConnectionManager's own shutdown
	// complete).
	ShutdownCompleteFn       func(userData interface{})
	ShutdownCompleteUserData interface{}

	// Logf receives rare/unusual-event logging only; the manager never
	// logs on a common path while holding its lock. Nil means the
	// module-wide VerboseLogs-gated logger.
	Logf func(format string, args ...interface{})
}

// Manager pools HTTP/2 connections and vends client-initiated streams.
// The zero value is not usable; construct with New.
type Manager struct {
	connMgr ConnectionManager
	logf    func(string, ...interface{})

	shutdownCompleteFn       func(interface{})
	shutdownCompleteUserData interface{}

	mu                        sync.Mutex
	state                     smState
	pendingAcquisitions       []*pendingAcquisition
	pendingAcquisitionCount   int
	connectionsAcquiring      int
	openStreamCount           int
	assumeMaxConcurrentStream uint32
	connections               []*smConnection
	destroyStarted            bool

	refCount int32 // atomic external ref count, starts at 1
}

// pendingAcquisition is a queued stream request that hasn't yet been
// bound to a connection.
type pendingAcquisition struct {
	params   conn.RequestParams
	callback func(*conn.Stream, error)

	once     sync.Once
	resolved chan struct{}

	smConn *smConnection
}

func newPendingAcquisition(params conn.RequestParams, callback func(*conn.Stream, error)) *pendingAcquisition {
	return &pendingAcquisition{params: params, callback: callback, resolved: make(chan struct{})}
}

func (pa *pendingAcquisition) complete(s *conn.Stream, err error) {
	pa.once.Do(func() {
		close(pa.resolved)
		pa.callback(s, err)
	})
}

// New constructs a ready Manager with an external ref count of 1 (the
// caller's own reference; see Acquire/Release).
func New(opts Options) *Manager {
	connMgr := opts.ConnManager
	if connMgr == nil {
		addr := opts.Host
		if opts.Port != 0 {
			addr = net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
		}
		connMgr = NewDialingConnectionManager(addr, opts.MaxConnections,
			conn.WithSocketOptions(opts.SocketOptions))
	}
	assume := opts.InitialAssumeMaxConcurrentStream
	if assume == 0 {
		assume = defaultAssumeMaxConcurrentStream
	}
	logf := opts.Logf
	if logf == nil {
		logf = http2.Vlogf
	}
	return &Manager{
		connMgr:                   connMgr,
		logf:                      logf,
		shutdownCompleteFn:        opts.ShutdownCompleteFn,
		shutdownCompleteUserData:  opts.ShutdownCompleteUserData,
		state:                     stateReady,
		assumeMaxConcurrentStream: assume,
		refCount:                  1,
	}
}

// Acquire adds one to the manager's external reference count. It is
// the caller's job to balance every Acquire with a Release; New's
// returned Manager already carries the first reference.
func (m *Manager) Acquire() {
	atomic.AddInt32(&m.refCount, 1)
}

// Release drops one external reference. Once the count reaches zero
// the manager transitions to shutting down: every pending acquisition
// fails with ErrShuttingDown, every connection is released back to
// the ConnectionManager as its last stream completes, and
// Options.ShutdownCompleteFn runs once that's all finished.
func (m *Manager) Release() {
	if atomic.AddInt32(&m.refCount, -1) != 0 {
		return
	}
	m.mu.Lock()
	m.state = stateShuttingDown
	wp := m.buildTransactionLocked()
	m.mu.Unlock()
	m.executeTransaction(wp)
}

// AcquireStream requests a new client-initiated stream. callback is
// invoked exactly once, either with a *conn.Stream whose Activate has
// already been called (the caller only needs to read its Response),
// or with a nil stream and a non-nil *Error. If ctx is cancelled
// before a connection has been bound, callback runs with ErrTaskCancelled.
func (m *Manager) AcquireStream(ctx context.Context, params conn.RequestParams, callback func(*conn.Stream, error)) {
	pa := newPendingAcquisition(params, callback)

	m.mu.Lock()
	if m.state == stateShuttingDown {
		m.mu.Unlock()
		pa.complete(nil, newError(ErrShuttingDown, errManagerShuttingDown))
		return
	}
	m.pendingAcquisitions = append(m.pendingAcquisitions, pa)
	m.pendingAcquisitionCount++
	wp := m.buildTransactionLocked()
	m.mu.Unlock()

	m.executeTransaction(wp)

	if ctx != nil {
		go m.watchCancellation(ctx, pa)
	}
}

func (m *Manager) watchCancellation(ctx context.Context, pa *pendingAcquisition) {
	select {
	case <-ctx.Done():
		m.cancelPending(pa, ctx.Err())
	case <-pa.resolved:
	}
}

func (m *Manager) cancelPending(pa *pendingAcquisition, cause error) {
	m.mu.Lock()
	removed := false
	for i, x := range m.pendingAcquisitions {
		if x == pa {
			m.pendingAcquisitions = append(m.pendingAcquisitions[:i:i], m.pendingAcquisitions[i+1:]...)
			m.pendingAcquisitionCount--
			removed = true
			break
		}
	}
	m.mu.Unlock()
	if removed {
		pa.complete(nil, newError(ErrTaskCancelled, cause))
	}
}

// updateAssumeMaxConcurrentStream is the
// SETTINGS_MAX_CONCURRENT_STREAMS bootstrapping callback: a
// connection's first real SETTINGS frame replaces the no-limit
// placeholder, which may immediately free up pending acquisitions
// that were only waiting on capacity accounting.
func (m *Manager) updateAssumeMaxConcurrentStream(n uint32) {
	m.mu.Lock()
	if n == 0 {
		m.mu.Unlock()
		return
	}
	m.assumeMaxConcurrentStream = n
	wp := m.buildTransactionLocked()
	m.mu.Unlock()
	m.executeTransaction(wp)
}

// onConnectionGoAway marks sc not-acceptable for new work immediately,
// without waiting for its last stream to complete, then rebuilds the
// transaction so an already-idle going-away connection is released in
// the same pass.
func (m *Manager) onConnectionGoAway(sc *smConnection) {
	atomic.StoreInt32(&sc.goingAway, 1)
	m.logf("streammanager: connection received GOAWAY; no new streams will be bound to it")

	m.mu.Lock()
	wp := m.buildTransactionLocked()
	m.mu.Unlock()
	m.executeTransaction(wp)
}
