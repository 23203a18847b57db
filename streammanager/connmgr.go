// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package streammanager

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"h2stack/conn"
)

// ConnectionManager vends and reclaims *conn.Connection values,
// bounded by some notion of "how many connections at once." The
// stream manager never dials a socket itself; it only calls through
// this interface, so a caller can swap in a mock for tests or a
// TLS/proxy-aware dialer without touching manager.go.
//
// AcquireConnection must report success or failure by calling cb
// exactly once. It may call cb synchronously (immediate failure is
// the common case for that) or from another goroutine.
type ConnectionManager interface {
	// AcquireConnection must call cb exactly once. hooks must be wired
	// into the connection before it starts reading frames (conn.Dial's
	// WithOnMaxConcurrentStreams/WithOnGoAway do this) so the manager
	// never misses the connection's first SETTINGS or a later GOAWAY.
	AcquireConnection(ctx context.Context, hooks ConnHooks, cb func(*conn.Connection, error))
	ReleaseConnection(c *conn.Connection)
	// Shutdown begins releasing any resources held by the manager and
	// calls onComplete once every outstanding connection has been
	// released. It must not block.
	Shutdown(onComplete func())
}

// ConnHooks carries the manager's per-connection callbacks through a
// ConnectionManager implementation down to conn.Dial, since Dial only
// accepts them up front (before its read loop starts) via DialOption.
type ConnHooks struct {
	OnMaxConcurrentStreams func(uint32)
	OnGoAway               func()
}

// DialingConnectionManager is the reference ConnectionManager: it
// dials addr directly (no TLS, no proxy; h2 prior knowledge only) and
// caps the number of connections it will have outstanding at once
// with a weighted semaphore.
type DialingConnectionManager struct {
	addr     string
	dialOpts []conn.DialOption
	sem      *semaphore.Weighted
	maxConns int64

	mu       sync.Mutex
	live     map[*conn.Connection]struct{}
	shutDown bool
}

// NewDialingConnectionManager constructs a ConnectionManager that
// dials addr on demand, never holding more than maxConns connections
// open concurrently. maxConns <= 0 means unbounded.
func NewDialingConnectionManager(addr string, maxConns int, dialOpts ...conn.DialOption) *DialingConnectionManager {
	m := &DialingConnectionManager{
		addr:     addr,
		dialOpts: dialOpts,
		live:     make(map[*conn.Connection]struct{}),
	}
	if maxConns > 0 {
		m.maxConns = int64(maxConns)
		m.sem = semaphore.NewWeighted(m.maxConns)
	}
	return m
}

func (m *DialingConnectionManager) AcquireConnection(ctx context.Context, hooks ConnHooks, cb func(*conn.Connection, error)) {
	go func() {
		if m.sem != nil {
			if err := m.sem.Acquire(ctx, 1); err != nil {
				cb(nil, err)
				return
			}
		}
		opts := make([]conn.DialOption, 0, len(m.dialOpts)+2)
		opts = append(opts, m.dialOpts...)
		opts = append(opts,
			conn.WithOnMaxConcurrentStreams(hooks.OnMaxConcurrentStreams),
			conn.WithOnGoAway(hooks.OnGoAway),
		)
		c, err := conn.Dial(ctx, m.addr, opts...)
		if err != nil {
			if m.sem != nil {
				m.sem.Release(1)
			}
			cb(nil, err)
			return
		}
		m.mu.Lock()
		if m.shutDown {
			m.mu.Unlock()
			c.CloseConn()
			if m.sem != nil {
				m.sem.Release(1)
			}
			cb(nil, conn.ErrConnectionClosing)
			return
		}
		m.live[c] = struct{}{}
		m.mu.Unlock()
		cb(c, nil)
	}()
}

func (m *DialingConnectionManager) ReleaseConnection(c *conn.Connection) {
	m.mu.Lock()
	_, ok := m.live[c]
	delete(m.live, c)
	m.mu.Unlock()
	if !ok {
		return
	}
	c.CloseConn()
	if m.sem != nil {
		m.sem.Release(1)
	}
}

func (m *DialingConnectionManager) Shutdown(onComplete func()) {
	m.mu.Lock()
	m.shutDown = true
	live := m.live
	m.live = make(map[*conn.Connection]struct{})
	m.mu.Unlock()
	for c := range live {
		c.CloseConn()
		if m.sem != nil {
			m.sem.Release(1)
		}
	}
	if onComplete != nil {
		onComplete()
	}
}
