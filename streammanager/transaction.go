// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package streammanager

import (
	"context"
	"sync/atomic"

	"h2stack/conn"
)

// workPacket is everything a call into Manager decided to do while
// holding mu, collected so it can run after mu is released: the only
// permitted output of a locked section besides return values.
type workPacket struct {
	makeRequests       []*pendingAcquisition
	failList           []*pendingAcquisition
	releaseConnections []*smConnection
	newConnections     int
	shouldDestroy      bool
}

// buildTransactionLocked drains pendingAcquisitions against
// connections with spare capacity, computes how many new connections
// are needed for the residual, and fails everything outright once the
// manager is shutting down. It also collects the connections to hand
// back to the ConnectionManager: a going-away connection whose last
// stream has completed, or, once shutting down, any connection with
// no streams left. Callers must hold m.mu.
func (m *Manager) buildTransactionLocked() *workPacket {
	wp := &workPacket{}

	if m.state == stateShuttingDown {
		wp.failList = m.pendingAcquisitions
		m.pendingAcquisitions = nil
		m.pendingAcquisitionCount = 0
	} else {
		for len(m.pendingAcquisitions) > 0 {
			sc := m.selectConnectionLocked()
			if sc == nil {
				break
			}
			pa := m.pendingAcquisitions[0]
			m.pendingAcquisitions = m.pendingAcquisitions[1:]
			m.pendingAcquisitionCount--

			pa.smConn = sc
			atomic.AddInt32(&sc.numStreamsOpen, 1)
			m.openStreamCount++
			wp.makeRequests = append(wp.makeRequests, pa)
		}

		if m.pendingAcquisitionCount > 0 && m.assumeMaxConcurrentStream > 0 {
			needed := ceilDiv(m.pendingAcquisitionCount, int(m.assumeMaxConcurrentStream)) - m.connectionsAcquiring
			if needed > 0 {
				wp.newConnections = needed
				m.connectionsAcquiring += needed
			}
		}
	}

	// Release scan runs after binding so a connection bound in this
	// same packet (numStreamsOpen just incremented) is never released
	// out from under its acquisition.
	kept := m.connections[:0]
	for _, sc := range m.connections {
		idle := atomic.LoadInt32(&sc.numStreamsOpen) == 0
		if idle && (sc.isGoingAway() || m.state == stateShuttingDown) {
			wp.releaseConnections = append(wp.releaseConnections, sc)
			continue
		}
		kept = append(kept, sc)
	}
	m.connections = kept

	if m.state == stateShuttingDown && !m.destroyStarted &&
		len(m.connections) == 0 && m.connectionsAcquiring == 0 && m.openStreamCount == 0 {
		wp.shouldDestroy = true
		m.destroyStarted = true
	}

	return wp
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// executeTransaction runs everything buildTransactionLocked decided,
// outside the lock: fail callbacks first, then connection releases,
// then stream activation for the bound acquisitions, then new
// connection-acquire calls, and destruction last.
func (m *Manager) executeTransaction(wp *workPacket) {
	for _, pa := range wp.failList {
		pa.complete(nil, newError(ErrShuttingDown, errManagerShuttingDown))
	}
	for _, sc := range wp.releaseConnections {
		m.connMgr.ReleaseConnection(sc.conn)
	}
	for _, pa := range wp.makeRequests {
		m.activateOnConnection(pa)
	}
	for i := 0; i < wp.newConnections; i++ {
		m.acquireNewConnection()
	}
	if wp.shouldDestroy {
		m.finalizeDestroy()
	}
}

func (m *Manager) activateOnConnection(pa *pendingAcquisition) {
	s, err := pa.smConn.conn.MakeRequest(pa.params)
	if err == nil {
		err = s.Activate()
	}
	if err != nil {
		m.onStreamFailedToStart(pa.smConn)
		pa.complete(nil, newError(ErrStreamCreateFailed, err))
		return
	}
	go m.watchStreamCompletion(pa.smConn, s)
	pa.complete(s, nil)
}

// watchStreamCompletion waits for s to fully terminate and then runs
// the same lock/build/unlock/execute sequence on its behalf.
func (m *Manager) watchStreamCompletion(sc *smConnection, s *conn.Stream) {
	<-s.Done()
	m.onStreamComplete(sc)
}

// onStreamComplete returns the stream's capacity slot. The connection
// release rule lives in buildTransactionLocked's release scan: once
// the completing stream was the connection's last and the connection
// is going away (or the manager is shutting down), the rebuilt packet
// hands it back to the ConnectionManager.
func (m *Manager) onStreamComplete(sc *smConnection) {
	atomic.AddInt32(&sc.numStreamsOpen, -1)

	m.mu.Lock()
	m.openStreamCount--
	wp := m.buildTransactionLocked()
	m.mu.Unlock()
	m.executeTransaction(wp)
}

// onStreamFailedToStart undoes the optimistic accounting
// buildTransactionLocked performed for a pending acquisition that
// failed to activate (e.g. the bound connection died between
// selection and MakeRequest).
func (m *Manager) onStreamFailedToStart(sc *smConnection) {
	atomic.AddInt32(&sc.numStreamsOpen, -1)

	m.mu.Lock()
	m.openStreamCount--
	wp := m.buildTransactionLocked()
	m.mu.Unlock()
	m.executeTransaction(wp)
}

// acquireNewConnection asks the ConnectionManager for one more
// connection and wires its hooks (SETTINGS_MAX_CONCURRENT_STREAMS,
// GOAWAY) through to the manager before it can observe any frames.
func (m *Manager) acquireNewConnection() {
	box := &struct {
		sc *smConnection
	}{}
	hooks := ConnHooks{
		OnMaxConcurrentStreams: func(n uint32) { m.updateAssumeMaxConcurrentStream(n) },
		OnGoAway: func() {
			m.mu.Lock()
			sc := box.sc
			m.mu.Unlock()
			if sc != nil {
				m.onConnectionGoAway(sc)
			}
		},
	}
	m.connMgr.AcquireConnection(context.Background(), hooks, func(c *conn.Connection, err error) {
		m.onConnectionAcquired(c, err, box)
	})
}

func (m *Manager) onConnectionAcquired(c *conn.Connection, err error, box *struct{ sc *smConnection }) {
	if err != nil {
		m.onConnectionAcquireFailed(err)
		return
	}

	sc := &smConnection{conn: c}
	if c.IsGoingAway() {
		sc.goingAway = 1
	}

	m.mu.Lock()
	box.sc = sc
	m.connectionsAcquiring--
	m.connections = append(m.connections, sc)
	wp := m.buildTransactionLocked()
	m.mu.Unlock()
	m.executeTransaction(wp)
}

// onConnectionAcquireFailed fails exactly the acquisitions this one
// connect attempt was sized for, rather than retrying; a retry here
// could recurse through a synchronously-failing ConnectionManager.
func (m *Manager) onConnectionAcquireFailed(cause error) {
	m.mu.Lock()
	m.connectionsAcquiring--
	var toFail []*pendingAcquisition
	assume := int(m.assumeMaxConcurrentStream)
	if assume <= 0 {
		assume = 1
	}
	for len(toFail) < assume && len(m.pendingAcquisitions) > 0 {
		toFail = append(toFail, m.pendingAcquisitions[0])
		m.pendingAcquisitions = m.pendingAcquisitions[1:]
		m.pendingAcquisitionCount--
	}
	wp := m.buildTransactionLocked()
	m.mu.Unlock()

	m.logf("streammanager: connection acquire failed (%v); failing %d pending acquisitions", cause, len(toFail))
	for _, pa := range toFail {
		pa.complete(nil, newError(ErrConnectionAcquireFailed, cause))
	}
	m.executeTransaction(wp)
}
