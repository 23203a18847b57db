// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package streammanager

import "sync/atomic"

// selectConnectionLocked picks the connection to bind the next
// acquisition to: among live connections that are neither going away
// nor already at assumeMaxConcurrentStream, the one with the lowest
// current open-stream count wins, ties broken by insertion order
// (m.connections is append-only until a connection is released, so
// iteration order already is insertion order: the first connection
// found with a strictly lower count than the current best wins,
// leaving an equal-count tie on the earlier entry). Returns nil if no
// connection has spare capacity. Callers must hold m.mu.
func (m *Manager) selectConnectionLocked() *smConnection {
	var best *smConnection
	var bestCount int32

	for _, sc := range m.connections {
		if sc.isGoingAway() {
			continue
		}
		n := atomic.LoadInt32(&sc.numStreamsOpen)
		if n >= int32(m.assumeMaxConcurrentStream) {
			continue
		}
		if best == nil || n < bestCount {
			best = sc
			bestCount = n
		}
	}
	return best
}
