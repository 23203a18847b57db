// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package streammanager

// finalizeDestroy runs once, when buildTransactionLocked has
// confirmed every precondition for destruction holds: the manager is
// shutting down, no connection is held, none is being acquired, and
// no stream is open. It hands off to the underlying connection
// manager's own shutdown and only calls Options.ShutdownCompleteFn
// once that finishes.
func (m *Manager) finalizeDestroy() {
	m.connMgr.Shutdown(func() {
		if m.shutdownCompleteFn != nil {
			m.shutdownCompleteFn(m.shutdownCompleteUserData)
		}
	})
}
