// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package conn

// SocketOptions carries the TCP tuning knobs a dialed connection
// applies before speaking HTTP/2. They are part of
// streammanager.Options' pass-through surface even though the stream
// manager itself never inspects them, only hands them to conn.Dial.
type SocketOptions struct {
	EnableKeepalive bool

	// KeepaliveIntervalSec is both the idle time before the first
	// probe and the interval between probes; the two are not exposed
	// separately.
	KeepaliveIntervalSec int
	KeepaliveTimeoutSec  int

	SendBufferBytes int
	RecvBufferBytes int
}
