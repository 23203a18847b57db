// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

//go:build !linux && !darwin

package conn

import "net"

// Configure, on platforms without an x/sys/unix-flavored setsockopt
// path wired here, only turns keepalive on when EnableKeepalive is set;
// the interval, timeout and buffer sizes are ignored, and with
// EnableKeepalive unset tc's keepalive is left at Go's default.
func (o SocketOptions) Configure(tc *net.TCPConn) error {
	if o.EnableKeepalive {
		return tc.SetKeepAlive(true)
	}
	return nil
}
