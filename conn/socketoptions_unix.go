// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

//go:build linux || darwin

package conn

import (
	"net"

	"golang.org/x/sys/unix"
)

// Configure applies the keepalive and buffer tuning in o to tc via
// SO_KEEPALIVE/TCP_KEEPIDLE-equivalent setsockopt calls. Errors are
// non-fatal: a connection that can't apply keepalive tuning is still
// usable, just without the liveness signal, so the caller's dial
// proceeds either way.
func (o SocketOptions) Configure(tc *net.TCPConn) error {
	if !o.EnableKeepalive {
		return tc.SetKeepAlive(false)
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}

	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if o.KeepaliveIntervalSec > 0 {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, keepIdleOpt, o.KeepaliveIntervalSec)
			if sockErr != nil {
				return
			}
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, o.KeepaliveIntervalSec)
			if sockErr != nil {
				return
			}
		}
		if o.KeepaliveTimeoutSec > 0 && o.KeepaliveIntervalSec > 0 {
			probes := o.KeepaliveTimeoutSec / o.KeepaliveIntervalSec
			if probes < 1 {
				probes = 1
			}
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, probes)
		}
		if o.SendBufferBytes > 0 {
			unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, o.SendBufferBytes)
		}
		if o.RecvBufferBytes > 0 {
			unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, o.RecvBufferBytes)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}
