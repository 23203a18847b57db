// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package conn

import (
	http2 "h2stack"
)

// assumeMaxConcurrentStreamDefault stands in until a real SETTINGS
// frame arrives: the stream manager should behave as though the peer
// places no meaningful limit on concurrent streams (RFC 9113 §6.5.2
// leaves SETTINGS_MAX_CONCURRENT_STREAMS unbounded by default).
const assumeMaxConcurrentStreamDefault = 1<<31 - 1

// processSettings handles an incoming SETTINGS frame: acknowledges
// it, applies the values that affect this connection's local state
// (HPACK encoder table size, assumed frame size), and calls the
// stream manager's onMaxConcurrentStreams hook every time the peer
// announces SETTINGS_MAX_CONCURRENT_STREAMS.
func (c *Connection) processSettings(f *http2.SettingsFrame) {
	if f.IsAck() {
		return
	}

	var newMaxConcurrent uint32
	var sawMaxConcurrent bool

	f.ForeachSetting(func(s http2.Setting) {
		switch s.ID {
		case http2.SettingHeaderTableSize:
			c.henc.SetMaxDynamicTableSize(s.Val)
		case http2.SettingMaxFrameSize:
			c.mu.Lock()
			c.peerMaxFrameSize = s.Val
			c.mu.Unlock()
		case http2.SettingMaxConcurrentStreams:
			newMaxConcurrent = s.Val
			sawMaxConcurrent = true
		}
	})

	if sawMaxConcurrent {
		c.mu.Lock()
		c.maxConcurrentStreams = newMaxConcurrent
		c.mu.Unlock()
	}

	c.writeMu.Lock()
	err := c.fr.WriteSettingsAck()
	if err == nil {
		err = c.bw.Flush()
	}
	c.writeMu.Unlock()
	if err != nil {
		return
	}

	// Hooks run after the lock that guarded the state they report is
	// released; they may call back into this connection.
	if sawMaxConcurrent && c.onMaxConcurrentStreams != nil {
		c.onMaxConcurrentStreams(newMaxConcurrent)
	}
}
