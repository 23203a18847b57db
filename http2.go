// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

// Package http2 implements the wire-framing layer of HTTP/2 (RFC 9113):
// the Framer and frame types, flow-control windows, and the error-code
// vocabulary the stream manager and conn package build on. It does not
// implement a server accept loop or TLS/ALPN negotiation; both belong
// to the surrounding application.
package http2

import (
	"fmt"
	"log"
)

// ClientPreface is the fixed 24-octet string an h2-prior-knowledge
// client writes immediately after connecting (RFC 9113 §3.4).
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// initialMaxFrameSize is the default SETTINGS_MAX_FRAME_SIZE (RFC 9113
// §6.5.2). WriteRequestHeadersFrame always fragments header blocks at
// this size; a peer's larger announced SETTINGS_MAX_FRAME_SIZE does not
// change it.
const initialMaxFrameSize = 16384

// VerboseLogs, when true, enables logging of frame traffic and other
// low-level protocol events.
var VerboseLogs bool

func vlogf(format string, args ...interface{}) {
	if VerboseLogs {
		log.Printf(format, args...)
	}
}

// Vlogf is the exported spelling of vlogf for the packages layered on
// top of this one (conn, streammanager) so the whole module shares one
// verbosity switch.
func Vlogf(format string, args ...interface{}) { vlogf(format, args...) }

// ErrCode is an HTTP/2 error code, as defined in RFC 9113 §7.
type ErrCode uint32

const (
	ErrCodeNo                 ErrCode = 0x0
	ErrCodeProtocol           ErrCode = 0x1
	ErrCodeInternal           ErrCode = 0x2
	ErrCodeFlowControl        ErrCode = 0x3
	ErrCodeSettingsTimeout    ErrCode = 0x4
	ErrCodeStreamClosed       ErrCode = 0x5
	ErrCodeFrameSize          ErrCode = 0x6
	ErrCodeRefusedStream      ErrCode = 0x7
	ErrCodeCancel             ErrCode = 0x8
	ErrCodeCompression        ErrCode = 0x9
	ErrCodeConnect            ErrCode = 0xa
	ErrCodeEnhanceYourCalm    ErrCode = 0xb
	ErrCodeInadequateSecurity ErrCode = 0xc
	ErrCodeHTTP11Required     ErrCode = 0xd
)

var errCodeName = map[ErrCode]string{
	ErrCodeNo:                 "NO_ERROR",
	ErrCodeProtocol:           "PROTOCOL_ERROR",
	ErrCodeInternal:           "INTERNAL_ERROR",
	ErrCodeFlowControl:        "FLOW_CONTROL_ERROR",
	ErrCodeSettingsTimeout:    "SETTINGS_TIMEOUT",
	ErrCodeStreamClosed:       "STREAM_CLOSED",
	ErrCodeFrameSize:          "FRAME_SIZE_ERROR",
	ErrCodeRefusedStream:      "REFUSED_STREAM",
	ErrCodeCancel:             "CANCEL",
	ErrCodeCompression:        "COMPRESSION_ERROR",
	ErrCodeConnect:            "CONNECT_ERROR",
	ErrCodeEnhanceYourCalm:    "ENHANCE_YOUR_CALM",
	ErrCodeInadequateSecurity: "INADEQUATE_SECURITY",
	ErrCodeHTTP11Required:     "HTTP_1_1_REQUIRED",
}

func (e ErrCode) String() string {
	if s, ok := errCodeName[e]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN_ERROR_%d", uint32(e))
}

// ConnectionError is an error that terminates the whole connection: a
// GOAWAY with this code should be sent and the socket closed.
type ConnectionError ErrCode

func (e ConnectionError) Error() string { return fmt.Sprintf("connection error: %s", ErrCode(e)) }

// StreamError is an error scoped to a single stream: a RST_STREAM with
// Code should be sent for StreamID, and the connection otherwise
// continues normally.
type StreamError struct {
	StreamID uint32
	Code     ErrCode
}

func (e StreamError) Error() string {
	return fmt.Sprintf("stream error: stream ID %d; %s", e.StreamID, e.Code)
}

// lowerHeader returns the ASCII-lowercase form of a header field name;
// HTTP/2 header names are always lowercase on the wire (RFC 9113 §8.2).
func lowerHeader(v string) string {
	hasUpper := false
	for _, c := range []byte(v) {
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return v
	}
	b := []byte(v)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
