// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package http2

import (
	"bytes"
	"net/http"

	"h2stack/hpack"
)

// WriteContext is the interface conn.Connection implements so the
// request-header writer below can reach the wire Framer and the
// connection's single HPACK encoder without this package importing
// conn (which would be an import cycle: conn already imports this
// package for Framer/FrameHeader/ErrCode).
type WriteContext interface {
	Framer() *Framer
	// HeaderEncoder returns the connection's HPACK encoder together
	// with the scratch buffer EncodeHeaderBlock appends into.
	HeaderEncoder() (*hpack.Encoder, *bytes.Buffer)
}

// RequestWriteParams describes an outgoing client request's HEADERS
// (+ CONTINUATION, if needed) frame. This package only ever
// originates client requests; responses are decoded, never written.
type RequestWriteParams struct {
	StreamID  uint32
	Method    string
	Scheme    string
	Authority string
	Path      string
	Header    http.Header

	EndStream bool
}

// WriteRequestHeadersFrame encodes req's pseudo-headers and regular
// headers into a single HPACK block via ctx's encoder, then writes it
// out as one HEADERS frame plus as many CONTINUATION frames as needed
// to stay within initialMaxFrameSize.
func WriteRequestHeadersFrame(ctx WriteContext, req *RequestWriteParams) error {
	enc, buf := ctx.HeaderEncoder()
	buf.Reset()

	fields := []hpack.HeaderField{
		{Name: ":method", Value: req.Method},
		{Name: ":scheme", Value: req.Scheme},
		{Name: ":authority", Value: req.Authority, Hint: hpack.HintUseCache},
		{Name: ":path", Value: req.Path},
	}
	for k, vv := range req.Header {
		k = lowerHeader(k)
		for _, v := range vv {
			// RFC 9113 §8.2.2: Connection-Specific Header Fields must
			// not be sent on an HTTP/2 request.
			switch k {
			case "connection", "keep-alive", "proxy-connection", "transfer-encoding", "upgrade":
				continue
			}
			hint := hpack.HintUseCache
			if k == "authorization" || k == "cookie" {
				hint = hpack.HintNoCacheNoIndex
			}
			fields = append(fields, hpack.HeaderField{Name: k, Value: v, Hint: hint})
		}
	}
	buf.Write(enc.EncodeHeaderBlock(nil, fields))

	headerBlock := buf.Bytes()
	if len(headerBlock) == 0 {
		panic("unexpected empty hpack block for a request")
	}

	first := true
	for len(headerBlock) > 0 {
		frag := headerBlock
		if len(frag) > initialMaxFrameSize {
			frag = frag[:initialMaxFrameSize]
		}
		headerBlock = headerBlock[len(frag):]
		endHeaders := len(headerBlock) == 0
		var err error
		if first {
			first = false
			err = ctx.Framer().WriteHeaders(HeadersFrameParam{
				StreamID:      req.StreamID,
				BlockFragment: frag,
				EndStream:     req.EndStream,
				EndHeaders:    endHeaders,
			})
		} else {
			err = ctx.Framer().WriteContinuation(req.StreamID, endHeaders, frag)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
