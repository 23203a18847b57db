// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

// Package conn implements a single client HTTP/2 connection, speaking
// h2 prior knowledge, able to create and activate client-initiated
// streams. It has no server accept loop and does not negotiate
// TLS/ALPN; both belong to the surrounding application.
//
// Request creation and activation are split (MakeRequest then
// Stream.Activate): a stream can be built and handed to a caller
// before any bytes hit the wire, which is what lets the stream
// manager bind a pending acquisition to a connection before it
// actually schedules the send.
package conn

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"

	http2 "h2stack"
	"h2stack/hpack"
)

// ErrConnectionClosing is returned by MakeRequest and Stream.Activate
// once the connection has seen GOAWAY or been closed locally. The
// stream manager's executor reports it through the acquisition's
// callback rather than panicking.
var ErrConnectionClosing = errors.New("conn: connection is closing")

// Connection is a single client HTTP/2 connection. It owns the wire
// Framer, one HPACK encoder and one HPACK decoder (HPACK state is
// per-direction, hpack.go's package doc), and the bookkeeping for
// client-initiated streams.
type Connection struct {
	nc net.Conn
	fr *http2.Framer
	bw *bufio.Writer
	br *bufio.Reader

	henc    *hpack.Encoder
	hencBuf bytes.Buffer
	hdec    *hpack.Decoder

	// sendFlow is the connection-level send window (RFC 9113 §6.9.1
	// starts it at 65535): body writers acquire from it, the read loop
	// adds the peer's stream-0 WINDOW_UPDATE increments back.
	// Per-stream windows are not tracked; see the WINDOW_UPDATE case
	// in readLoop.
	sendFlow *http2.Flow

	writeMu sync.Mutex // serializes actual frame writes on the wire

	mu                   sync.Mutex // guards the fields below
	streams              map[uint32]*Stream
	nextStreamID         uint32
	maxConcurrentStreams uint32 // "assume_max_concurrent_stream", see settings.go
	peerMaxFrameSize     uint32
	goAway               bool
	closed               bool
	closeErr             error

	// onMaxConcurrentStreams is the stream manager's hook, called
	// (never while c.mu is held) whenever a peer SETTINGS frame
	// announces SETTINGS_MAX_CONCURRENT_STREAMS.
	onMaxConcurrentStreams func(uint32)
	// onGoAway is called once, the first time the peer sends GOAWAY.
	onGoAway func()

	readErr  error
	readDone chan struct{}
}

// DialOption configures Dial.
type DialOption func(*Connection)

// WithSocketOptions applies platform socket tuning (keepalive,
// buffer sizes) to the dialed *net.TCPConn before the HTTP/2 preface
// is written. See socketoptions.go.
func WithSocketOptions(opts SocketOptions) DialOption {
	return func(c *Connection) {
		if tc, ok := c.nc.(*net.TCPConn); ok {
			opts.Configure(tc) // best-effort; the error is discarded and the dial proceeds
		}
	}
}

// WithOnMaxConcurrentStreams registers f as the connection's
// SETTINGS_MAX_CONCURRENT_STREAMS callback before the read loop
// starts, so no frame can race the registration (OnMaxConcurrentStreams's
// own doc comment requirement). f may be nil.
func WithOnMaxConcurrentStreams(f func(uint32)) DialOption {
	return func(c *Connection) {
		if f != nil {
			c.OnMaxConcurrentStreams(f)
		}
	}
}

// WithOnGoAway registers f as the connection's GOAWAY callback before
// the read loop starts. f may be nil.
func WithOnGoAway(f func()) DialOption {
	return func(c *Connection) {
		if f != nil {
			c.OnGoAway(f)
		}
	}
}

// Dial opens a TCP connection to addr and performs the h2
// prior-knowledge handshake (RFC 9113 §3.4): write the client
// preface, send an initial SETTINGS frame, and start the read loop.
// There is no TLS/ALPN negotiation here; this package only ever
// speaks prior knowledge.
func Dial(ctx context.Context, addr string, opts ...DialOption) (*Connection, error) {
	d := net.Dialer{}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c := NewConnection(nc)
	for _, opt := range opts {
		opt(c)
	}
	if _, err := nc.Write([]byte(http2.ClientPreface)); err != nil {
		nc.Close()
		return nil, err
	}
	if err := c.fr.WriteSettings(); err != nil {
		nc.Close()
		return nil, err
	}
	if err := c.Flush(); err != nil {
		nc.Close()
		return nil, err
	}
	go c.readLoop()
	return c, nil
}

// NewConnection wraps an already-established net.Conn (including a
// net.Pipe endpoint, which is how tests stand in for a socket). The
// caller is responsible for the h2 preface if one is required;
// NewConnection itself only sets up framing and HPACK state.
func NewConnection(nc net.Conn) *Connection {
	bw := bufio.NewWriter(nc)
	br := bufio.NewReader(nc)
	c := &Connection{
		nc:                   nc,
		bw:                   bw,
		br:                   br,
		fr:                   http2.NewFramer(bw, br),
		henc:                 hpack.NewEncoder(4096),
		hdec:                 hpack.NewDecoder(4096),
		sendFlow:             http2.NewFlow(65535),
		streams:              make(map[uint32]*Stream),
		nextStreamID:         1, // client-initiated stream IDs are odd (RFC 9113 §5.1.1)
		maxConcurrentStreams: assumeMaxConcurrentStreamDefault,
		readDone:             make(chan struct{}),
	}
	// A compliant peer keeps frames within our (default 16384)
	// SETTINGS_MAX_FRAME_SIZE; anything past this is either an attack
	// or a peer we can't talk to, so bound the read-side allocation.
	c.fr.SetMaxReadFrameSize(1 << 20)
	return c
}

// Run starts the read loop for a Connection constructed with
// NewConnection, without performing a preface handshake. Dial calls
// this for the caller; direct users of NewConnection (tests wiring a
// net.Pipe pair by hand) call it once both ends are ready.
func (c *Connection) Run() { go c.readLoop() }

// OnMaxConcurrentStreams registers a callback invoked whenever the
// peer announces SETTINGS_MAX_CONCURRENT_STREAMS. It must be called
// before Run/Dial to avoid missing the peer's first SETTINGS frame.
func (c *Connection) OnMaxConcurrentStreams(f func(uint32)) { c.onMaxConcurrentStreams = f }

// OnGoAway registers a callback invoked once, the first time the
// connection observes a GOAWAY frame from the peer.
func (c *Connection) OnGoAway(f func()) { c.onGoAway = f }

// Framer and HeaderEncoder implement write.go's WriteContext
// interface, letting Connection hand itself to WriteRequestHeadersFrame.
func (c *Connection) Framer() *http2.Framer { return c.fr }

func (c *Connection) Flush() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.bw.Flush()
}

func (c *Connection) CloseConn() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.nc.Close()
}

func (c *Connection) HeaderEncoder() (*hpack.Encoder, *bytes.Buffer) {
	return c.henc, &c.hencBuf
}

// MaxConcurrentStreams returns the connection's current belief about
// the peer's stream concurrency limit. It starts at
// assumeMaxConcurrentStreamDefault until a real SETTINGS frame
// arrives.
func (c *Connection) MaxConcurrentStreams() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxConcurrentStreams
}

// NumStreamsOpen reports the number of streams currently registered
// on this connection, used by streammanager/selector.go's
// lowest-num-streams-open policy.
func (c *Connection) NumStreamsOpen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

// IsGoingAway reports whether this connection has received GOAWAY (or
// been closed locally) and should no longer be bound to new
// acquisitions, even while streams already on it keep draining.
func (c *Connection) IsGoingAway() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goAway || c.closed
}

// RequestParams describes an outgoing client request. Header must not
// contain HTTP/2 pseudo-headers; those are derived from Method,
// Scheme, Authority, and Path.
type RequestParams struct {
	Method    string
	Scheme    string
	Authority string
	Path      string
	Header    http.Header
	Body      io.Reader // nil for a request with no body
}

// Stream is a single client-initiated HTTP/2 stream. It is created by
// MakeRequest in an unsent state and only actually writes its HEADERS
// frame once Activate is called.
type Stream struct {
	id   uint32
	conn *Connection

	params RequestParams

	activated bool

	respReady chan struct{}
	respOnce  sync.Once
	status    int
	header    http.Header
	bodyR     *io.PipeReader
	bodyW     *io.PipeWriter
	err       error

	done     chan struct{}
	doneOnce sync.Once
}

// ID is the HTTP/2 stream identifier assigned at MakeRequest time.
func (s *Stream) ID() uint32 { return s.id }

// Done returns a channel closed once the stream has fully terminated
// (body closed, reset, or the connection failed). streammanager uses
// this to learn when to release the stream's slot on its bound
// connection without blocking on Response's headers-only signal.
func (s *Stream) Done() <-chan struct{} { return s.done }

func (s *Stream) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// MakeRequest allocates a new client-initiated stream and registers
// it with the connection, but does not write anything to the wire.
// The stream manager can hand the caller a *Stream as soon as a
// connection is selected, then Activate it once its turn in the
// executor's work packet comes up.
func (c *Connection) MakeRequest(p RequestParams) (*Stream, error) {
	c.mu.Lock()
	if c.goAway || c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosing
	}
	id := c.nextStreamID
	c.nextStreamID += 2
	s := &Stream{
		id:        id,
		conn:      c,
		params:    p,
		respReady: make(chan struct{}),
		header:    make(http.Header),
		done:      make(chan struct{}),
	}
	s.bodyR, s.bodyW = io.Pipe()
	c.streams[id] = s
	c.mu.Unlock()
	return s, nil
}

// Activate writes the stream's HEADERS (+ CONTINUATION, if needed)
// frame, and if a body was supplied, starts a goroutine streaming it
// as DATA frames. It is safe to call at most once per Stream.
func (s *Stream) Activate() error {
	c := s.conn
	c.mu.Lock()
	if c.goAway || c.closed {
		c.mu.Unlock()
		return ErrConnectionClosing
	}
	if s.activated {
		c.mu.Unlock()
		return fmt.Errorf("conn: stream %d already activated", s.id)
	}
	s.activated = true
	c.mu.Unlock()

	endStream := s.params.Body == nil

	c.writeMu.Lock()
	err := http2.WriteRequestHeadersFrame(c, &http2.RequestWriteParams{
		StreamID:  s.id,
		Method:    s.params.Method,
		Scheme:    s.params.Scheme,
		Authority: s.params.Authority,
		Path:      s.params.Path,
		Header:    s.params.Header,
		EndStream: endStream,
	})
	if err == nil {
		err = c.bw.Flush()
	}
	c.writeMu.Unlock()
	if err != nil {
		return err
	}

	if !endStream {
		go s.writeBody()
	}
	return nil
}

// dataChunkLen sizes writeBody's read buffer to the peer's announced
// SETTINGS_MAX_FRAME_SIZE, bounded so one chunk never monopolizes the
// connection send window.
func (c *Connection) dataChunkLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int(c.peerMaxFrameSize)
	if n < 16384 {
		n = 16384
	}
	if n > 65536 {
		n = 65536
	}
	return n
}

func (s *Stream) writeBody() {
	c := s.conn
	buf := make([]byte, c.dataChunkLen())
	for {
		n, err := s.params.Body.Read(buf)
		if n > 0 {
			if !c.sendFlow.Acquire(int32(n)) {
				return // connection died while waiting for window credit
			}
			c.writeMu.Lock()
			werr := c.fr.WriteData(s.id, false, buf[:n])
			if werr == nil {
				werr = c.bw.Flush()
			}
			c.writeMu.Unlock()
			if werr != nil {
				return
			}
		}
		if err == io.EOF {
			c.writeMu.Lock()
			c.fr.WriteData(s.id, true, nil)
			c.bw.Flush()
			c.writeMu.Unlock()
			return
		}
		if err != nil {
			return
		}
	}
}

// Response blocks until the stream's response headers have been
// decoded (or the stream/connection has failed) and returns an
// *http.Response whose Body streams the DATA frames as they arrive.
func (s *Stream) Response(ctx context.Context) (*http.Response, error) {
	select {
	case <-s.respReady:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     s.header,
		Body:       s.bodyR,
		Proto:      "HTTP/2.0",
		ProtoMajor: 2,
	}, nil
}

func (s *Stream) deliverHeaders(status int, h http.Header) {
	s.respOnce.Do(func() {
		s.status = status
		s.header = h
		close(s.respReady)
	})
}

func (s *Stream) deliverError(err error) {
	s.respOnce.Do(func() {
		s.err = err
		close(s.respReady)
	})
	s.bodyW.CloseWithError(err)
	s.markDone()
}

// readLoop owns the Framer's read side exclusively; it is the only
// goroutine that calls fr.ReadFrame.
func (c *Connection) readLoop() {
	defer close(c.readDone)
	defer c.nc.Close()

	c.hdec.StartBlock()
	var headerBlockStream *Stream
	var headerBlockEndStream bool
	var headerBlockBuf bytes.Buffer

	for {
		f, err := c.fr.ReadFrame()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.closed = true
			streams := c.streams
			c.streams = nil
			c.mu.Unlock()
			c.sendFlow.Close() // unblock any body writer waiting on window
			for _, s := range streams {
				s.deliverError(err)
			}
			return
		}

		switch f := f.(type) {
		case *http2.SettingsFrame:
			c.processSettings(f)
		case *http2.PingFrame:
			if !f.Flags.Has(http2.FlagPingAck) {
				c.writeMu.Lock()
				c.fr.WritePing(true, f.Data)
				c.bw.Flush()
				c.writeMu.Unlock()
			}
		case *http2.GoAwayFrame:
			c.mu.Lock()
			alreadyGone := c.goAway
			c.goAway = true
			c.mu.Unlock()
			if !alreadyGone && c.onGoAway != nil {
				c.onGoAway()
			}
		case *http2.HeadersFrame:
			s := c.streamByID(f.StreamID)
			headerBlockStream = s
			headerBlockEndStream = f.StreamEnded()
			headerBlockBuf.Reset()
			headerBlockBuf.Write(f.HeaderBlockFragment())
			if f.HeadersEnded() {
				c.finishHeaderBlock(s, headerBlockBuf.Bytes(), f.StreamEnded())
				headerBlockStream = nil
			}
		case *http2.ContinuationFrame:
			headerBlockBuf.Write(f.HeaderBlockFragment())
			if f.HeadersEnded() {
				c.finishHeaderBlock(headerBlockStream, headerBlockBuf.Bytes(), headerBlockEndStream)
				headerBlockStream = nil
			}
		case *http2.DataFrame:
			s := c.streamByID(f.StreamID)
			if s != nil {
				if len(f.Data()) > 0 {
					s.bodyW.Write(f.Data())
				}
				if f.Flags.Has(http2.FlagDataEndStream) {
					s.bodyW.Close()
					s.markDone()
					c.removeStream(f.StreamID)
				}
			}
		case *http2.RSTStreamFrame:
			s := c.streamByID(f.StreamID)
			if s != nil {
				s.deliverError(fmt.Errorf("conn: stream %d reset, error code %d", f.StreamID, f.ErrCode))
				c.removeStream(f.StreamID)
			}
		case *http2.WindowUpdateFrame:
			// Only the connection-level window gates writes here;
			// stream-level increments are dropped since no per-stream
			// window is maintained for the send direction.
			if f.StreamID == 0 {
				if !c.sendFlow.Add(int32(f.Increment)) {
					// Window overflow is a FLOW_CONTROL_ERROR (RFC 9113
					// §6.9.1); drop the connection.
					c.CloseConn()
				}
			}
		}
	}
}

// finishHeaderBlock decodes a complete HEADERS(+CONTINUATION...)
// block and delivers it to s, splitting the decoded :status
// pseudo-header from the regular response headers.
func (c *Connection) finishHeaderBlock(s *Stream, block []byte, streamEnded bool) {
	c.hdec.StartBlock()
	h := make(http.Header)
	status := 0
	for len(block) > 0 {
		n, res, err := c.hdec.Decode(block)
		block = block[n:]
		if err != nil {
			if s != nil {
				s.deliverError(err)
			}
			return
		}
		switch res.Type {
		case hpack.DecodeHeaderField:
			if res.Field.Name == ":status" {
				status, _ = strconv.Atoi(res.Field.Value)
				continue
			}
			h.Add(res.Field.Name, res.Field.Value)
		case hpack.DecodeDynamicTableResize:
			// peer announced a table-size update; dynTable already
			// resized itself inside Decode.
		case hpack.DecodeOngoing:
			// n should always consume the whole block here since the
			// caller assembled it from HEADERS+CONTINUATION already,
			// but guard against a malformed/truncated block.
			if n == 0 {
				if s != nil {
					s.deliverError(errors.New("conn: truncated header block"))
				}
				return
			}
		}
	}
	if s == nil {
		return
	}
	s.deliverHeaders(status, h)
	if streamEnded {
		s.bodyW.Close()
		s.markDone()
		c.removeStream(s.id)
	}
}

func (c *Connection) streamByID(id uint32) *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streams == nil {
		return nil
	}
	return c.streams[id]
}

func (c *Connection) removeStream(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streams != nil {
		delete(c.streams, id)
	}
}
