// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package conn

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	http2 "h2stack"
	"h2stack/hpack"
)

// fakePeer drives the other end of a net.Pipe as a bare HTTP/2 frame
// source, the way golang-net/http2/pipe_test.go's in-memory fakes
// stand in for a real socket in tests.
type fakePeer struct {
	fr   *http2.Framer
	henc *hpack.Encoder
}

func newFakePeer(nc net.Conn) *fakePeer {
	return &fakePeer{fr: http2.NewFramer(nc, nc), henc: hpack.NewEncoder(4096)}
}

func (p *fakePeer) replyOK(streamID uint32, body []byte) error {
	block := p.henc.EncodeHeaderBlock(nil, []hpack.HeaderField{
		{Name: ":status", Value: "200"},
		{Name: "content-type", Value: "text/plain"},
	})
	if err := p.fr.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      streamID,
		BlockFragment: block,
		EndHeaders:    true,
		EndStream:     len(body) == 0,
	}); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return p.fr.WriteData(streamID, true, body)
}

func TestMakeRequestActivateAndResponse(t *testing.T) {
	cliNet, srvNet := net.Pipe()
	defer cliNet.Close()
	defer srvNet.Close()

	c := NewConnection(cliNet)
	c.Run()

	peer := newFakePeer(srvNet)
	serverErrCh := make(chan error, 1)
	go func() {
		f, err := peer.fr.ReadFrame()
		if err != nil {
			serverErrCh <- err
			return
		}
		hf, ok := f.(*http2.HeadersFrame)
		if !ok {
			serverErrCh <- fmt.Errorf("unexpected frame: %v", f.Header())
			return
		}
		if !hf.StreamEnded() {
			serverErrCh <- fmt.Errorf("expected END_STREAM on request HEADERS: %v", f.Header())
			return
		}
		serverErrCh <- peer.replyOK(hf.StreamID, []byte("hello"))
	}()

	s, err := c.MakeRequest(RequestParams{
		Method:    "GET",
		Scheme:    "http",
		Authority: "example.com",
		Path:      "/",
		Header:    http.Header{"X-Test": []string{"1"}},
	})
	if err != nil {
		t.Fatalf("MakeRequest: %v", err)
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if err := <-serverErrCh; err != nil {
		t.Fatalf("fake peer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := s.Response(ctx)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("content-type"); got != "text/plain" {
		t.Fatalf("content-type = %q, want text/plain", got)
	}

	body := make([]byte, 5)
	if _, err := io.ReadFull(resp.Body, body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("body = %q, want %q", body, "hello")
	}
}

func TestMakeRequestRejectedAfterGoAway(t *testing.T) {
	cliNet, srvNet := net.Pipe()
	defer cliNet.Close()
	defer srvNet.Close()

	c := NewConnection(cliNet)
	c.Run()

	peer := newFakePeer(srvNet)
	go peer.fr.WriteGoAway(0, uint32(http2.ErrCodeNo), nil)

	deadline := time.Now().Add(2 * time.Second)
	for !c.IsGoingAway() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !c.IsGoingAway() {
		t.Fatal("connection never observed GOAWAY")
	}

	if _, err := c.MakeRequest(RequestParams{Method: "GET", Scheme: "http", Authority: "x", Path: "/"}); err != ErrConnectionClosing {
		t.Fatalf("MakeRequest after GOAWAY = %v, want ErrConnectionClosing", err)
	}
}
