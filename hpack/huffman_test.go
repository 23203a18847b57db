// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

// RFC 7541 Appendix C.4.1: the Huffman encoding of "www.example.com".
func TestHuffmanRFCExample(t *testing.T) {
	const s = "www.example.com"
	want, err := hex.DecodeString("f1e3c2e5f23a6ba0ab90f4ff")
	if err != nil {
		t.Fatal(err)
	}

	got := appendHuffmanEncode(nil, s)
	if !bytes.Equal(got, want) {
		t.Fatalf("appendHuffmanEncode(%q) = % x, want % x", s, got, want)
	}
	if n := huffmanEncodeLen(s); n != uint64(len(want)) {
		t.Errorf("huffmanEncodeLen(%q) = %d, want %d", s, n, len(want))
	}

	decoded, err := huffmanDecode(want)
	if err != nil {
		t.Fatalf("huffmanDecode: %v", err)
	}
	if decoded != s {
		t.Fatalf("huffmanDecode(% x) = %q, want %q", want, decoded, s)
	}
}

func TestHuffmanRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"a",
		"GET",
		"/",
		"200",
		"gzip, deflate",
		"www.example.com",
		"custom-key",
		"custom-value",
		"no-cache",
		strings.Repeat("x", 500),
	}
	for _, s := range cases {
		enc := appendHuffmanEncode(nil, s)
		got, err := huffmanDecode(enc)
		if err != nil {
			t.Fatalf("huffmanDecode(appendHuffmanEncode(%q)): %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip %q -> % x -> %q", s, enc, got)
		}
	}
}

func TestHuffmanSmallestPicksShorter(t *testing.T) {
	s := "aaaaaaaaaa" // highly compressible: Huffman beats raw
	huffLen := huffmanEncodeLen(s)
	if huffLen >= uint64(len(s)) {
		t.Fatalf("huffmanEncodeLen(%q) = %d, want < %d", s, huffLen, len(s))
	}

	smallest := appendString(nil, s, HuffmanSmallest)
	always := appendString(nil, s, HuffmanAlways)
	if len(smallest) > len(always) {
		t.Fatalf("smallest mode produced %d bytes, always mode %d", len(smallest), len(always))
	}
}
