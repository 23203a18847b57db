// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

import (
	"bytes"
	"testing"
)

func TestAppendIntRFCExample(t *testing.T) {
	// RFC 7541 §C.1.2: 1337 encoded with a 5-bit prefix is 0x1f 0x9a 0x0a
	// when the prefix's non-value bits are all zero; with tag 0x20
	// (which only sets bit 5, outside the 5-bit prefix) the first
	// octet becomes 0x3f.
	got := appendInt(nil, 5, 0x20, 1337)
	want := []byte{0x3f, 0x9a, 0x0a}
	if !bytes.Equal(got, want) {
		t.Fatalf("appendInt(5, 0x20, 1337) = % x, want % x", got, want)
	}
}

func TestIntegerRoundTrip(t *testing.T) {
	for n := uint8(1); n <= 8; n++ {
		for _, v := range []uint64{0, 1, 10, 30, 126, 127, 128, 254, 255, 1337, 1 << 20, 1 << 40, maxIntegerValue} {
			enc := appendInt(nil, n, 0, v)

			var s integerState
			s.reset(n)
			consumed, complete, err := decodeInt(&s, enc)
			if err != nil {
				t.Fatalf("n=%d v=%d: decode error: %v", n, v, err)
			}
			if !complete {
				t.Fatalf("n=%d v=%d: decode did not complete", n, v)
			}
			if consumed != len(enc) {
				t.Fatalf("n=%d v=%d: consumed %d, want %d", n, v, consumed, len(enc))
			}
			if s.value != v {
				t.Fatalf("n=%d v=%d: decoded %d", n, v, s.value)
			}
		}
	}
}

func TestIntegerDecodeByteAtATime(t *testing.T) {
	enc := appendInt(nil, 5, 0x20, 1337)

	var s integerState
	s.reset(5)
	var total int
	var complete bool
	var err error
	for total < len(enc) {
		var n int
		n, complete, err = decodeInt(&s, enc[total:total+1])
		total += n
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if complete {
			break
		}
	}
	if !complete || s.value != 1337 {
		t.Fatalf("byte-at-a-time decode = (%v, %d), want (true, 1337)", complete, s.value)
	}
}

func TestIntegerOverflow(t *testing.T) {
	// A pathologically long continuation sequence that would overflow
	// the accumulator must fail, not wrap.
	enc := []byte{0x1f} // saturated 5-bit prefix
	for i := 0; i < 12; i++ {
		enc = append(enc, 0xff)
	}
	enc = append(enc, 0x7f)

	var s integerState
	s.reset(5)
	_, _, err := decodeInt(&s, enc)
	herr, ok := err.(*Error)
	if !ok || herr.Kind != ErrIntegerOverflow {
		t.Fatalf("decodeInt overflow = %v, want ErrIntegerOverflow", err)
	}
}

func TestIntegerIncompleteInput(t *testing.T) {
	enc := appendInt(nil, 5, 0x20, 1337)

	var s integerState
	s.reset(5)
	consumed, complete, err := decodeInt(&s, enc[:len(enc)-1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if complete {
		t.Fatalf("decode completed early")
	}
	if consumed != len(enc)-1 {
		t.Fatalf("consumed = %d, want %d", consumed, len(enc)-1)
	}
}
