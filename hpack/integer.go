// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

// Integer encoding/decoding per RFC 7541 §5.1: an unsigned integer is
// encoded with an N-bit prefix, N in [1,8]. Values that fit in the
// prefix are written directly; larger values saturate the prefix and
// continue as little-endian base-128 groups with the high bit as a
// continuation flag.

const maxIntegerValue = 1<<62 - 1

// appendInt appends the RFC 7541 §5.1 encoding of v to dst, using an
// N-bit prefix whose non-value bits are given by startingBits (already
// shifted into position; the low N bits of startingBits must be zero,
// since they are ORed into the prefix octet unmasked).
func appendInt(dst []byte, n uint8, startingBits byte, v uint64) []byte {
	if n < 1 || n > 8 {
		panic("hpack: invalid prefix size")
	}
	k := uint64(1)<<n - 1
	if v < k {
		return append(dst, startingBits|byte(v))
	}
	dst = append(dst, startingBits|byte(k))
	v -= k
	for v >= 128 {
		dst = append(dst, byte(v&0x7f|0x80))
		v >>= 7
	}
	return append(dst, byte(v))
}

// integerState is the restartable decode state machine for a single
// integer. Decoding may be suspended between any two input bytes; the
// caller prepares an integerState with reset(n), keeps it around while
// it is partial, and calls decodeInt again once more bytes are
// available.
type integerState struct {
	state   integerDecodeState
	n       uint8 // prefix size in bits, set by the caller before first use
	value   uint64
	shift   uint
	started bool // true once INIT has consumed the prefix octet
}

type integerDecodeState int

const (
	integerStateInit integerDecodeState = iota
	integerStateValue
)

// reset prepares s to decode a fresh integer with an n-bit prefix.
func (s *integerState) reset(n uint8) {
	*s = integerState{n: n}
}

// decodeInt advances the state machine over p, consuming bytes as long
// as they're needed. It returns the number of bytes consumed from p,
// whether decoding completed, and any error. On completion s.value
// holds the decoded integer and s may be reused via reset.
func decodeInt(s *integerState, p []byte) (consumed int, complete bool, err error) {
	n := s.n
	k := uint64(1)<<n - 1

	for consumed < len(p) {
		b := p[consumed]
		consumed++

		switch s.state {
		case integerStateInit:
			s.started = true
			v := uint64(b) & k
			if v < k {
				s.value = v
				return consumed, true, nil
			}
			s.value = k
			s.state = integerStateValue
			s.shift = 0

		case integerStateValue:
			cont := b&0x80 != 0
			octet := uint64(b & 0x7f)

			if s.shift >= 63 || (octet<<s.shift) > maxIntegerValue {
				return consumed, false, newError(ErrIntegerOverflow, nil)
			}
			add := octet << s.shift
			if s.value > maxIntegerValue-add {
				return consumed, false, newError(ErrIntegerOverflow, nil)
			}
			s.value += add
			s.shift += 7

			if !cont {
				return consumed, true, nil
			}
		}
	}
	return consumed, false, nil
}
