// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

// String literal encoding/decoding per RFC 7541 §5.2: a 7-bit length
// prefix whose high bit is the Huffman flag, followed by that many
// octets (Huffman-coded if the flag is set).

// HuffmanMode controls when the encoder uses Huffman coding for a
// string literal that isn't already indexed.
type HuffmanMode int

const (
	// HuffmanSmallest picks whichever of the raw or Huffman-coded
	// representation is shorter.
	HuffmanSmallest HuffmanMode = iota
	// HuffmanNever always emits the raw octets.
	HuffmanNever
	// HuffmanAlways always Huffman-codes, even if that's longer.
	HuffmanAlways
)

// appendString appends the RFC 7541 §5.2 encoding of s to dst.
func appendString(dst []byte, s string, mode HuffmanMode) []byte {
	switch mode {
	case HuffmanNever:
		return appendRawString(dst, s)
	case HuffmanAlways:
		return appendHuffmanString(dst, s)
	default: // HuffmanSmallest
		huffLen := huffmanEncodeLen(s)
		if huffLen < uint64(len(s)) {
			return appendHuffmanString(dst, s)
		}
		return appendRawString(dst, s)
	}
}

func appendRawString(dst []byte, s string) []byte {
	dst = appendInt(dst, 7, 0, uint64(len(s)))
	return append(dst, s...)
}

func appendHuffmanString(dst []byte, s string) []byte {
	dst = appendInt(dst, 7, 0x80, huffmanEncodeLen(s))
	return appendHuffmanEncode(dst, s)
}

// stringDecodeState is the restartable decode state machine for a
// single string literal (§5.2). maxLen, if non-zero, bounds the
// declared length (pre-Huffman-expansion); exceeding it fails with
// ErrStringLengthExceedsLimit before any octets are buffered.
type stringDecodeState struct {
	state     stringDecodeStage
	huffman   bool
	length    integerState
	remaining uint64
	buf       []byte // raw (possibly Huffman-coded) octets accumulated so far
	maxLen    uint64
}

type stringDecodeStage int

const (
	stringStateInit stringDecodeStage = iota
	stringStateLength
	stringStateValue
)

func (s *stringDecodeState) reset(maxLen uint64) {
	*s = stringDecodeState{maxLen: maxLen}
}

// decodeString advances the state machine over p. On completion, out
// holds the fully decoded (Huffman-expanded, if applicable) string
// value and s may be reused via reset.
func decodeString(s *stringDecodeState, p []byte) (consumed int, complete bool, out string, err error) {
	for consumed < len(p) {
		switch s.state {
		case stringStateInit:
			b := p[consumed]
			s.huffman = b&0x80 != 0
			s.length.reset(7)
			s.state = stringStateLength
			// fall through without consuming; the length integer
			// decode re-reads this same byte for its 7-bit prefix.

		case stringStateLength:
			n, ok, lerr := decodeInt(&s.length, p[consumed:])
			consumed += n
			if lerr != nil {
				return consumed, false, "", lerr
			}
			if !ok {
				return consumed, false, "", nil
			}
			s.remaining = s.length.value
			if s.maxLen != 0 && s.remaining > s.maxLen {
				return consumed, false, "", newError(ErrStringLengthExceedsLimit, nil)
			}
			s.buf = make([]byte, 0, s.remaining)
			s.state = stringStateValue
			if s.remaining == 0 {
				out, err = s.finish()
				return consumed, true, out, err
			}

		case stringStateValue:
			need := int(s.remaining) - len(s.buf)
			avail := len(p) - consumed
			take := need
			if avail < take {
				take = avail
			}
			s.buf = append(s.buf, p[consumed:consumed+take]...)
			consumed += take
			if len(s.buf) < int(s.remaining) {
				return consumed, false, "", nil
			}
			out, err = s.finish()
			return consumed, true, out, err
		}
	}
	return consumed, false, "", nil
}

func (s *stringDecodeState) finish() (string, error) {
	if !s.huffman {
		return string(s.buf), nil
	}
	decoded, err := huffmanDecode(s.buf)
	if err != nil {
		return "", newError(ErrHuffmanDecodeFailed, err)
	}
	return decoded, nil
}
