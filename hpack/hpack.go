// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

// Package hpack implements HPACK, the header compression format used by
// HTTP/2 (RFC 7541).
//
// Both the Encoder and the Decoder own a dynamic table and are not safe
// for concurrent use by multiple goroutines; each direction of a
// connection should use its own instance of each.
package hpack

import "fmt"

// A HeaderField is a name-value pair. Both the name and value are
// treated as opaque sequences of octets; HPACK compares names
// case-sensitively.
type HeaderField struct {
	Name, Value string

	// Hint is the compression hint controlling whether the encoder
	// may add this field to the dynamic table (§3).
	Hint IndexingHint

	// Sensitive, if true, forces the Never Indexed representation
	// regardless of Hint. It exists for callers that want to flag a
	// field as sensitive without also setting Hint explicitly.
	Sensitive bool
}

// effectiveHint returns f.Hint, except Sensitive fields always behave
// as HintNoCacheNoIndex.
func (f HeaderField) effectiveHint() IndexingHint {
	if f.Sensitive {
		return HintNoCacheNoIndex
	}
	return f.Hint
}

// IndexingHint controls whether the encoder may add a field to the
// dynamic table, or must emit it in a form that forbids indexing.
type IndexingHint int

const (
	// HintUseCache lets the encoder index the field: emit it by
	// reference to an existing table entry when possible, and insert
	// it into the dynamic table otherwise.
	HintUseCache IndexingHint = iota
	// HintNoCache forbids inserting the field into the dynamic table,
	// but still allows the encoder to reference an existing entry by
	// name.
	HintNoCache
	// HintNoCacheNoIndex forbids both insertion and any form of table
	// lookup; the field is always emitted as a Literal Never Indexed
	// representation. Intended for sensitive values (e.g. auth
	// headers) that must never be compressed into a shared table.
	HintNoCacheNoIndex
)

func (f HeaderField) size() uint32 {
	// RFC 7541 §4.1: the size of an entry is the sum of the name's
	// length, the value's length, and 32 bytes of accounting overhead.
	return uint32(len(f.Name) + len(f.Value) + 32)
}

func (f HeaderField) String() string {
	return fmt.Sprintf("{%q %q}", f.Name, f.Value)
}

// DecodeResultType discriminates the variants returned from
// Decoder.Decode.
type DecodeResultType int

const (
	// DecodeOngoing means no complete field representation has been
	// decoded yet; the caller must supply more bytes.
	DecodeOngoing DecodeResultType = iota
	// DecodeHeaderField means a complete header field was decoded;
	// see DecodeResult.Field.
	DecodeHeaderField
	// DecodeDynamicTableResize means a Dynamic Table Size Update was
	// decoded; see DecodeResult.NewSize.
	DecodeDynamicTableResize
)

// DecodeResult is the result of a single Decoder.Decode call.
type DecodeResult struct {
	Type    DecodeResultType
	Field   HeaderField // valid when Type == DecodeHeaderField
	NewSize uint32      // valid when Type == DecodeDynamicTableResize
}

// ErrorKind identifies the class of failure a codec operation returned.
type ErrorKind int

const (
	ErrMalformedInteger ErrorKind = iota
	ErrIntegerOverflow
	ErrStringLengthExceedsLimit
	ErrHuffmanDecodeFailed
	ErrInvalidTableIndex
	ErrSizeUpdateAfterHeader
	ErrSizeUpdateExceedsSetting
	ErrFieldSizeExceedsConfiguredLimit
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedInteger:
		return "malformed_integer"
	case ErrIntegerOverflow:
		return "integer_overflow"
	case ErrStringLengthExceedsLimit:
		return "string_length_exceeds_limit"
	case ErrHuffmanDecodeFailed:
		return "huffman_decode_failed"
	case ErrInvalidTableIndex:
		return "invalid_table_index"
	case ErrSizeUpdateAfterHeader:
		return "size_update_after_header"
	case ErrSizeUpdateExceedsSetting:
		return "size_update_exceeds_setting"
	case ErrFieldSizeExceedsConfiguredLimit:
		return "field_size_exceeds_configured_limit"
	default:
		return "unknown_hpack_error"
	}
}

// Error is returned by Decoder.Decode (Encoder methods do not return
// errors). Once Decode returns an Error, that Decoder is poisoned:
// subsequent calls continue to fail.
type Error struct {
	Kind  ErrorKind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hpack: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("hpack: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}
