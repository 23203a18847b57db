// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

// Package hpack implements HPACK (RFC 7541), the header-compression
// format HTTP/2 uses for header blocks.
//
// An Encoder and a Decoder each own a dynamic table (RFC 7541 §2.3.2)
// and are not safe for concurrent use; a connection's two directions
// each need their own instance of each.
package hpack
