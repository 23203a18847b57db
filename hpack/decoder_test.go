// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

import "testing"

// RFC 7541 §C.2.4's first field: Indexed Header Field, static index 2.
func TestDecodeIndexedHeaderField(t *testing.T) {
	d := NewDecoder(4096)
	d.StartBlock()
	consumed, res, err := d.Decode([]byte{0x82})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if consumed != 1 {
		t.Fatalf("consumed = %d, want 1", consumed)
	}
	if res.Type != DecodeHeaderField || res.Field.Name != ":method" || res.Field.Value != "GET" {
		t.Fatalf("decode {0x82} = %+v, want :method=GET", res)
	}
}

// Literal Header Field with Incremental Indexing, indexed name (:path,
// static index 4), raw value "/path/hello". The decoded field is
// inserted into the dynamic table at index 62 (StaticTableSize+1).
func TestDecodeLiteralIncrementalIndexingIndexedName(t *testing.T) {
	d := NewDecoder(4096)
	d.StartBlock()

	input := append([]byte{0x44, 0x0b}, "/path/hello"...)
	consumed, res, err := d.Decode(input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if consumed != len(input) {
		t.Fatalf("consumed = %d, want %d", consumed, len(input))
	}
	if res.Type != DecodeHeaderField || res.Field.Name != ":path" || res.Field.Value != "/path/hello" {
		t.Fatalf("decode = %+v, want :path=/path/hello", res)
	}

	f, ok := d.lookup(uint64(StaticTableSize + 1))
	if !ok || f.Name != ":path" || f.Value != "/path/hello" {
		t.Fatalf("dynamic table index 62 = %+v, %v", f, ok)
	}
}

// A literal field whose size exceeds the table's maxSize clears the
// dynamic table instead of partially evicting (RFC 7541 §4.4).
func TestDecodeOversizeFieldClearsTable(t *testing.T) {
	d := NewDecoder(64)
	d.StartBlock()

	small := []byte{0x40} // literal with incremental indexing, new name
	small = appendRawString(small, "a")
	small = appendRawString(small, "b")
	_, res, err := d.Decode(small)
	if err != nil {
		t.Fatalf("decode small literal: %v", err)
	}
	if res.Type != DecodeHeaderField {
		t.Fatalf("expected a header field from the small literal")
	}
	if d.dynTable.count == 0 {
		t.Fatalf("setup: expected the small entry to be in the table")
	}

	big := make([]byte, 0)
	big = append(big, 0x40) // literal with incremental indexing, new name
	big = appendRawString(big, "x")
	big = appendRawString(big, repeatByte('y', 80))
	_, res, err = d.Decode(big)
	if err != nil {
		t.Fatalf("decode oversize literal: %v", err)
	}
	if res.Type != DecodeHeaderField || res.Field.Name != "x" {
		t.Fatalf("oversize literal should still decode as a field: %+v", res)
	}
	if d.dynTable.count != 0 {
		t.Fatalf("dynamic table should have been cleared by the oversize insert, count=%d", d.dynTable.count)
	}
}

// A Dynamic Table Size Update after a header field has already been
// decoded in the same block is malformed (RFC 7541 §4.2).
func TestDecodeSizeUpdateAfterHeaderFails(t *testing.T) {
	d := NewDecoder(4096)
	d.StartBlock()

	if _, _, err := d.Decode([]byte{0x82}); err != nil {
		t.Fatalf("decode indexed field: %v", err)
	}
	_, _, err := d.Decode([]byte{0x20})
	herr, ok := err.(*Error)
	if !ok || herr.Kind != ErrSizeUpdateAfterHeader {
		t.Fatalf("decode resize after header = %v, want ErrSizeUpdateAfterHeader", err)
	}
}

func TestDecodeSizeUpdateExceedsSetting(t *testing.T) {
	d := NewDecoder(100)
	d.StartBlock()
	_, _, err := d.Decode(appendInt(nil, 5, tagDynamicResize, 500))
	herr, ok := err.(*Error)
	if !ok || herr.Kind != ErrSizeUpdateExceedsSetting {
		t.Fatalf("decode oversize resize = %v, want ErrSizeUpdateExceedsSetting", err)
	}
}

func TestDecodeInvalidTableIndexZero(t *testing.T) {
	d := NewDecoder(4096)
	d.StartBlock()
	_, _, err := d.Decode([]byte{0x80}) // Indexed Header Field, index 0
	herr, ok := err.(*Error)
	if !ok || herr.Kind != ErrInvalidTableIndex {
		t.Fatalf("decode index 0 = %v, want ErrInvalidTableIndex", err)
	}
}

func TestDecoderOnceErrorAlwaysError(t *testing.T) {
	d := NewDecoder(4096)
	d.StartBlock()
	if _, _, err := d.Decode([]byte{0x80}); err == nil {
		t.Fatalf("expected an error on the first decode")
	}
	if _, _, err := d.Decode([]byte{0x82}); err == nil {
		t.Fatalf("decoder should stay poisoned after its first error")
	}
}

func TestDecodeFieldSizeLimits(t *testing.T) {
	t.Run("oversize string literal", func(t *testing.T) {
		d := NewDecoder(4096)
		d.MaxFieldSize = 8
		d.StartBlock()

		input := []byte{0x40} // literal with incremental indexing, new name
		input = appendRawString(input, "a-name-longer-than-the-limit")
		_, _, err := d.Decode(input)
		herr, ok := err.(*Error)
		if !ok || herr.Kind != ErrStringLengthExceedsLimit {
			t.Fatalf("decode oversize name = %v, want ErrStringLengthExceedsLimit", err)
		}
	})

	t.Run("name and value individually fit, sum does not", func(t *testing.T) {
		d := NewDecoder(4096)
		d.MaxFieldSize = 8
		d.StartBlock()

		input := []byte{0x40}
		input = appendRawString(input, "sixchr")
		input = appendRawString(input, "sixchr")
		_, _, err := d.Decode(input)
		herr, ok := err.(*Error)
		if !ok || herr.Kind != ErrFieldSizeExceedsConfiguredLimit {
			t.Fatalf("decode oversize field = %v, want ErrFieldSizeExceedsConfiguredLimit", err)
		}
	})
}

// Feeding the same bytes one at a time or all at once yields the same
// sequence of decoded fields.
func TestDecodeByteBoundaryProperty(t *testing.T) {
	e := NewEncoder(4096)
	blob := e.EncodeHeaderBlock(nil, []HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/a/b/c", Hint: HintUseCache},
		{Name: "x-custom", Value: "value", Hint: HintUseCache},
	})

	all := decodeAll(t, blob, wholeChunks(blob))
	oneAtATime := decodeAll(t, blob, byteChunks(blob))

	if len(all) != len(oneAtATime) {
		t.Fatalf("whole-input decoded %d fields, byte-at-a-time decoded %d", len(all), len(oneAtATime))
	}
	for i := range all {
		if all[i] != oneAtATime[i] {
			t.Fatalf("field %d differs: whole=%+v byte-at-a-time=%+v", i, all[i], oneAtATime[i])
		}
	}
}

func decodeAll(t *testing.T, blob []byte, chunks [][]byte) []HeaderField {
	t.Helper()
	d := NewDecoder(4096)
	d.StartBlock()
	var got []HeaderField
	for _, chunk := range chunks {
		for len(chunk) > 0 {
			n, res, err := d.Decode(chunk)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			chunk = chunk[n:]
			if res.Type == DecodeHeaderField {
				got = append(got, res.Field)
			}
		}
	}
	return got
}

func wholeChunks(blob []byte) [][]byte { return [][]byte{blob} }

func byteChunks(blob []byte) [][]byte {
	chunks := make([][]byte, len(blob))
	for i, b := range blob {
		chunks[i] = []byte{b}
	}
	return chunks
}

func repeatByte(b byte, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return string(buf)
}
