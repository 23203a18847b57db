// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

// Header-block encoder, RFC 7541 §6.

// Field representation tag bits, RFC 7541 §6.
const (
	tagIndexed          = 0x80 // 1_______, 7-bit prefix
	tagIncrementalIndex = 0x40 // 01______, 6-bit prefix
	tagDynamicResize    = 0x20 // 001_____, 5-bit prefix
	tagNeverIndexed     = 0x10 // 0001____, 4-bit prefix
	tagWithoutIndexing  = 0x00 // 0000____, 4-bit prefix
)

// Encoder is the encoding context for incrementally building HPACK
// header blocks. It owns a dynamic table and is not safe for
// concurrent use.
type Encoder struct {
	dynTable    *dynamicTable
	huffmanMode HuffmanMode

	pendingResize struct {
		lastValue, smallestValue uint32
		pending                  bool
	}
}

// NewEncoder returns an Encoder whose dynamic table starts at
// maxTableSize (bounded by SETTINGS_HEADER_TABLE_SIZE) and defaults to
// the HuffmanSmallest string-encoding mode.
func NewEncoder(maxTableSize uint32) *Encoder {
	e := &Encoder{dynTable: newDynamicTable(maxTableSize)}
	e.pendingResize.lastValue = maxTableSize
	e.pendingResize.smallestValue = maxTableSize
	return e
}

// SetHuffmanMode controls whether literal strings are Huffman-coded.
func (e *Encoder) SetHuffmanMode(mode HuffmanMode) { e.huffmanMode = mode }

// SetMaxDynamicTableSize notifies the encoder that the peer's
// SETTINGS_HEADER_TABLE_SIZE changed to v. The encoder resizes its
// table immediately and remembers to announce the change (possibly as
// two updates, per §3) at the start of the next header block.
func (e *Encoder) SetMaxDynamicTableSize(v uint32) {
	e.dynTable.protocolMaxSizeSetting = v
	e.dynTable.resize(v)

	if !e.pendingResize.pending {
		e.pendingResize.pending = true
		e.pendingResize.lastValue = v
		e.pendingResize.smallestValue = v
		return
	}
	e.pendingResize.lastValue = v
	if v < e.pendingResize.smallestValue {
		e.pendingResize.smallestValue = v
	}
}

// EncodeHeaderBlock appends the encoding of fields, in order, to dst
// and returns the result.
func (e *Encoder) EncodeHeaderBlock(dst []byte, fields []HeaderField) []byte {
	dst = e.flushPendingResize(dst)

	for _, f := range fields {
		dst = e.encodeField(dst, f)
	}
	return dst
}

// flushPendingResize emits the Dynamic Table Size Update
// representation(s) a header block must start with after the table's
// max size changed: the minimum observed since the last block first
// (so the peer evicts down to it, RFC 7541 §4.2), then the final
// value if they differ.
func (e *Encoder) flushPendingResize(dst []byte) []byte {
	if e.pendingResize.pending {
		if e.pendingResize.smallestValue < e.pendingResize.lastValue {
			dst = appendInt(dst, 5, tagDynamicResize, uint64(e.pendingResize.smallestValue))
			dst = appendInt(dst, 5, tagDynamicResize, uint64(e.pendingResize.lastValue))
		} else {
			dst = appendInt(dst, 5, tagDynamicResize, uint64(e.pendingResize.lastValue))
		}
	}
	// Tracking restarts on every sent header block, not only ones that
	// actually emitted an update.
	cur := e.dynTable.maxSize
	e.pendingResize.pending = false
	e.pendingResize.lastValue = cur
	e.pendingResize.smallestValue = cur
	return dst
}

func (e *Encoder) encodeField(dst []byte, f HeaderField) []byte {
	if f.effectiveHint() == HintNoCacheNoIndex {
		return e.encodeLiteral(dst, f, tagNeverIndexed, 4)
	}

	if idx := FindStaticField(f.Name, f.Value); idx != 0 {
		return appendInt(dst, 7, tagIndexed, uint64(idx))
	}
	if idx, exact := e.dynTable.find(f.Name, f.Value); exact {
		return appendInt(dst, 7, tagIndexed, uint64(StaticTableSize+idx))
	}

	// Name-only match: static table first, then dynamic (§4.5).
	if nameIdx := FindStaticName(f.Name); nameIdx != 0 {
		return e.encodeIndexedName(dst, f, nameIdx)
	}
	if nameIdx, _ := e.dynTable.find(f.Name, f.Value); nameIdx != 0 {
		return e.encodeIndexedName(dst, f, StaticTableSize+nameIdx)
	}

	return e.encodeNewName(dst, f)
}

func (e *Encoder) encodeIndexedName(dst []byte, f HeaderField, nameIndex int) []byte {
	switch f.effectiveHint() {
	case HintUseCache:
		dst = appendInt(dst, 6, tagIncrementalIndex, uint64(nameIndex))
		dst = appendString(dst, f.Value, e.huffmanMode)
		e.dynTable.insert(f)
		return dst
	default: // HintNoCache
		dst = appendInt(dst, 4, tagWithoutIndexing, uint64(nameIndex))
		return appendString(dst, f.Value, e.huffmanMode)
	}
}

func (e *Encoder) encodeNewName(dst []byte, f HeaderField) []byte {
	switch f.effectiveHint() {
	case HintUseCache:
		dst = appendInt(dst, 6, tagIncrementalIndex, 0)
		dst = appendString(dst, f.Name, e.huffmanMode)
		dst = appendString(dst, f.Value, e.huffmanMode)
		e.dynTable.insert(f)
		return dst
	default: // HintNoCache
		dst = appendInt(dst, 4, tagWithoutIndexing, 0)
		dst = appendString(dst, f.Name, e.huffmanMode)
		return appendString(dst, f.Value, e.huffmanMode)
	}
}

func (e *Encoder) encodeLiteral(dst []byte, f HeaderField, tag byte, prefix uint8) []byte {
	dst = appendInt(dst, prefix, tag, 0)
	dst = appendString(dst, f.Name, e.huffmanMode)
	return appendString(dst, f.Value, e.huffmanMode)
}
