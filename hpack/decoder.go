// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

// Header-block decoder, RFC 7541 §6. The decoder is a
// hand-rolled, byte-granularity-resumable state machine: Decode may be
// called with as little as one byte at a time and will report
// DecodeOngoing until a full field representation (or resize
// announcement) has been assembled.

type entryDecodeState int

const (
	entryStateInit entryDecodeState = iota
	entryStateIndexed
	entryStateLiteralBegin
	entryStateLiteralNameString
	entryStateLiteralValueString
	entryStateDynamicResize
)

// Decoder is the decoding context for incremental processing of
// header blocks. It owns a dynamic table and is not safe for
// concurrent use. Once Decode returns an error, the Decoder is
// poisoned and every subsequent call fails with the same error.
type Decoder struct {
	dynTable *dynamicTable

	entry entryDecodeState
	idx   integerState
	name  stringDecodeState
	value stringDecodeState

	literalTag  byte
	pendingName string

	sawHeaderField bool // true once a field has been decoded in the current block (RFC 7541 §4.2 resize constraint)

	// MaxFieldSize, if non-zero, bounds len(Name)+len(Value) for any
	// decoded header field. It also caps each literal string's declared
	// length up front (before the octets are buffered), so an oversize
	// length prefix fails without allocating for it.
	MaxFieldSize uint64

	poisoned    bool
	poisonedErr error
}

// NewDecoder returns a Decoder whose dynamic table starts at
// maxTableSize, which also becomes the protocol_max_size_setting
// ceiling that incoming Dynamic Table Size Updates are checked
// against.
func NewDecoder(maxTableSize uint32) *Decoder {
	return &Decoder{dynTable: newDynamicTable(maxTableSize)}
}

// SetMaxTableSize updates the local SETTINGS_HEADER_TABLE_SIZE ceiling
// that future Dynamic Table Size Updates from the peer must respect
// (RFC 7541 §4.2). It does not by itself resize the table; the peer
// decides the actual working size via its own update.
func (d *Decoder) SetMaxTableSize(v uint32) {
	d.dynTable.protocolMaxSizeSetting = v
}

// StartBlock resets the "has a field already been decoded in this
// block" tracking used to enforce that a Dynamic Table Size Update is
// only legal before any header-field representation (RFC 7541 §4.2).
// Call it once per HTTP/2 header block (i.e. once per
// HEADERS+CONTINUATION sequence), not once per Decode call.
func (d *Decoder) StartBlock() {
	d.sawHeaderField = false
}

// Decode advances the state machine over p, consuming bytes from the
// front as needed, and returns how many bytes were consumed and the
// outcome. Feeding the same total bytes one at a time or all at once
// yields the same sequence of results.
func (d *Decoder) Decode(p []byte) (consumed int, result DecodeResult, err error) {
	if d.poisoned {
		return 0, DecodeResult{}, d.poisonedErr
	}
	consumed, result, err = d.decode(p)
	if err != nil {
		d.poisoned = true
		d.poisonedErr = err
	}
	return consumed, result, err
}

func (d *Decoder) decode(p []byte) (int, DecodeResult, error) {
	consumed := 0
	for {
		switch d.entry {
		case entryStateInit:
			if consumed >= len(p) {
				return consumed, DecodeResult{Type: DecodeOngoing}, nil
			}
			b := p[consumed]
			switch {
			case b&tagIndexed != 0:
				d.entry = entryStateIndexed
				d.idx.reset(7)
			case b&0xc0 == tagIncrementalIndex:
				d.entry = entryStateLiteralBegin
				d.literalTag = tagIncrementalIndex
				d.idx.reset(6)
			case b&0xe0 == tagDynamicResize:
				if d.sawHeaderField {
					return consumed, DecodeResult{}, newError(ErrSizeUpdateAfterHeader, nil)
				}
				d.entry = entryStateDynamicResize
				d.idx.reset(5)
			case b&0xf0 == tagNeverIndexed:
				d.entry = entryStateLiteralBegin
				d.literalTag = tagNeverIndexed
				d.idx.reset(4)
			default: // 0000xxxx: without indexing
				d.entry = entryStateLiteralBegin
				d.literalTag = tagWithoutIndexing
				d.idx.reset(4)
			}
			// The byte just inspected is not consumed yet; the next
			// state's integer decode reads it for its own prefix.

		case entryStateIndexed:
			n, ok, ierr := decodeInt(&d.idx, p[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, DecodeResult{}, ierr
			}
			if !ok {
				return consumed, DecodeResult{Type: DecodeOngoing}, nil
			}
			if d.idx.value == 0 {
				return consumed, DecodeResult{}, newError(ErrInvalidTableIndex, nil)
			}
			f, ok := d.lookup(d.idx.value)
			if !ok {
				return consumed, DecodeResult{}, newError(ErrInvalidTableIndex, nil)
			}
			d.sawHeaderField = true
			d.entry = entryStateInit
			return consumed, DecodeResult{Type: DecodeHeaderField, Field: f}, nil

		case entryStateLiteralBegin:
			n, ok, ierr := decodeInt(&d.idx, p[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, DecodeResult{}, ierr
			}
			if !ok {
				return consumed, DecodeResult{Type: DecodeOngoing}, nil
			}
			if d.idx.value == 0 {
				d.name.reset(d.MaxFieldSize)
				d.entry = entryStateLiteralNameString
			} else {
				name, ok := d.lookupName(d.idx.value)
				if !ok {
					return consumed, DecodeResult{}, newError(ErrInvalidTableIndex, nil)
				}
				d.pendingName = name
				d.value.reset(d.MaxFieldSize)
				d.entry = entryStateLiteralValueString
			}

		case entryStateLiteralNameString:
			n, ok, s, serr := decodeString(&d.name, p[consumed:])
			consumed += n
			if serr != nil {
				return consumed, DecodeResult{}, serr
			}
			if !ok {
				return consumed, DecodeResult{Type: DecodeOngoing}, nil
			}
			d.pendingName = s
			d.value.reset(d.MaxFieldSize)
			d.entry = entryStateLiteralValueString

		case entryStateLiteralValueString:
			n, ok, s, serr := decodeString(&d.value, p[consumed:])
			consumed += n
			if serr != nil {
				return consumed, DecodeResult{}, serr
			}
			if !ok {
				return consumed, DecodeResult{Type: DecodeOngoing}, nil
			}
			field := HeaderField{Name: d.pendingName, Value: s}
			if d.MaxFieldSize != 0 && uint64(len(field.Name)+len(field.Value)) > d.MaxFieldSize {
				return consumed, DecodeResult{}, newError(ErrFieldSizeExceedsConfiguredLimit, nil)
			}
			if d.literalTag == tagIncrementalIndex {
				d.dynTable.insert(field)
			} else if d.literalTag == tagNeverIndexed {
				field.Sensitive = true
			}
			d.sawHeaderField = true
			d.entry = entryStateInit
			return consumed, DecodeResult{Type: DecodeHeaderField, Field: field}, nil

		case entryStateDynamicResize:
			n, ok, ierr := decodeInt(&d.idx, p[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, DecodeResult{}, ierr
			}
			if !ok {
				return consumed, DecodeResult{Type: DecodeOngoing}, nil
			}
			if d.idx.value > uint64(d.dynTable.protocolMaxSizeSetting) {
				return consumed, DecodeResult{}, newError(ErrSizeUpdateExceedsSetting, nil)
			}
			newSize := uint32(d.idx.value)
			d.dynTable.resize(newSize)
			d.entry = entryStateInit
			return consumed, DecodeResult{Type: DecodeDynamicTableResize, NewSize: newSize}, nil
		}
	}
}

func (d *Decoder) lookup(index uint64) (HeaderField, bool) {
	if index >= 1 && index <= StaticTableSize {
		return GetStaticEntry(int(index)), true
	}
	return d.dynTable.get(int(index) - StaticTableSize)
}

func (d *Decoder) lookupName(index uint64) (string, bool) {
	f, ok := d.lookup(index)
	return f.Name, ok
}
