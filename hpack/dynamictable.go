// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

// The dynamic table, RFC 7541 §2.3.2 and §4.4: a bounded FIFO of
// recently-transmitted header fields, addressed by a logical index
// that shifts as entries are inserted (index 1 is always the most
// recently inserted entry). Absolute HPACK indices are
// StaticTableSize+logicalIndex.
//
// Entries live in a ring buffer (dynEntry.insertionNum records
// insertion order so logical indices can be recovered in O(1) without
// rewriting the buffer); two maps support O(1) reverse lookup by full
// field and by name alone, each resolving duplicates to the newest
// insertion (the smallest current logical index).

type dynEntry struct {
	name, value  string
	insertionNum uint64
}

func (e dynEntry) size() uint32 {
	return uint32(len(e.name) + len(e.value) + 32)
}

type dynamicTable struct {
	buf   []dynEntry
	head  int // ring position of the newest entry
	count int

	size    uint32
	maxSize uint32

	// protocolMaxSizeSetting is the upper bound resize may not exceed
	// (the connection's SETTINGS_HEADER_TABLE_SIZE); enforcing it is
	// the caller's job.
	protocolMaxSizeSetting uint32

	insertCount uint64

	byField map[HeaderField]uint64 // (name,value) -> insertionNum of the entry currently addressed
	byName  map[string]uint64
}

func newDynamicTable(protocolMaxSizeSetting uint32) *dynamicTable {
	return &dynamicTable{
		buf:                    make([]dynEntry, 16),
		maxSize:                protocolMaxSizeSetting,
		protocolMaxSizeSetting: protocolMaxSizeSetting,
		byField:                make(map[HeaderField]uint64),
		byName:                 make(map[string]uint64),
	}
}

func (t *dynamicTable) logicalIndex(insertionNum uint64) int {
	return int(t.insertCount-insertionNum) + 1
}

// insert adds f to the table, evicting oldest entries as needed to
// maintain size <= maxSize. If f alone is larger than maxSize, the
// table is cleared entirely and f is not inserted (RFC 7541 §4.4).
func (t *dynamicTable) insert(f HeaderField) {
	sz := f.size()
	if sz > t.maxSize {
		t.clear()
		return
	}
	for t.size+sz > t.maxSize && t.count > 0 {
		t.evictOldest()
	}
	if t.count == len(t.buf) {
		t.grow()
	}

	t.insertCount++
	t.head = (t.head - 1 + len(t.buf)) % len(t.buf)
	t.buf[t.head] = dynEntry{name: f.Name, value: f.Value, insertionNum: t.insertCount}
	t.count++
	t.size += sz

	key := HeaderField{Name: f.Name, Value: f.Value}
	t.byField[key] = t.insertCount
	t.byName[f.Name] = t.insertCount
}

// resize lowers or raises maxSize, evicting oldest entries if the new
// size is smaller than the current occupancy. newMax must already
// have been checked by the caller against protocolMaxSizeSetting.
func (t *dynamicTable) resize(newMax uint32) {
	t.maxSize = newMax
	for t.size > t.maxSize && t.count > 0 {
		t.evictOldest()
	}
}

// find searches for (name, value). It returns the logical index (1 =
// newest) and whether it was a full match; if no entry has that name
// at all, it returns (0, false).
func (t *dynamicTable) find(name, value string) (index int, exact bool) {
	if num, ok := t.byField[HeaderField{Name: name, Value: value}]; ok {
		return t.logicalIndex(num), true
	}
	if num, ok := t.byName[name]; ok {
		return t.logicalIndex(num), false
	}
	return 0, false
}

// get returns the entry at the given 1-based logical index (1 =
// newest), or false if out of range.
func (t *dynamicTable) get(index int) (HeaderField, bool) {
	if index < 1 || index > t.count {
		return HeaderField{}, false
	}
	pos := (t.head + index - 1) % len(t.buf)
	e := t.buf[pos]
	return HeaderField{Name: e.name, Value: e.value}, true
}

func (t *dynamicTable) evictOldest() {
	if t.count == 0 {
		return
	}
	tail := (t.head + t.count - 1) % len(t.buf)
	e := t.buf[tail]
	t.size -= e.size()
	t.count--
	t.buf[tail] = dynEntry{}

	t.repairReverseMapsAfterEvict(e)
}

// repairReverseMapsAfterEvict updates byField/byName if the evicted
// entry was the one they currently point to: the new target becomes
// whichever remaining entry with the same key has the largest
// insertionNum (i.e. the smallest logical index), or the key is
// deleted if none remains.
func (t *dynamicTable) repairReverseMapsAfterEvict(evicted dynEntry) {
	key := HeaderField{Name: evicted.name, Value: evicted.value}
	if t.byField[key] == evicted.insertionNum {
		if next, ok := t.nextInsertionNumFor(func(e dynEntry) bool {
			return e.name == evicted.name && e.value == evicted.value
		}); ok {
			t.byField[key] = next
		} else {
			delete(t.byField, key)
		}
	}
	if t.byName[evicted.name] == evicted.insertionNum {
		if next, ok := t.nextInsertionNumFor(func(e dynEntry) bool {
			return e.name == evicted.name
		}); ok {
			t.byName[evicted.name] = next
		} else {
			delete(t.byName, evicted.name)
		}
	}
}

// nextInsertionNumFor scans the remaining entries for the largest
// insertionNum matching pred.
func (t *dynamicTable) nextInsertionNumFor(pred func(dynEntry) bool) (uint64, bool) {
	var best uint64
	found := false
	for i := 0; i < t.count; i++ {
		pos := (t.head + i) % len(t.buf)
		e := t.buf[pos]
		if pred(e) && (!found || e.insertionNum > best) {
			best = e.insertionNum
			found = true
		}
	}
	return best, found
}

func (t *dynamicTable) grow() {
	newBuf := make([]dynEntry, len(t.buf)*2)
	for i := 0; i < t.count; i++ {
		pos := (t.head + i) % len(t.buf)
		newBuf[i] = t.buf[pos]
	}
	t.buf = newBuf
	t.head = 0
}

func (t *dynamicTable) clear() {
	t.buf = make([]dynEntry, 16)
	t.head = 0
	t.count = 0
	t.size = 0
	t.byField = make(map[HeaderField]uint64)
	t.byName = make(map[string]uint64)
	// insertCount is intentionally not reset: logical indices of any
	// entries inserted after the clear must stay monotonic against
	// entries the peer already evicted from its own mirrored table.
}
