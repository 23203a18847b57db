// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

// The static table, RFC 7541 Appendix A: 61 immutable entries, given
// by the RFC rather than derived. 1-indexed; index 0 is never valid.

// StaticTableSize is the number of entries in the static table.
const StaticTableSize = 61

var staticTable = [StaticTableSize]HeaderField{
	{Name: ":authority"},
	{Name: ":method", Value: "GET"},
	{Name: ":method", Value: "POST"},
	{Name: ":path", Value: "/"},
	{Name: ":path", Value: "/index.html"},
	{Name: ":scheme", Value: "http"},
	{Name: ":scheme", Value: "https"},
	{Name: ":status", Value: "200"},
	{Name: ":status", Value: "204"},
	{Name: ":status", Value: "206"},
	{Name: ":status", Value: "304"},
	{Name: ":status", Value: "400"},
	{Name: ":status", Value: "404"},
	{Name: ":status", Value: "500"},
	{Name: "accept-charset"},
	{Name: "accept-encoding", Value: "gzip, deflate"},
	{Name: "accept-language"},
	{Name: "accept-ranges"},
	{Name: "accept"},
	{Name: "access-control-allow-origin"},
	{Name: "age"},
	{Name: "allow"},
	{Name: "authorization"},
	{Name: "cache-control"},
	{Name: "content-disposition"},
	{Name: "content-encoding"},
	{Name: "content-language"},
	{Name: "content-length"},
	{Name: "content-location"},
	{Name: "content-range"},
	{Name: "content-type"},
	{Name: "cookie"},
	{Name: "date"},
	{Name: "etag"},
	{Name: "expect"},
	{Name: "expires"},
	{Name: "from"},
	{Name: "host"},
	{Name: "if-match"},
	{Name: "if-modified-since"},
	{Name: "if-none-match"},
	{Name: "if-range"},
	{Name: "if-unmodified-since"},
	{Name: "last-modified"},
	{Name: "link"},
	{Name: "location"},
	{Name: "max-forwards"},
	{Name: "proxy-authenticate"},
	{Name: "proxy-authorization"},
	{Name: "range"},
	{Name: "referer"},
	{Name: "refresh"},
	{Name: "retry-after"},
	{Name: "server"},
	{Name: "set-cookie"},
	{Name: "strict-transport-security"},
	{Name: "transfer-encoding"},
	{Name: "user-agent"},
	{Name: "vary"},
	{Name: "via"},
	{Name: "www-authenticate"},
}

// staticNameIndex maps a name to the index of its first occurrence in
// staticTable (1-based), for FindStaticName.
var staticNameIndex = func() map[string]int {
	m := make(map[string]int, StaticTableSize)
	for i, f := range staticTable {
		if _, ok := m[f.Name]; !ok {
			m[f.Name] = i + 1
		}
	}
	return m
}()

// staticFieldIndex maps a full (name, value) pair to its 1-based index.
var staticFieldIndex = func() map[HeaderField]int {
	m := make(map[HeaderField]int, StaticTableSize)
	for i, f := range staticTable {
		m[f] = i + 1
	}
	return m
}()

// GetStaticEntry returns the static table entry at the given 1-based
// index. The caller must ensure 1 <= index <= StaticTableSize.
func GetStaticEntry(index int) HeaderField {
	return staticTable[index-1]
}

// FindStaticField returns the 1-based index of the entry whose name
// and value both match f, or 0 if there is none.
func FindStaticField(name, value string) int {
	return staticFieldIndex[HeaderField{Name: name, Value: value}]
}

// FindStaticName returns the 1-based index of the first entry whose
// name matches, or 0 if there is none.
func FindStaticName(name string) int {
	return staticNameIndex[name]
}
