// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package hpack

import "testing"

func TestStaticTableSize(t *testing.T) {
	if len(staticTable) != StaticTableSize {
		t.Fatalf("len(staticTable) = %d, want %d", len(staticTable), StaticTableSize)
	}
}

func TestFindStaticField(t *testing.T) {
	tests := []struct {
		name, value string
		want        int
	}{
		{":method", "GET", 2},
		{":method", "POST", 3},
		{":status", "200", 8},
		{"accept-encoding", "gzip, deflate", 16},
		{"www-authenticate", "", 61},
		{"no-such-header", "x", 0},
		{":method", "PATCH", 0}, // name matches, value doesn't: not a full match
	}
	for _, tt := range tests {
		if got := FindStaticField(tt.name, tt.value); got != tt.want {
			t.Errorf("FindStaticField(%q, %q) = %d, want %d", tt.name, tt.value, got, tt.want)
		}
	}
}

func TestFindStaticName(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{":authority", 1},
		{":method", 2}, // first occurrence
		{":status", 8}, // first occurrence
		{"content-type", 31},
		{"no-such-header", 0},
	}
	for _, tt := range tests {
		if got := FindStaticName(tt.name); got != tt.want {
			t.Errorf("FindStaticName(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestGetStaticEntry(t *testing.T) {
	f := GetStaticEntry(4)
	if f.Name != ":path" || f.Value != "/" {
		t.Errorf("GetStaticEntry(4) = %+v, want :path=/", f)
	}
}
