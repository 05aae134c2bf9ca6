package catalog

import (
	"strings"
	"testing"

	"github.com/lilith-pkg/lilith/pkg/fetch"
)

const sampleCatalogue = `{"name":"curl","version":"8.1.0","comment":"command line tool for transferring data","origin":"ftp/curl","path":"All/curl-8.1.0.pkg","deps":{"openssl":{}}}
{"name":"curl-openssl","version":"8.1.0_1","comment":"curl built against a newer openssl","origin":"ftp/curl-openssl","path":"All/curl-openssl-8.1.0_1.pkg"}
{"name":"zlib","version":"1.3","comment":"compression library","origin":"archivers/zlib","path":"All/zlib-1.3.pkg"}
not valid json at all
{"name":"","comment":"missing name is skipped"}
`

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := New(fetch.New(0), t.TempDir())
	if err := idx.parse(strings.NewReader(sampleCatalogue)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return idx
}

func TestFindFullNameExactMatch(t *testing.T) {
	idx := newTestIndex(t)
	name, ok := idx.FindFullName("zlib")
	if !ok || name != "zlib" {
		t.Fatalf("FindFullName(zlib) = %q, %v, want zlib, true", name, ok)
	}
}

func TestFindFullNamePrefixTiebreak(t *testing.T) {
	idx := newTestIndex(t)
	// "curl" has no exact match in isolation from "curl-openssl", but an
	// exact "curl" record does exist, so it wins over the prefix match.
	name, ok := idx.FindFullName("curl")
	if !ok || name != "curl" {
		t.Fatalf("FindFullName(curl) = %q, %v, want curl, true", name, ok)
	}
}

func TestFindFullNameDeterministicPrefixFallback(t *testing.T) {
	idx := New(fetch.New(0), t.TempDir())
	// Two records share the "sdl2-" prefix with no exact "sdl2" record;
	// the lexicographically smaller name must always win.
	data := `{"name":"sdl2-image","version":"2.0","path":"All/sdl2-image-2.0.pkg"}
{"name":"sdl2-mixer","version":"2.0","path":"All/sdl2-mixer-2.0.pkg"}
`
	if err := idx.parse(strings.NewReader(data)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	name, ok := idx.FindFullName("sdl2")
	if !ok || name != "sdl2-image" {
		t.Fatalf("FindFullName(sdl2) = %q, %v, want sdl2-image, true", name, ok)
	}
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	idx := newTestIndex(t)
	if _, ok := idx.FindFullName(""); ok {
		t.Fatal("expected empty name to never match")
	}
	// Three well-formed records should have survived the two bad lines.
	if len(idx.order) != 3 {
		t.Fatalf("expected 3 parsed entries, got %d", len(idx.order))
	}
}

func TestGetDepsSortedAndEmpty(t *testing.T) {
	idx := newTestIndex(t)
	deps := idx.GetDeps("curl")
	if len(deps) != 1 || deps[0] != "openssl" {
		t.Fatalf("GetDeps(curl) = %v, want [openssl]", deps)
	}
	if deps := idx.GetDeps("zlib"); deps != nil {
		t.Fatalf("GetDeps(zlib) = %v, want nil", deps)
	}
}

func TestSearchModes(t *testing.T) {
	idx := newTestIndex(t)

	names, err := idx.Search("curl", ModeNames)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("Search(curl, ModeNames) = %d results, want 2", len(names))
	}

	all, err := idx.Search("compression", ModeAll)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 1 || all[0].Name != "zlib" {
		t.Fatalf("Search(compression, ModeAll) = %v, want [zlib]", all)
	}

	byNameOnly, err := idx.Search("compression", ModeNames)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(byNameOnly) != 0 {
		t.Fatalf("Search(compression, ModeNames) = %v, want no matches", byNameOnly)
	}
}

func TestGetFieldUnknownField(t *testing.T) {
	idx := newTestIndex(t)
	if _, ok := idx.GetField("zlib", "nonexistent"); ok {
		t.Fatal("expected unknown field to report not-found")
	}
}
