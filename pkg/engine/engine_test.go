package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/lilith-pkg/lilith/pkg/prefix"
	"github.com/lilith-pkg/lilith/pkg/ui"
)

// fakePackage describes one catalogue entry and the contents of its
// archive for the test repository server below.
type fakePackage struct {
	name string
	deps []string // dependency name tokens, as they'd appear in the catalogue
}

func buildZstdTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	tw := tar.NewWriter(zw)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader(%s): %v", name, err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd Close: %v", err)
	}
	return buf.Bytes()
}

// newFakeRepo starts an httptest server serving a packagesite.tzst built
// from pkgs, plus one archive per package containing a single marker
// file under usr/local/bin/.
func newFakeRepo(t *testing.T, pkgs []fakePackage) *httptest.Server {
	t.Helper()

	var catalogue strings.Builder
	archives := make(map[string][]byte)
	for _, p := range pkgs {
		deps := make([]string, len(p.deps))
		for i, d := range p.deps {
			deps[i] = fmt.Sprintf("%q:{}", d)
		}
		fmt.Fprintf(&catalogue, `{"name":%q,"version":"1.0","comment":"test package %s","origin":%q,"path":"All/%s-1.0.pkg","deps":{%s}}`+"\n",
			p.name, p.name, p.name, p.name, strings.Join(deps, ","))

		archives[p.name+"-1.0.pkg"] = buildZstdTar(t, map[string]string{
			"usr/local/bin/" + p.name: "#!/bin/sh\necho " + p.name + "\n",
		})
	}
	catalogueArchive := buildZstdTar(t, map[string]string{"packagesite.yaml": catalogue.String()})

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/packagesite.tzst"):
			w.Write(catalogueArchive)
		default:
			base := filepath.Base(r.URL.Path)
			data, ok := archives[base]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		}
	})
	return httptest.NewServer(mux)
}

func newTestEngine(t *testing.T, srv *httptest.Server) *Engine {
	t.Helper()
	tree := prefix.New(t.TempDir())
	eng := New(tree, ui.NewPlain(io.Discard, io.Discard))
	eng.Prober.Scheme = "http"
	eng.Prober.Host = strings.TrimPrefix(srv.URL, "http://")
	eng.Prober.Branch = "test"
	return eng
}

func TestInstallResolvesDependencies(t *testing.T) {
	srv := newFakeRepo(t, []fakePackage{
		{name: "foo", deps: []string{"bar"}},
		{name: "bar"},
	})
	defer srv.Close()
	eng := newTestEngine(t, srv)

	if err := eng.Install(context.Background(), "foo", InstallOptions{}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	for _, name := range []string{"foo", "bar"} {
		ok, err := eng.Store.Contains(name)
		if err != nil || !ok {
			t.Fatalf("Contains(%s) = %v, %v, want true, nil", name, ok, err)
		}
		if !eng.Store.HasManifest(name) {
			t.Fatalf("expected manifest for %s", name)
		}
		if _, err := os.Stat(filepath.Join(eng.Tree.Root, "bin", name)); err != nil {
			t.Fatalf("expected mirrored binary for %s: %v", name, err)
		}
	}
}

func TestInstallIdempotent(t *testing.T) {
	srv := newFakeRepo(t, []fakePackage{{name: "foo"}})
	defer srv.Close()
	eng := newTestEngine(t, srv)

	if err := eng.Install(context.Background(), "foo", InstallOptions{}); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	if err := eng.Install(context.Background(), "foo", InstallOptions{}); err != nil {
		t.Fatalf("second Install: %v", err)
	}

	records, err := eng.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one record after idempotent Install, got %d", len(records))
	}
}

func TestInstallCycleSafety(t *testing.T) {
	srv := newFakeRepo(t, []fakePackage{
		{name: "pkga", deps: []string{"pkgb"}},
		{name: "pkgb", deps: []string{"pkga"}},
	})
	defer srv.Close()
	eng := newTestEngine(t, srv)

	if err := eng.Install(context.Background(), "pkga", InstallOptions{}); err != nil {
		t.Fatalf("Install with dependency cycle should terminate successfully, got: %v", err)
	}

	for _, name := range []string{"pkga", "pkgb"} {
		ok, err := eng.Store.Contains(name)
		if err != nil || !ok {
			t.Fatalf("Contains(%s) = %v, %v, want true, nil", name, ok, err)
		}
	}
}

func TestRemoveRequiredByGuard(t *testing.T) {
	srv := newFakeRepo(t, []fakePackage{
		{name: "foo", deps: []string{"bar"}},
		{name: "bar"},
	})
	defer srv.Close()
	eng := newTestEngine(t, srv)

	if err := eng.Install(context.Background(), "foo", InstallOptions{}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if err := eng.Remove(context.Background(), "bar", RemoveOptions{}); err == nil {
		t.Fatal("expected Remove(bar) to fail while foo depends on it")
	}

	okFoo, _ := eng.Store.Contains("foo")
	okBar, _ := eng.Store.Contains("bar")
	if !okFoo || !okBar {
		t.Fatal("both packages should remain installed after a blocked removal")
	}
}

func TestInstallRemoveInverse(t *testing.T) {
	srv := newFakeRepo(t, []fakePackage{{name: "foo"}})
	defer srv.Close()
	eng := newTestEngine(t, srv)

	if err := eng.Install(context.Background(), "foo", InstallOptions{}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := eng.Remove(context.Background(), "foo", RemoveOptions{Force: true, NoAutoRemove: true}); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	ok, err := eng.Store.Contains("foo")
	if err != nil || ok {
		t.Fatalf("Contains(foo) after Remove = %v, %v, want false, nil", ok, err)
	}
	if _, err := os.Stat(filepath.Join(eng.Tree.Root, "bin", "foo")); !os.IsNotExist(err) {
		t.Fatalf("expected mirrored binary to be gone, stat err = %v", err)
	}
}

func TestInstallNotFound(t *testing.T) {
	srv := newFakeRepo(t, []fakePackage{{name: "foo"}})
	defer srv.Close()
	eng := newTestEngine(t, srv)

	err := eng.Install(context.Background(), "does-not-exist", InstallOptions{})
	if err == nil {
		t.Fatal("expected install of an unknown package to fail")
	}
}

func TestDepBaseStripsVersionSuffix(t *testing.T) {
	cases := map[string]string{
		"openssl-1.1.1":  "openssl",
		"curl-8.1.0_1":   "curl",
		"zlib":           "zlib",
		"libfoo-2":       "libfoo",
	}
	for in, want := range cases {
		if got := depBase(in); got != want {
			t.Fatalf("depBase(%q) = %q, want %q", in, got, want)
		}
	}
}
