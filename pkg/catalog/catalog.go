// Package catalog implements the Repository Index (§4.D): downloading,
// caching, and querying the upstream package catalogue.
package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lilith-pkg/lilith/pkg/archive"
	"github.com/lilith-pkg/lilith/pkg/fetch"
)

// Entry is one record from the upstream catalogue, keyed by canonical
// (unversioned) Name, per §3's Catalogue Entry.
type Entry struct {
	Name         string                 `yaml:"name"`
	Version      string                 `yaml:"version"`
	Comment      string                 `yaml:"comment"`
	Maintainer   string                 `yaml:"maintainer"`
	WWW          string                 `yaml:"www"`
	Arch         string                 `yaml:"arch"`
	Origin       string                 `yaml:"origin"`
	Categories   []string               `yaml:"categories"`
	LicenseLogic string                 `yaml:"licenselogic"`
	Licenses     []string               `yaml:"licenses"`
	PkgSize      int64                  `yaml:"pkgsize"`
	FlatSize     int64                  `yaml:"flatsize"`
	Deps         map[string]interface{} `yaml:"deps"`
	Path         string                 `yaml:"path"`
}

// SearchMode selects which fields Search matches against.
type SearchMode int

const (
	// ModeNames matches the query against Name only.
	ModeNames SearchMode = iota
	// ModeAll matches the query against Name or Comment.
	ModeAll
)

// SearchResult is one row returned by Search.
type SearchResult struct {
	Name    string
	Version string
	Comment string
}

// Index caches and queries the catalogue, per §4.D.
type Index struct {
	client   *fetch.Client
	cacheDir string

	order  []*Entry          // catalogue order, for Search
	sorted []*Entry          // Name-ascending, for deterministic prefix lookup
	byName map[string]*Entry // exact-name fast path
}

// New creates an Index rooted at cacheDir. The catalogue is not loaded
// until Refresh or Load is called.
func New(client *fetch.Client, cacheDir string) *Index {
	return &Index{client: client, cacheDir: cacheDir}
}

func (idx *Index) yamlPath() string { return filepath.Join(idx.cacheDir, "packagesite.yaml") }
func (idx *Index) tzstPath() string { return filepath.Join(idx.cacheDir, "packagesite.tzst") }

// Loaded reports whether a catalogue is currently held in memory.
func (idx *Index) Loaded() bool { return idx.byName != nil }

// Load parses the cached packagesite.yaml from disk into memory, without
// touching the network. Returns the wrapped open error if the cache file
// is absent; the caller decides whether that means metadata-missing.
func (idx *Index) Load() error {
	f, err := os.Open(idx.yamlPath())
	if err != nil {
		return fmt.Errorf("opening cached catalogue: %w", err)
	}
	defer f.Close()
	return idx.parse(f)
}

// Refresh downloads "<repoBase>/../packagesite.tzst" (the parent of the
// per-package All/ directory), extracts the single packagesite.yaml entry
// it contains, and loads it into memory.
func (idx *Index) Refresh(ctx context.Context, repoBase string) error {
	if err := os.MkdirAll(idx.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	parent := strings.TrimSuffix(repoBase, "/All")
	url := parent + "/packagesite.tzst"

	if err := idx.client.Fetch(ctx, url, idx.tzstPath()); err != nil {
		return fmt.Errorf("downloading catalogue: %w", err)
	}

	tmpDir, err := os.MkdirTemp(idx.cacheDir, "extract-*")
	if err != nil {
		return fmt.Errorf("creating extraction scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := archive.Extract(idx.tzstPath(), tmpDir); err != nil {
		return fmt.Errorf("extracting catalogue: %w", err)
	}

	extracted := filepath.Join(tmpDir, "packagesite.yaml")
	data, err := os.ReadFile(extracted)
	if err != nil {
		return fmt.Errorf("reading extracted catalogue: %w", err)
	}
	if err := os.WriteFile(idx.yamlPath(), data, 0644); err != nil {
		return fmt.Errorf("writing cached catalogue: %w", err)
	}

	return idx.parse(strings.NewReader(string(data)))
}

// parse reads one YAML/JSON document per line, skipping malformed records
// rather than failing the whole catalogue (§7: "never panics on malformed
// catalogue records; it skips the record and continues").
func (idx *Index) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var order []*Entry
	byName := make(map[string]*Entry)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := yaml.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.Name == "" {
			continue
		}
		order = append(order, &e)
		if _, exists := byName[e.Name]; !exists {
			byName[e.Name] = &e
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning catalogue: %w", err)
	}

	sorted := append([]*Entry(nil), order...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	idx.order = order
	idx.sorted = sorted
	idx.byName = byName
	return nil
}

// FindFullName resolves a bare or truncated query to the catalogue's exact
// Name field, per §4.D's two-tier lookup with deterministic tiebreak.
func (idx *Index) FindFullName(name string) (string, bool) {
	e := idx.lookup(name)
	if e == nil {
		return "", false
	}
	return e.Name, true
}

func (idx *Index) lookup(name string) *Entry {
	if idx.byName == nil {
		return nil
	}
	if e, ok := idx.byName[name]; ok {
		return e
	}
	prefix := name + "-"
	for _, e := range idx.sorted { // ascending Name order: first hit is lexicographically smallest
		if strings.HasPrefix(e.Name, prefix) {
			return e
		}
	}
	return nil
}

// GetFieldExact returns the named scalar field of the record whose Name
// matches exactly, with no prefix fallback (§4.J's "exact-name lookup
// only").
func (idx *Index) GetFieldExact(name, field string) (interface{}, bool) {
	e := idx.lookupExact(name)
	if e == nil {
		return nil, false
	}
	return fieldValue(e, field)
}

// GetDepsExact returns GetDeps for an exact Name match only, with no
// prefix fallback.
func (idx *Index) GetDepsExact(name string) []string {
	e := idx.lookupExact(name)
	if e == nil {
		return nil
	}
	return sortedDepKeys(e)
}

func (idx *Index) lookupExact(name string) *Entry {
	if idx.byName == nil {
		return nil
	}
	return idx.byName[name]
}

// GetField returns the named scalar field of the resolved record.
func (idx *Index) GetField(name, field string) (interface{}, bool) {
	e := idx.lookup(name)
	if e == nil {
		return nil, false
	}
	return fieldValue(e, field)
}

func fieldValue(e *Entry, field string) (interface{}, bool) {
	switch field {
	case "name":
		return e.Name, true
	case "version":
		return e.Version, true
	case "comment":
		return e.Comment, true
	case "maintainer":
		return e.Maintainer, true
	case "www":
		return e.WWW, true
	case "arch":
		return e.Arch, true
	case "origin":
		return e.Origin, true
	case "categories":
		return e.Categories, true
	case "licenselogic":
		return e.LicenseLogic, true
	case "licenses":
		return e.Licenses, true
	case "pkgsize":
		return e.PkgSize, true
	case "flatsize":
		return e.FlatSize, true
	case "path":
		return e.Path, true
	default:
		return nil, false
	}
}

// GetDeps returns the key set of the resolved record's deps mapping,
// sorted for determinism; empty if the record is absent or has no deps.
func (idx *Index) GetDeps(name string) []string {
	e := idx.lookup(name)
	if e == nil {
		return nil
	}
	return sortedDepKeys(e)
}

func sortedDepKeys(e *Entry) []string {
	if len(e.Deps) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.Deps))
	for k := range e.Deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Search performs a case-insensitive regular-expression match on Name
// (ModeNames) or Name/Comment (ModeAll), returning results in catalogue
// order.
func (idx *Index) Search(query string, mode SearchMode) ([]SearchResult, error) {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, fmt.Errorf("compiling search pattern: %w", err)
	}

	var results []SearchResult
	for _, e := range idx.order {
		match := re.MatchString(e.Name)
		if !match && mode == ModeAll {
			match = re.MatchString(e.Comment)
		}
		if match {
			results = append(results, SearchResult{Name: e.Name, Version: e.Version, Comment: e.Comment})
		}
	}
	return results, nil
}

