// Package store implements the Installed-Set Store and Manifest (§3, §4.E):
// the installed_packages.txt line store and the per-package manifest
// documents that back it.
package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one line of the installed store: name:version:comment:origin.
type Record struct {
	Name    string
	Version string
	Comment string
	Origin  string
}

// Manifest is the structured per-package document recorded at install
// time, per §3's Manifest entity.
type Manifest struct {
	Version string                 `yaml:"version"`
	Comment string                 `yaml:"comment"`
	Origin  string                 `yaml:"origin"`
	Deps    map[string]interface{} `yaml:"deps"`
	Files   map[string]interface{} `yaml:"files"`
}

// Store manages installed_packages.txt and the sibling manifests/
// directory.
type Store struct {
	listPath     string
	manifestsDir string
}

// New creates a Store rooted at prefixDir (the user prefix tree).
func New(prefixDir string) *Store {
	return &Store{
		listPath:     filepath.Join(prefixDir, "installed_packages.txt"),
		manifestsDir: filepath.Join(prefixDir, "manifests"),
	}
}

func (s *Store) manifestPath(name string) string {
	return filepath.Join(s.manifestsDir, name+".manifest")
}

// validateField rejects names/versions containing ':' or a newline, per
// §6's record format constraint.
func validateField(field string) error {
	if strings.ContainsAny(field, ":\n") {
		return fmt.Errorf("field %q contains a reserved character (':' or newline)", field)
	}
	return nil
}

// Contains reports whether name has a line in the installed store.
func (s *Store) Contains(name string) (bool, error) {
	records, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for _, r := range records {
		if r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Get returns the installed record for name, if any.
func (s *Store) Get(name string) (Record, bool, error) {
	records, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	for _, r := range records {
		if r.Name == name {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// List returns every installed record.
func (s *Store) List() ([]Record, error) {
	records, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

// Add appends a record for name if it is not already present (idempotent
// per §4.E), and writes its manifest. Invariant 1 (installed⇔manifest) and
// invariant 3 (no two installed records share a name) are both
// maintained here.
func (s *Store) Add(name string, rec Record, manifest *Manifest) error {
	if err := validateField(rec.Name); err != nil {
		return err
	}
	if err := validateField(rec.Version); err != nil {
		return err
	}

	exists, err := s.Contains(name)
	if err != nil {
		return err
	}

	if err := s.writeManifest(name, manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	if exists {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.listPath), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	f, err := os.OpenFile(s.listPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening installed store: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s:%s:%s:%s\n", rec.Name, rec.Version, rec.Comment, rec.Origin)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}

// Remove rewrites the store without name's line and deletes its manifest.
func (s *Store) Remove(name string) error {
	records, err := s.readAll()
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	kept := records[:0:0]
	for _, r := range records {
		if r.Name != name {
			kept = append(kept, r)
		}
	}

	if err := s.writeAll(kept); err != nil {
		return fmt.Errorf("rewriting installed store: %w", err)
	}

	if err := os.Remove(s.manifestPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing manifest: %w", err)
	}
	return nil
}

// LoadManifest reads and parses name's manifest.
func (s *Store) LoadManifest(name string) (*Manifest, error) {
	data, err := os.ReadFile(s.manifestPath(name))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest for %s: %w", name, err)
	}
	return &m, nil
}

// HasManifest reports whether name's manifest file exists.
func (s *Store) HasManifest(name string) bool {
	_, err := os.Stat(s.manifestPath(name))
	return err == nil
}

func (s *Store) writeManifest(name string, m *Manifest) error {
	if m == nil {
		m = &Manifest{}
	}
	if err := os.MkdirAll(s.manifestsDir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(s.manifestPath(name), data, 0644)
}

func (s *Store) readAll() ([]Record, error) {
	f, err := os.Open(s.listPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 4)
		if len(parts) != 4 {
			continue
		}
		records = append(records, Record{Name: parts[0], Version: parts[1], Comment: parts[2], Origin: parts[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) writeAll(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(s.listPath), 0755); err != nil {
		return err
	}
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s:%s:%s:%s\n", r.Name, r.Version, r.Comment, r.Origin)
	}
	return os.WriteFile(s.listPath, []byte(b.String()), 0644)
}
