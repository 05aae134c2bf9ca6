// Package symlink implements the Symlink Farm Manager (§4.G): maintaining
// SONAME aliases for every shared library below prefix/lib/ and purging
// links that no longer resolve.
package symlink

import (
	"os"
	"path/filepath"
	"strings"
)

// Farm operates on the lib/ directory of a single prefix tree.
type Farm struct {
	libDir string
}

// New creates a Farm rooted at prefixDir/lib.
func New(prefixDir string) *Farm {
	return &Farm{libDir: filepath.Join(prefixDir, "lib")}
}

// Reindex walks every regular file at depth >= 2 below lib/ whose
// basename matches "*.so" or "*.so.*" and ensures the bare name, the
// major-minor truncation, and the major-only truncation each exist as a
// relative symlink at lib/ itself, pointing at the deepest file. Existing
// entries are never overwritten (§4.G.1).
func (f *Farm) Reindex() error {
	info, err := os.Stat(f.libDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.Walk(f.libDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(f.libDir, path)
		if err != nil {
			return err
		}
		if depth(rel) < 2 {
			return nil
		}

		base := filepath.Base(path)
		if !isSharedObject(base) {
			return nil
		}

		for _, name := range aliasNames(base) {
			if err := f.linkIfAbsent(name, path); err != nil {
				return err
			}
		}
		return nil
	})
}

// Purge deletes every symlink directly under lib/ (depth 1) whose target
// does not exist, per §4.G.2.
func (f *Farm) Purge() error {
	entries, err := os.ReadDir(f.libDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(f.libDir, entry.Name())
		lst, err := os.Lstat(path)
		if err != nil || lst.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if rmErr := os.Remove(path); rmErr != nil {
				return rmErr
			}
		}
	}
	return nil
}

func (f *Farm) linkIfAbsent(name, target string) error {
	linkPath := filepath.Join(f.libDir, name)
	if _, err := os.Lstat(linkPath); err == nil {
		return nil // never overwrite an existing entry
	}
	relTarget, err := filepath.Rel(f.libDir, target)
	if err != nil {
		return err
	}
	return os.Symlink(relTarget, linkPath)
}

// depth counts path separators in a filepath.Rel result, so "x" is depth
// 1 and "a/x" is depth 2.
func depth(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func isSharedObject(base string) bool {
	return strings.HasSuffix(base, ".so") || strings.Contains(base, ".so.")
}

// aliasNames returns the version-bare name ("libfoo.so") plus, when the
// original filename carries enough version components, its major-minor
// ("libfoo.so.5.40") and major-only ("libfoo.so.5") truncations (§3
// Symlink Farm / §4.G.1 / P8), de-duplicated and order-stable. The
// original filename itself (with every version component) is never
// among the aliases unless it happens to coincide with a truncation.
func aliasNames(base string) []string {
	idx := strings.Index(base, ".so")
	if idx == -1 {
		return nil
	}
	bare := base[:idx+3] // "...name.so"
	if len(base) == idx+3 {
		return []string{bare} // no version suffix at all
	}

	version := base[idx+4:] // text after "so."
	parts := strings.Split(version, ".")

	names := []string{bare}
	if len(parts) >= 3 {
		names = appendUnique(names, bare+"."+strings.Join(parts[:2], "."))
	}
	if len(parts) >= 1 {
		names = appendUnique(names, bare+"."+parts[0])
	}
	return names
}

func appendUnique(names []string, candidate string) []string {
	for _, n := range names {
		if n == candidate {
			return names
		}
	}
	return append(names, candidate)
}
