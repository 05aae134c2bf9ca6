// Package engine implements the Resolver & Installer, Remover, and Query
// Operations (§4.H, §4.I, §4.J): the orchestration layer tying together
// the ABI probe, fetcher, archive extractor, catalogue, installed-set
// store, system-shadow probe, and symlink farm.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	lilith "github.com/lilith-pkg/lilith"
	"github.com/lilith-pkg/lilith/pkg/abi"
	"github.com/lilith-pkg/lilith/pkg/archive"
	"github.com/lilith-pkg/lilith/pkg/catalog"
	"github.com/lilith-pkg/lilith/pkg/fetch"
	"github.com/lilith-pkg/lilith/pkg/prefix"
	"github.com/lilith-pkg/lilith/pkg/shadow"
	"github.com/lilith-pkg/lilith/pkg/store"
	"github.com/lilith-pkg/lilith/pkg/symlink"
	"github.com/lilith-pkg/lilith/pkg/ui"
)

// depVersionSuffix matches the first "-<digit>" in a dependency token,
// onward: stripping it yields the dependency's canonical base name
// (§4.H step 5, §4.I step 7).
var depVersionSuffix = regexp.MustCompile(`-\d.*$`)

func depBase(token string) string {
	return depVersionSuffix.ReplaceAllString(token, "")
}

// InstallOptions mirrors §4.H's opts set; NoDeps wins when both are set.
type InstallOptions struct {
	FullDeps bool
	NoDeps   bool
}

// RemoveOptions mirrors §4.I's opts set.
type RemoveOptions struct {
	Force        bool
	NoAutoRemove bool
	NoCleanup    bool
}

// Engine holds every component collaborator for a single prefix tree.
type Engine struct {
	Tree   *prefix.Tree
	Store  *store.Store
	Index  *catalog.Index
	Fetch  *fetch.Client
	Prober *abi.Prober
	Sink   ui.Sink

	farm *symlink.Farm
}

// New constructs an Engine for tree, sweeping any stale scratch
// directories left by a crashed prior invocation.
func New(tree *prefix.Tree, sink ui.Sink) *Engine {
	tree.SweepStaleTemp()
	client := fetch.New(60 * time.Second)
	return &Engine{
		Tree:   tree,
		Store:  store.New(tree.Root),
		Index:  catalog.New(client, tree.CacheDir()),
		Fetch:  client,
		Prober: abi.NewProber(),
		Sink:   sink,
		farm:   symlink.New(tree.Root),
	}
}

// ensureCatalogue loads the cached catalogue, auto-refreshing when
// autoRefresh is true and no cache exists (§4.D contract).
func (e *Engine) ensureCatalogue(ctx context.Context, autoRefresh bool) error {
	if e.Index.Loaded() {
		return nil
	}
	if err := e.Index.Load(); err == nil {
		return nil
	}
	if !autoRefresh {
		return lilith.Wrap("query", "", lilith.ErrMetadataMissing, nil)
	}
	return e.refresh(ctx)
}

func (e *Engine) refresh(ctx context.Context) error {
	base, err := e.Prober.BaseURL()
	if err != nil {
		return wrapErr("update-metadata", "", lilith.ErrEnvProbe, err)
	}
	if err := e.Index.Refresh(ctx, base); err != nil {
		return wrapErr("update-metadata", "", lilith.ErrNetwork, err)
	}
	return nil
}

// UpdateMetadata refreshes the repository catalogue (§4.J).
func (e *Engine) UpdateMetadata(ctx context.Context) error {
	return e.refresh(ctx)
}

// Install recursively installs name and its unresolved, unshadowed
// dependencies (§4.H).
func (e *Engine) Install(ctx context.Context, name string, opts InstallOptions) error {
	if err := e.Tree.Init(); err != nil {
		return wrapErr("install", name, lilith.ErrFilesystem, err)
	}
	if _, err := e.Prober.Triple(); err != nil {
		return wrapErr("install", name, lilith.ErrEnvProbe, err)
	}
	if err := e.ensureCatalogue(ctx, true); err != nil {
		return err
	}
	return e.install(ctx, name, opts, map[string]bool{})
}

func (e *Engine) install(ctx context.Context, name string, opts InstallOptions, stack map[string]bool) error {
	if stack[name] {
		e.Sink.Warning("dependency cycle detected at %s, cutting edge", name)
		return nil
	}
	stack[name] = true
	defer delete(stack, name)

	fullName, ok := e.Index.FindFullName(name)
	if !ok {
		return wrapErr("install", name, lilith.ErrNotFound, nil)
	}

	installed, err := e.Store.Contains(fullName)
	if err != nil {
		return wrapErr("install", name, lilith.ErrFilesystem, err)
	}
	if installed {
		e.Sink.Warning("%s is already installed", fullName)
		return nil
	}

	if !opts.NoDeps {
		for _, dep := range e.Index.GetDeps(fullName) {
			base := depBase(dep)

			depInstalled, err := e.Store.Contains(base)
			if err != nil {
				return wrapErr("install", name, lilith.ErrFilesystem, err)
			}
			if depInstalled {
				continue
			}
			if !opts.FullDeps && shadow.Shadowed(base) {
				e.Sink.Info("%s satisfied by host system, skipping", base)
				continue
			}

			depOpts := InstallOptions{FullDeps: opts.FullDeps} // no_deps never propagates
			if err := e.install(ctx, base, depOpts, stack); err != nil {
				return err
			}
		}
	}

	return e.fetchExtractRecord(ctx, fullName)
}

func (e *Engine) fetchExtractRecord(ctx context.Context, fullName string) error {
	pathField, ok := e.Index.GetField(fullName, "path")
	if !ok {
		return wrapErr("install", fullName, lilith.ErrNotFound, nil)
	}
	archivePathStr, _ := pathField.(string)
	if archivePathStr == "" {
		return wrapErr("install", fullName, lilith.ErrNotFound, fmt.Errorf("catalogue record has no path"))
	}

	repoBase, err := e.Prober.BaseURL()
	if err != nil {
		return wrapErr("install", fullName, lilith.ErrEnvProbe, err)
	}
	filename := filepath.Base(archivePathStr)
	url := repoBase + "/" + filename

	scratch, err := e.Tree.NewScratchDir("install-*")
	if err != nil {
		return wrapErr("install", fullName, lilith.ErrFilesystem, err)
	}
	defer removeAll(scratch)

	archivePath := filepath.Join(scratch, filename)
	if err := e.Fetch.Fetch(ctx, url, archivePath); err != nil {
		return wrapErr("install", fullName, lilith.ErrNetwork, err)
	}

	extractDir := filepath.Join(scratch, "extract")
	if err := archive.Extract(archivePath, extractDir); err != nil {
		return wrapErr("install", fullName, lilith.ErrArchive, err)
	}

	upstreamFiles, err := e.Tree.MirrorUsrLocal(extractDir)
	if err != nil {
		return wrapErr("install", fullName, lilith.ErrFilesystem, err)
	}

	if err := e.farm.Reindex(); err != nil {
		return wrapErr("install", fullName, lilith.ErrFilesystem, err)
	}

	rec, manifest := e.buildRecord(fullName, extractDir, upstreamFiles)
	if err := e.Store.Add(fullName, rec, manifest); err != nil {
		return wrapErr("install", fullName, lilith.ErrFilesystem, err)
	}

	e.Sink.Success("installed %s %s", fullName, rec.Version)
	return nil
}

// buildRecord assembles the Installed Record and Manifest for a package
// just extracted to extractDir from the catalogue fields of fullName and
// the list of mirrored files. A +MANIFEST in the archive is not read or
// copied; version, comment and origin come from the catalogue only.
func (e *Engine) buildRecord(fullName, extractDir string, upstreamFiles []string) (store.Record, *store.Manifest) {
	version, _ := e.Index.GetField(fullName, "version")
	comment, _ := e.Index.GetField(fullName, "comment")
	origin, _ := e.Index.GetField(fullName, "origin")

	rec := store.Record{
		Name:    fullName,
		Version: stringOrSentinel(version),
		Comment: stringOrSentinel(comment),
		Origin:  stringOrSentinel(origin),
	}

	deps := make(map[string]interface{})
	for _, d := range e.Index.GetDeps(fullName) {
		deps[d] = true
	}

	files := make(map[string]interface{}, len(upstreamFiles))
	for _, f := range upstreamFiles {
		files[f] = true
	}

	manifest := &store.Manifest{
		Version: rec.Version,
		Comment: rec.Comment,
		Origin:  rec.Origin,
		Deps:    deps,
		Files:   files,
	}
	return rec, manifest
}

func stringOrSentinel(v interface{}) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "unknown"
	}
	return s
}

// Remove removes name and, unless NoAutoRemove, any dependency orphaned
// by the removal (§4.I).
func (e *Engine) Remove(ctx context.Context, name string, opts RemoveOptions) error {
	if err := e.remove(ctx, name, opts); err != nil {
		return err
	}
	if !opts.NoCleanup {
		if err := e.farm.Purge(); err != nil {
			return wrapErr("remove", name, lilith.ErrFilesystem, err)
		}
	}
	return nil
}

func (e *Engine) remove(ctx context.Context, name string, opts RemoveOptions) error {
	rec, ok, err := e.Store.Get(name)
	if err != nil {
		return wrapErr("remove", name, lilith.ErrFilesystem, err)
	}
	if !ok {
		return wrapErr("remove", name, lilith.ErrNotInstalled, nil)
	}

	if !opts.Force {
		requiredBy, err := e.requiredBy(name)
		if err != nil {
			return wrapErr("remove", name, lilith.ErrFilesystem, err)
		}
		if len(requiredBy) > 0 {
			return wrapErr("remove", name, lilith.ErrRequiredBy, fmt.Errorf("required by: %s", strings.Join(requiredBy, ", ")))
		}
	}

	manifest, err := e.Store.LoadManifest(rec.Name)
	if err != nil {
		return wrapErr("remove", name, lilith.ErrFilesystem, err)
	}

	var savedDeps []string
	for d := range manifest.Deps {
		savedDeps = append(savedDeps, d)
	}
	sort.Strings(savedDeps)

	if err := e.unlinkManifestFiles(manifest); err != nil {
		return wrapErr("remove", name, lilith.ErrFilesystem, err)
	}
	if err := e.Tree.RemoveEmptyDirs(); err != nil {
		return wrapErr("remove", name, lilith.ErrFilesystem, err)
	}

	if err := e.Store.Remove(rec.Name); err != nil {
		return wrapErr("remove", name, lilith.ErrFilesystem, err)
	}
	e.Sink.Success("removed %s", rec.Name)

	if !opts.NoAutoRemove {
		for _, dep := range savedDeps {
			base := depBase(dep)
			depInstalled, err := e.Store.Contains(base)
			if err != nil || !depInstalled {
				continue
			}
			requiredBy, err := e.requiredBy(base)
			if err != nil || len(requiredBy) > 0 {
				continue
			}
			childOpts := RemoveOptions{NoCleanup: true, NoAutoRemove: opts.NoAutoRemove}
			if err := e.remove(ctx, base, childOpts); err != nil {
				return err
			}
		}
	}
	return nil
}

// requiredBy returns the sorted list of installed packages whose
// manifest lists name (exact or hyphen-version-prefixed) as a dependency.
func (e *Engine) requiredBy(name string) ([]string, error) {
	records, err := e.Store.List()
	if err != nil {
		return nil, err
	}
	var dependents []string
	for _, r := range records {
		if r.Name == name {
			continue
		}
		manifest, err := e.Store.LoadManifest(r.Name)
		if err != nil {
			continue
		}
		for dep := range manifest.Deps {
			if dep == name || strings.HasPrefix(dep, name+"-") {
				dependents = append(dependents, r.Name)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents, nil
}

func (e *Engine) unlinkManifestFiles(manifest *store.Manifest) error {
	for upstreamPath := range manifest.Files {
		localPath := e.Tree.Relocate(upstreamPath)
		if err := removeFileOrEmptyDir(localPath); err != nil {
			return err
		}
	}
	return nil
}

// Update refreshes the catalogue and, if the installed version differs
// from upstream, removes and reinstalls the package (§4.J). Install
// flags are not preserved across the reinstall.
func (e *Engine) Update(ctx context.Context, name string) error {
	rec, ok, err := e.Store.Get(name)
	if err != nil {
		return wrapErr("update", name, lilith.ErrFilesystem, err)
	}
	if !ok {
		return wrapErr("update", name, lilith.ErrNotInstalled, nil)
	}

	if err := e.refresh(ctx); err != nil {
		return err
	}

	upstreamVersion, _ := e.Index.GetField(rec.Name, "version")
	if stringOrSentinel(upstreamVersion) == rec.Version {
		e.Sink.Info("%s is up to date (%s)", rec.Name, rec.Version)
		return nil
	}

	if err := e.Remove(ctx, rec.Name, RemoveOptions{Force: true, NoAutoRemove: true}); err != nil {
		return err
	}
	return e.Install(ctx, rec.Name, InstallOptions{})
}

// List returns every installed record (§4.J).
func (e *Engine) List() ([]store.Record, error) {
	records, err := e.Store.List()
	if err != nil {
		return nil, wrapErr("list", "", lilith.ErrFilesystem, err)
	}
	return records, nil
}

// InfoFields is the fixed block of fields §6 requires `info` to print.
type InfoFields struct {
	Name         string
	Version      string
	Comment      string
	Maintainer   string
	WWW          string
	Origin       string
	Licenses     []string
	Dependencies []string
}

// Info performs an exact-name catalogue lookup (no prefix fallback,
// §4.J) and returns its fixed field block.
func (e *Engine) Info(ctx context.Context, name string) (*InfoFields, error) {
	if err := e.ensureCatalogue(ctx, false); err != nil {
		return nil, wrapErr("info", name, lilith.ErrMetadataMissing, err)
	}

	version, ok := e.Index.GetFieldExact(name, "version")
	if !ok {
		return nil, wrapErr("info", name, lilith.ErrNotFound, nil)
	}
	comment, _ := e.Index.GetFieldExact(name, "comment")
	maintainer, _ := e.Index.GetFieldExact(name, "maintainer")
	www, _ := e.Index.GetFieldExact(name, "www")
	origin, _ := e.Index.GetFieldExact(name, "origin")
	licenses, _ := e.Index.GetFieldExact(name, "licenses")

	fields := &InfoFields{
		Name:         name,
		Version:      stringOrSentinel(version),
		Comment:      stringOrSentinel(comment),
		Maintainer:   stringOrSentinel(maintainer),
		WWW:          stringOrSentinel(www),
		Origin:       stringOrSentinel(origin),
		Dependencies: e.Index.GetDepsExact(name),
	}
	if ls, ok := licenses.([]string); ok {
		fields.Licenses = ls
	}
	return fields, nil
}

// Search delegates to the Repository Index (§4.J).
func (e *Engine) Search(ctx context.Context, query string, all bool) ([]catalog.SearchResult, error) {
	if err := e.ensureCatalogue(ctx, false); err != nil {
		return nil, wrapErr("search", "", lilith.ErrMetadataMissing, err)
	}
	mode := catalog.ModeNames
	if all {
		mode = catalog.ModeAll
	}
	results, err := e.Index.Search(query, mode)
	if err != nil {
		return nil, wrapErr("search", "", lilith.ErrFilesystem, err)
	}
	return results, nil
}

// FixSymlinks purges dangling top-level symlinks, then reindexes (§4.J).
func (e *Engine) FixSymlinks() error {
	if err := e.farm.Purge(); err != nil {
		return wrapErr("fix-symlinks", "", lilith.ErrFilesystem, err)
	}
	if err := e.farm.Reindex(); err != nil {
		return wrapErr("fix-symlinks", "", lilith.ErrFilesystem, err)
	}
	return nil
}

func wrapErr(op, pkg string, kind error, err error) error {
	return lilith.Wrap(op, pkg, kind, err)
}

func removeAll(path string) {
	os.RemoveAll(path)
}

// removeFileOrEmptyDir unlinks a regular file, or removes a directory
// only if it is empty; a path that is already gone is not an error
// (§4.I step 4).
func removeFileOrEmptyDir(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		// os.Remove on a directory only succeeds if it is empty; a
		// non-empty directory may still be owned by other packages, so
		// ENOTEMPTY here is expected, not an error.
		os.Remove(path)
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
