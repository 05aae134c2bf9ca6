// errors.go
package lilith

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the taxonomy of §7: each surfaces through Error
// below so callers can both errors.Is against the category and read the
// operation/package context in the message.
var (
	// ErrEnvProbe indicates the ABI triple could not be determined.
	ErrEnvProbe = errors.New("env-probe")

	// ErrMetadataMissing indicates the catalogue is absent and the query
	// does not auto-refresh.
	ErrMetadataMissing = errors.New("metadata-missing")

	// ErrNetwork indicates a fetch failed.
	ErrNetwork = errors.New("network")

	// ErrArchive indicates decompression or extraction failed, including
	// a path-traversal attempt.
	ErrArchive = errors.New("archive")

	// ErrNotFound indicates the package is not in the catalogue.
	ErrNotFound = errors.New("not-found")

	// ErrAlreadyInstalled is soft: logged as a warning, treated as success.
	ErrAlreadyInstalled = errors.New("already-installed")

	// ErrNotInstalled indicates a remove/update target is not installed.
	ErrNotInstalled = errors.New("not-installed")

	// ErrRequiredBy indicates a remove is blocked by installed dependents.
	ErrRequiredBy = errors.New("required-by")

	// ErrFilesystem indicates a create/copy/unlink failure.
	ErrFilesystem = errors.New("filesystem")

	// ErrTooling indicates a required external primitive is unavailable.
	ErrTooling = errors.New("tooling")

	// ErrBusy indicates the advisory prefix lock is held elsewhere.
	ErrBusy = errors.New("busy")
)

// Error wraps a taxonomy sentinel with the operation and package it
// occurred on, so messages read "install foo: not-found: ..." while
// still satisfying errors.Is against the sentinel via Unwrap.
type Error struct {
	Op      string // Operation that failed (e.g. "install", "remove")
	Package string // Package name if applicable
	Kind    error  // One of the sentinels above
	Err     error  // Underlying error, if any additional detail exists
}

func (e *Error) Error() string {
	detail := e.Kind.Error()
	if e.Err != nil {
		detail = fmt.Sprintf("%s: %v", detail, e.Err)
	}
	if e.Package != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Package, detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, detail)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// wrap builds an *Error for op/pkg carrying kind, optionally wrapping err.
func wrap(op, pkg string, kind, err error) *Error {
	return &Error{Op: op, Package: pkg, Kind: kind, Err: err}
}

// Wrap is the exported form of wrap, used by callers outside this
// package (the engine and CLI) to build taxonomy-tagged errors.
func Wrap(op, pkg string, kind, err error) *Error {
	return wrap(op, pkg, kind, err)
}
