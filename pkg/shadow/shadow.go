// Package shadow implements the System-Shadow Probe (§4.F): a heuristic
// decision of whether a named dependency is already satisfied by the host
// operating system, so the Resolver can skip installing it.
package shadow

import (
	"os"
	"os/exec"
	"path/filepath"
)

// searchDirs are the well-known system library directories checked for a
// matching shared object, per §4.F(b).
var searchDirs = []string{"/usr/lib", "/usr/local/lib"}

// Shadowed reports whether name is already satisfied by the host: an
// executable of that name on PATH, a matching lib<name>.so / <name>.so
// under a system library directory, or a pkg-config module the system's
// package-config tool knows about. It is never consulted for the
// explicitly requested package, only for dependency skipping.
func Shadowed(name string) bool {
	return hasExecutable(name) || hasSharedLibrary(name) || hasPkgConfig(name)
}

func hasExecutable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func hasSharedLibrary(name string) bool {
	candidates := []string{"lib" + name + ".so", name + ".so"}
	for _, dir := range searchDirs {
		for _, candidate := range candidates {
			if fileExists(filepath.Join(dir, candidate)) {
				return true
			}
			// Versioned shared objects: lib<name>.so.N[.M[.P]]
			matches, _ := filepath.Glob(filepath.Join(dir, candidate+".*"))
			if len(matches) > 0 {
				return true
			}
		}
	}
	return false
}

func hasPkgConfig(name string) bool {
	if _, err := exec.LookPath("pkg-config"); err != nil {
		return false
	}
	for _, candidate := range []string{name, "lib" + name} {
		cmd := exec.Command("pkg-config", "--exists", candidate)
		if cmd.Run() == nil {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
