// Package scope resolves and checks the filesystem scope a sandboxed
// reconnaissance session is allowed to touch.
package scope

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvedScope is the absolute-path view of a sandbox scope.
// Empty AllowedRoots and AllowedFiles together mean "no restriction".
type ResolvedScope struct {
	Cwd          string
	AllowedRoots []string
	AllowedFiles []string
}

// Resolve anchors relative roots/files at cwd and cleans every path.
// cwd itself must be absolute.
func Resolve(cwd string, roots, files []string) (ResolvedScope, error) {
	if !filepath.IsAbs(cwd) {
		return ResolvedScope{}, fmt.Errorf("scope cwd must be absolute, got %q", cwd)
	}

	s := ResolvedScope{Cwd: filepath.Clean(cwd)}
	for _, r := range roots {
		s.AllowedRoots = append(s.AllowedRoots, absolutize(s.Cwd, r))
	}
	for _, f := range files {
		s.AllowedFiles = append(s.AllowedFiles, absolutize(s.Cwd, f))
	}
	return s, nil
}

// Open reports whether the scope places no restriction on paths.
func (s ResolvedScope) Open() bool {
	return len(s.AllowedRoots) == 0 && len(s.AllowedFiles) == 0
}

// Contains reports whether path falls inside at least one allowed root
// or equals one of the allowed files. The path is anchored at Cwd if
// relative. An open scope contains everything.
func (s ResolvedScope) Contains(path string) bool {
	if s.Open() {
		return true
	}
	abs := absolutize(s.Cwd, path)
	for _, root := range s.AllowedRoots {
		if within(root, abs) {
			return true
		}
	}
	for _, f := range s.AllowedFiles {
		if abs == f {
			return true
		}
	}
	return false
}

// within reports whether path is root itself or below it. Containment is
// prefix-relative, not string-prefix: /tmp/foo does not contain /tmp/foobar.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absolutize(cwd, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(cwd, path)
}
