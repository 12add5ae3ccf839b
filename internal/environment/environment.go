// Package environment builds the shell environment a resolved
// package set exposes: manifest-declared variables with
// "{pkg.output}" placeholders substituted, plus PATH/LIBRARY_PATH/
// PKG_CONFIG_PATH prefixes assembled from each output's well-known
// subdirectories when present.
package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/unnix/unnix/internal/lockfile"
	"github.com/unnix/unnix/internal/manifest"
	"github.com/unnix/unnix/internal/storepath"
	"github.com/unnix/unnix/internal/store"
)

// placeholderRe matches "{attr.output}" placeholders in a manifest's
// declared env values.
var placeholderRe = regexp.MustCompile(`\{([^.}]+)\.([^}]+)\}`)

// prefixVars names each well-known subdirectory and the variable it
// contributes to, checked for existence before being added.
var prefixVars = []struct {
	subdir string
	envVar string
}{
	{"bin", "PATH"},
	{"lib", "LIBRARY_PATH"},
	{"lib/pkgconfig", "PKG_CONFIG_PATH"},
}

// Build resolves sm's declared env map and prefix variables against
// the pinned outputs in pkgs, returning PATH, LIBRARY_PATH, and
// PKG_CONFIG_PATH (in that order) followed by every user-declared
// variable, matching the order `print env` must emit them in.
func Build(s *store.Store, sm manifest.SystemManifest, pkgs lockfile.Packages) ([]Var, error) {
	paths := make(map[string]string) // "attr.output" -> absolute store path
	roots := make([]storepath.Path, 0, len(pkgs))

	for attr, lock := range pkgs {
		for output, p := range lock.Outputs {
			paths[attr+"."+output] = s.PathFor(p)
			roots = append(roots, p)
		}
	}

	// Extend the path set with every propagated (transitive) input
	// before building prefix variables, so a package's runtime
	// dependencies contribute to PATH/LIBRARY_PATH/PKG_CONFIG_PATH too.
	closure, err := s.PropagatedClosure(roots)
	if err != nil {
		return nil, fmt.Errorf("environment: expanding propagated inputs: %w", err)
	}

	declared := make(map[string]bool, len(sm.Env))
	for name := range sm.Env {
		declared[name] = true
	}

	prefixes := make(map[string][]string)
	for _, p := range closure {
		base := s.PathFor(p)
		for _, pv := range prefixVars {
			dir := filepath.Join(base, pv.subdir)
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				prefixes[pv.envVar] = append(prefixes[pv.envVar], dir)
			}
		}
	}

	var vars []Var
	for _, pv := range prefixVars {
		dirs, ok := prefixes[pv.envVar]
		if !ok || declared[pv.envVar] {
			continue
		}
		value := strings.Join(dirs, string(os.PathListSeparator))
		if existing := os.Getenv(pv.envVar); existing != "" {
			value += string(os.PathListSeparator) + existing
		}
		vars = append(vars, Var{Name: pv.envVar, Value: value})
	}

	for name, raw := range sm.Env {
		expanded, err := expand(raw, paths)
		if err != nil {
			return nil, fmt.Errorf("environment: %s: %w", name, err)
		}
		vars = append(vars, Var{Name: name, Value: expanded})
	}

	return vars, nil
}

// Var is a single resolved environment variable assignment.
type Var struct {
	Name  string
	Value string
}

func expand(raw string, paths map[string]string) (string, error) {
	var outerErr error
	result := placeholderRe.ReplaceAllStringFunc(raw, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		key := sub[1] + "." + sub[2]
		path, ok := paths[key]
		if !ok {
			outerErr = fmt.Errorf("unknown package output reference %q", match)
			return match
		}
		return path
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}
