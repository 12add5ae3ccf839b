// Package manifest loads unnix.kdl: a declarative, per-platform list
// of packages, the binary caches to fetch them from, and the
// environment variables their shell should carry. The grammar itself
// is a pragmatic subset of KDL, parsed with a real KDL document
// parser and walked node-by-node, the way the corpus's own
// KDL-backed config loaders do.
package manifest

import (
	"fmt"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/source"
	"github.com/unnix/unnix/internal/system"
)

// Package is one `pkg` entry under a system block: an attribute path
// to resolve, the outputs to keep, and the named source to resolve
// it through.
type Package struct {
	Attribute string
	Outputs   []string
	Source    string
}

// SystemManifest is everything a manifest declares for one matching
// system predicate.
type SystemManifest struct {
	Packages map[string]Package
	Caches   []string
	Env      map[string]string
}

// Manifest is the fully parsed unnix.kdl document, resolved against
// a concrete target System.
type Manifest struct {
	sources  map[string]source.Hydra // named hydra source blocks
	bySystem []systemBlock
}

type systemBlock struct {
	predicate system.Predicate
	manifest  SystemManifest
}

// Default file name manifests are loaded from, in a project directory.
const FileName = "unnix.kdl"

// Load reads and parses dir/unnix.kdl.
func Load(dir string) (*Manifest, error) {
	path := dir + "/" + FileName
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m, err := parse(string(content))
	if err != nil {
		return nil, &errs.ParseError{Path: path, Err: err}
	}
	return m, nil
}

func parse(content string) (*Manifest, error) {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing KDL: %w", err)
	}

	m := &Manifest{sources: make(map[string]source.Hydra)}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "hydra":
			name, ok := firstStringArg(n)
			if !ok {
				return nil, fmt.Errorf("hydra block missing a name argument")
			}
			h, err := parseHydraBlock(n)
			if err != nil {
				return nil, fmt.Errorf("hydra %q: %w", name, err)
			}
			m.sources[name] = h
		case "system":
			predStr, ok := firstStringArg(n)
			if !ok {
				return nil, fmt.Errorf("system block missing a predicate argument")
			}
			pred, err := system.ParsePredicate(predStr)
			if err != nil {
				return nil, err
			}
			sm, err := parseSystemBlock(n)
			if err != nil {
				return nil, fmt.Errorf("system %q: %w", predStr, err)
			}
			m.bySystem = append(m.bySystem, systemBlock{predicate: pred, manifest: sm})
		}
	}

	return m, nil
}

func parseHydraBlock(n *document.Node) (source.Hydra, error) {
	var h source.Hydra
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "domain":
			if s, ok := firstStringArg(cn); ok {
				h.Domain = s
			}
		case "project":
			if s, ok := firstStringArg(cn); ok {
				h.Project = s
			}
		case "jobset":
			if s, ok := firstStringArg(cn); ok {
				h.Jobset = s
			}
		case "job":
			if s, ok := firstStringArg(cn); ok {
				h.JobTemplate = s
			}
		}
	}
	if h.Domain == "" {
		h.Domain = "hydra.nixos.org"
	}
	if h.Project == "" || h.Jobset == "" {
		return source.Hydra{}, fmt.Errorf("hydra block requires project and jobset")
	}
	return h, nil
}

func parseSystemBlock(n *document.Node) (SystemManifest, error) {
	sm := SystemManifest{
		Packages: make(map[string]Package),
		Env:      make(map[string]string),
	}
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "packages":
			for _, pn := range cn.Children {
				if nodeName(pn) != "pkg" {
					continue
				}
				attr, ok := firstStringArg(pn)
				if !ok {
					return SystemManifest{}, fmt.Errorf("pkg node missing attribute argument")
				}
				pkg := Package{Attribute: attr, Source: "default"}
				for key, val := range nodeProperties(pn) {
					switch key {
					case "source":
						pkg.Source = val
					case "outputs":
						pkg.Outputs = strings.Split(val, ",")
					}
				}
				// Outputs left empty means "every output the source
				// reports", not a default of "out"; the resolver
				// expands it once it has the source's actual output set.
				sm.Packages[attr] = pkg
			}
		case "caches":
			sm.Caches = append(sm.Caches, collectStringArgs(cn)...)
			for _, cacheNode := range cn.Children {
				if s, ok := firstStringArg(cacheNode); ok {
					sm.Caches = append(sm.Caches, s)
				} else if cacheNode.Name != nil {
					if s, ok := cacheNode.Name.Value.(string); ok {
						sm.Caches = append(sm.Caches, s)
					}
				}
			}
		case "env":
			for _, en := range cn.Children {
				name := nodeName(en)
				if v, ok := firstStringArg(en); ok {
					sm.Env[name] = v
				}
			}
		}
	}
	return sm, nil
}

// ForSystem returns the merged SystemManifest for sys: every matching
// system block's packages/caches/env are combined, later blocks
// overriding earlier ones on key collisions, matching a manifest
// author's expectation that more specific blocks win.
func (m *Manifest) ForSystem(sys system.System) SystemManifest {
	merged := SystemManifest{
		Packages: make(map[string]Package),
		Env:      make(map[string]string),
	}
	for _, b := range m.bySystem {
		if !b.predicate.Matches(sys) {
			continue
		}
		for k, v := range b.manifest.Packages {
			merged.Packages[k] = v
		}
		merged.Caches = append(merged.Caches, b.manifest.Caches...)
		for k, v := range b.manifest.Env {
			merged.Env[k] = v
		}
	}
	return merged
}

// Source resolves a named hydra source block, defaulting to
// hydra.nixos.org/nixpkgs/unstable if "default" was never declared,
// matching the original implementation's Source::default.
func (m *Manifest) Source(name string) (source.Hydra, error) {
	if h, ok := m.sources[name]; ok {
		return h, nil
	}
	if name == "default" {
		return source.Hydra{Domain: "hydra.nixos.org", Project: "nixpkgs", Jobset: "unstable"}, nil
	}
	return source.Hydra{}, fmt.Errorf("manifest: unknown source %q", name)
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func nodeProperties(n *document.Node) map[string]string {
	out := make(map[string]string)
	for _, p := range n.Properties {
		if s, ok := p.Value.Value.(string); ok {
			out[p.Name.NodeNameString()] = s
		}
	}
	return out
}

func collectStringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
