// Package lockfile implements unnix.lock.json: the pinned record of
// which store-path outputs each manifest package resolved to, keyed
// by a content hash of its resolution inputs so unchanged packages
// can be reused across runs without re-querying the build farm.
package lockfile

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"lukechampine.com/blake3"

	"github.com/unnix/unnix/internal/storepath"
)

// FileName is the lockfile's name in the project directory.
const FileName = "unnix.lock.json"

// version is the lockfile schema version unnix writes and requires.
const version = 0

// Hash is a base64-encoded 32-byte BLAKE3 digest of a package's
// resolution inputs (attribute, outputs, source).
type Hash string

// HashInputs computes the content hash of v, canonically
// JSON-encoded (sorted map keys, as encoding/json already guarantees
// for map[string]... values) and hashed with BLAKE3.
func HashInputs(v interface{}) (Hash, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("lockfile: encoding hash input: %w", err)
	}
	sum := blake3.Sum256(buf.Bytes())
	return Hash(base64.StdEncoding.EncodeToString(sum[:])), nil
}

// PackageLock is one resolved package's pinned outputs.
type PackageLock struct {
	InputHash Hash                        `json:"input_hash"`
	Outputs   map[string]storepath.Path `json:"outputs"`
}

// packageLockWire is PackageLock's on-disk shape (store paths as
// plain strings).
type packageLockWire struct {
	InputHash Hash              `json:"input_hash"`
	Outputs   map[string]string `json:"outputs"`
}

// Packages maps a manifest package's attribute name to its pinned lock.
type Packages map[string]PackageLock

// Lockfile is the full unnix.lock.json document: one Packages map
// per target system.
type Lockfile struct {
	Version int                 `json:"version"`
	Systems map[string]Packages `json:"systems"`
}

type lockfileWire struct {
	Version int                           `json:"version"`
	Systems map[string]map[string]packageLockWire `json:"systems"`
}

// FromDir reads dir/unnix.lock.json, returning an empty Lockfile if
// the file does not exist (a manifest may be locked for the first
// time).
func FromDir(dir string) (*Lockfile, error) {
	path := dir + "/" + FileName
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Lockfile{Version: version, Systems: make(map[string]Packages)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lockfile: reading %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var wire lockfileWire
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("lockfile: parsing %s: %w", path, err)
	}
	if wire.Version != version {
		return nil, fmt.Errorf("lockfile: %s has unsupported version %d", path, wire.Version)
	}

	lf := &Lockfile{Version: version, Systems: make(map[string]Packages, len(wire.Systems))}
	for sys, pkgs := range wire.Systems {
		converted := make(Packages, len(pkgs))
		for attr, pl := range pkgs {
			outputs := make(map[string]storepath.Path, len(pl.Outputs))
			for name, raw := range pl.Outputs {
				p, err := storepath.FromBare(raw)
				if err != nil {
					return nil, fmt.Errorf("lockfile: %s: package %q output %q: %w", path, attr, name, err)
				}
				outputs[name] = p
			}
			converted[attr] = PackageLock{InputHash: pl.InputHash, Outputs: outputs}
		}
		lf.Systems[sys] = converted
	}
	return lf, nil
}

// WriteDir writes the lockfile to dir/unnix.lock.json, pretty-printed
// with a one-space indent and a trailing newline.
func (lf *Lockfile) WriteDir(dir string) error {
	wire := lockfileWire{Version: lf.Version, Systems: make(map[string]map[string]packageLockWire, len(lf.Systems))}
	for sys, pkgs := range lf.Systems {
		converted := make(map[string]packageLockWire, len(pkgs))
		for attr, pl := range pkgs {
			outputs := make(map[string]string, len(pl.Outputs))
			for name, p := range pl.Outputs {
				outputs[name] = p.Base()
			}
			converted[attr] = packageLockWire{InputHash: pl.InputHash, Outputs: outputs}
		}
		wire.Systems[sys] = converted
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", " ")
	if err := enc.Encode(wire); err != nil {
		return fmt.Errorf("lockfile: encoding: %w", err)
	}

	path := dir + "/" + FileName
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("lockfile: writing %s: %w", path, err)
	}
	return nil
}

// Add looks up a package's lock entry for a system for reuse: if an
// existing entry's input hash matches newHash, it is returned with
// ok=true; otherwise ok is false and the caller must resolve fresh
// outputs and call Set. Add itself never modifies lf.
func (lf *Lockfile) Add(system, attribute string, newHash Hash) (reuse PackageLock, ok bool) {
	pkgs, exists := lf.Systems[system]
	if !exists {
		return PackageLock{}, false
	}
	existing, exists := pkgs[attribute]
	if !exists || existing.InputHash != newHash {
		return PackageLock{}, false
	}
	return existing, true
}

// Set pins attribute's resolved outputs for system.
func (lf *Lockfile) Set(system, attribute string, lock PackageLock) {
	pkgs, exists := lf.Systems[system]
	if !exists {
		pkgs = make(Packages)
		lf.Systems[system] = pkgs
	}
	pkgs[attribute] = lock
}
