// Package narinfo parses the narinfo metadata documents binary
// caches serve alongside each archive: a small line-oriented
// key:value format naming the archive's compression, URL, and the
// store paths it references.
package narinfo

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/unnix/unnix/internal/archive"
	"github.com/unnix/unnix/internal/storepath"
)

// Info is the subset of a narinfo document unnix needs to fetch and
// unpack an archive. Unrecognized keys (StorePath, FileHash, FileSize,
// NarHash, NarSize, Deriver, Sig, ...) are parsed and silently
// ignored, as the original implementation's narinfo parser does.
// References is kept exactly as the document lists it, including a
// self-reference to StorePath when a cache chooses to list one.
type Info struct {
	Compression archive.Compression
	References  []storepath.Path
	URL         string
}

// Parse reads a narinfo document from r (typically an HTTP response
// body for "<hash>.narinfo"). It requires Compression, URL, and
// References to all be present, the way the original's bails.
func Parse(r interface{ Read([]byte) (int, error) }) (Info, error) {
	scanner := bufio.NewScanner(r)

	var (
		info          Info
		haveCompr     bool
		haveURL       bool
		haveReference bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}

		switch key {
		case "URL":
			info.URL = value
			haveURL = true
		case "Compression":
			c, err := archive.ParseCompression(value)
			if err != nil {
				return Info{}, fmt.Errorf("narinfo: %w", err)
			}
			info.Compression = c
			haveCompr = true
		case "References":
			haveReference = true
			if strings.TrimSpace(value) == "" {
				continue
			}
			for _, name := range strings.Fields(value) {
				p, err := storepath.FromBare(name)
				if err != nil {
					return Info{}, fmt.Errorf("narinfo: invalid reference %q: %w", name, err)
				}
				info.References = append(info.References, p)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Info{}, fmt.Errorf("narinfo: %w", err)
	}

	if !haveCompr || !haveURL || !haveReference {
		return Info{}, fmt.Errorf("narinfo: not all required fields found")
	}

	return info, nil
}
