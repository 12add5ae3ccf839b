// Package logging provides unnix's leveled diagnostic logger, gated
// by the UNNIX_LOG environment variable and the --verbose flag.
// Output always goes to stderr so it never pollutes stdout contracts
// like `print env`.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level is the verbosity level for diagnostic output.
type Level int

const (
	// LevelQuiet suppresses all diagnostic output.
	LevelQuiet Level = iota
	// LevelInfo shows high-level progress: lock decisions, failed cache
	// queries, fetch summaries.
	LevelInfo
	// LevelDebug adds per-path detail: narinfo lookups, unpack steps.
	LevelDebug
	// LevelTrace additionally enables Trace output.
	LevelTrace
)

var (
	mu      sync.RWMutex
	enabled bool
	level   = LevelInfo
	writer  io.Writer = os.Stderr
)

// Enable turns on diagnostic output.
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
}

// SetLevel sets the verbosity level directly.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetWriter redirects output, used by tests to capture log lines.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	writer = w
}

// ConfigureFromEnv reads UNNIX_LOG and sets the level accordingly.
// Recognized values: "debug", "trace"; anything else enables at
// LevelInfo. An unset or empty variable leaves logging disabled.
func ConfigureFromEnv(value string) {
	if value == "" {
		return
	}
	Enable()
	switch strings.ToLower(value) {
	case "trace":
		SetLevel(LevelTrace)
	case "debug":
		SetLevel(LevelDebug)
	default:
		SetLevel(LevelInfo)
	}
}

func atLevel(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled && level >= l
}

func printf(l Level, format string, args ...interface{}) {
	if !atLevel(l) {
		return
	}
	mu.RLock()
	w := writer
	mu.RUnlock()
	fmt.Fprintf(w, "[unnix] "+format+"\n", args...)
}

// Info logs a high-level progress message (cache queries, resolve
// decisions).
func Info(format string, args ...interface{}) { printf(LevelInfo, format, args...) }

// Debug logs a per-path detail message (narinfo fetched, path unpacked).
func Debug(format string, args ...interface{}) { printf(LevelDebug, format, args...) }

// Trace logs the finest-grained detail, shown only at LevelTrace.
func Trace(format string, args ...interface{}) { printf(LevelTrace, format, args...) }

// LockReused logs that an existing lock entry was kept because its
// input hash was unchanged.
func LockReused(system, attribute string) {
	Info("lock: reusing %s on %s (input unchanged)", attribute, system)
}

// LockRefetched logs that a package's lock entry was refreshed.
func LockRefetched(system, attribute string) {
	Info("lock: resolving %s on %s", attribute, system)
}

// CacheQueried logs a narinfo lookup against a specific cache.
func CacheQueried(cache, path string, found bool) {
	Debug("cache %s: narinfo for %s found=%v", cache, path, found)
}

// PathUnpacked logs that a store path finished unpacking.
func PathUnpacked(path string) {
	Debug("unpacked %s", path)
}

// ClosureFetched logs the summary of a completed closure fetch.
func ClosureFetched(count int) {
	Info("fetched %d store paths", count)
}

// CacheFailed logs a non-404 failure against one cache before falling
// through to the next configured cache.
func CacheFailed(cache, path string, err error) {
	Info("cache %s: querying %s failed, trying next cache: %v", cache, path, err)
}
