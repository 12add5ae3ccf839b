// Package progress implements unnix's progress sink: an open-ended
// counter suitable for a closure fetch whose total size is discovered
// incrementally as references are unpacked.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Sink is a progress indicator whose length can grow while fetching
// proceeds, unlike a fixed-total progress bar.
type Sink struct {
	writer    io.Writer
	message   string
	mu        sync.Mutex
	length    int
	completed int
	enabled   bool
	lastWidth int
}

// New creates a Sink writing to w, initially empty and enabled.
func New(w io.Writer, message string) *Sink {
	return &Sink{writer: w, message: message, enabled: true}
}

// SetEnabled toggles whether the sink renders anything.
func (s *Sink) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// SetLength sets the total item count outright.
func (s *Sink) SetLength(n int) {
	s.mu.Lock()
	s.length = n
	completed, length, enabled := s.completed, s.length, s.enabled
	s.mu.Unlock()
	if enabled && length > 0 {
		s.renderValues(completed, length)
	}
}

// IncLength grows the total item count by delta, used when a fetch
// discovers new references to add to the closure mid-flight.
func (s *Sink) IncLength(delta int) {
	s.mu.Lock()
	s.length += delta
	completed, length, enabled := s.completed, s.length, s.enabled
	s.mu.Unlock()
	if enabled && length > 0 {
		s.renderValues(completed, length)
	}
}

// IncCompleted advances the completed count by delta and re-renders.
func (s *Sink) IncCompleted(delta int) {
	s.mu.Lock()
	s.completed += delta
	completed, length, enabled := s.completed, s.length, s.enabled
	s.mu.Unlock()
	if enabled && length > 0 {
		s.renderValues(completed, length)
	}
}

// Done marks the sink complete and emits a trailing newline.
func (s *Sink) Done() {
	s.mu.Lock()
	s.completed = s.length
	completed, length, enabled := s.completed, s.length, s.enabled
	s.mu.Unlock()
	if enabled && length > 0 {
		s.renderValues(completed, length)
		_, _ = fmt.Fprintln(s.writer)
	}
}

// Clear erases the current progress line, useful before printing
// other output that shouldn't be interleaved with the progress bar.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled && s.lastWidth > 0 {
		_, _ = fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", s.lastWidth))
	}
}

func (s *Sink) renderValues(completed, length int) {
	percentage := float64(completed) / float64(length) * 100
	line := fmt.Sprintf("\r%s: %d/%d (%.0f%%)", s.message, completed, length, percentage)

	s.mu.Lock()
	if len(line) < s.lastWidth {
		line += strings.Repeat(" ", s.lastWidth-len(line))
	}
	s.lastWidth = len(line)
	s.mu.Unlock()

	_, _ = fmt.Fprint(s.writer, line)
	if f, ok := s.writer.(*os.File); ok {
		_ = f.Sync()
	}
}
