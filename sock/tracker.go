package sock

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Tracker is notified when handles are created and destroyed.
type Tracker interface {
	Track(h *Handle, file string, line int)
	Untrack(h *Handle)
}

// Leak describes a handle that has not been destroyed.
type Leak struct {
	Type Type   `json:"type"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// LeakTracker records where each open handle was created.
type LeakTracker struct {
	mu   sync.Mutex
	open map[*Handle]Leak
}

// NewLeakTracker creates an empty tracker.
func NewLeakTracker() *LeakTracker {
	return &LeakTracker{open: make(map[*Handle]Leak)}
}

// Track records h as open.
func (t *LeakTracker) Track(h *Handle, file string, line int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[h] = Leak{Type: h.typ, File: file, Line: line}
}

// Untrack forgets h.
func (t *LeakTracker) Untrack(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, h)
}

// Leaks returns the open handles ordered by creation site.
func (t *LeakTracker) Leaks() []Leak {
	t.mu.Lock()
	leaks := make([]Leak, 0, len(t.open))
	for _, leak := range t.open {
		leaks = append(leaks, leak)
	}
	t.mu.Unlock()

	sort.Slice(leaks, func(i, j int) bool {
		if leaks[i].File != leaks[j].File {
			return leaks[i].File < leaks[j].File
		}
		return leaks[i].Line < leaks[j].Line
	})
	return leaks
}

// Report logs every open handle and returns how many there were.
func (t *LeakTracker) Report(logger zerolog.Logger) int {
	leaks := t.Leaks()
	for _, leak := range leaks {
		logger.Warn().
			Str("type", leak.Type.String()).
			Str("file", leak.File).
			Int("line", leak.Line).
			Msg("dangling socket")
	}
	return len(leaks)
}
