// Package session owns the recording lifecycle of a practice session and the
// in-memory history of completed ones. A Controller drives a single capture
// stream from Idle to Recording and back, scores the settled transcript, and
// appends the result to a History store.
//
// History is deliberately volatile. Records live for the lifetime of the
// process and are gone on restart.
package session

import (
	"sync"
	"time"

	"github.com/voxprep/voxprep/internal/grammar"
	"github.com/voxprep/voxprep/pkg/fluency"
)

// Record is one completed practice session. Immutable once stored.
type Record struct {
	// ID uniquely identifies the session within this process.
	ID string `json:"id"`

	// Transcript is the settled text the score was computed from.
	Transcript string `json:"transcript"`

	// Duration is how long the speaker was recording.
	Duration time.Duration `json:"duration"`

	// Report is the full fluency analysis of the transcript.
	Report fluency.ExtendedReport `json:"report"`

	// Grammar holds suggestions from the grammar service, nil when the
	// service was unavailable or found nothing.
	Grammar []grammar.Suggestion `json:"grammar,omitempty"`

	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// History is a thread-safe in-memory store of completed sessions, most recent
// first. A cap > 0 bounds the number of retained records; older records are
// evicted as new ones arrive.
type History struct {
	mu      sync.RWMutex
	records []Record
	cap     int
}

// NewHistory creates a History retaining at most cap records. cap <= 0 means
// unbounded.
func NewHistory(cap int) *History {
	return &History{cap: cap}
}

// Add prepends r to the history, evicting the oldest record if the cap is
// exceeded.
func (h *History) Add(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]Record{r}, h.records...)
	if h.cap > 0 && len(h.records) > h.cap {
		h.records = h.records[:h.cap]
	}
}

// Recent returns up to n records, most recent first. n <= 0 returns all
// records. The returned slice is a copy; callers may not mutate stored
// records through it.
func (h *History) Recent(n int) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]Record, n)
	copy(out, h.records[:n])
	return out
}

// Len returns the number of stored records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Clear removes all records.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}
