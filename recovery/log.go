package recovery

import (
	"sync"
	"time"
)

// Record is one handled error in the bounded log.
type Record struct {
	At        time.Time `json:"at"`
	Kind      Kind      `json:"kind"`
	Context   string    `json:"context,omitempty"`
	Recovered bool      `json:"recovered"`
}

// ring is a fixed-capacity circular buffer of records; the oldest entry is
// dropped first once the capacity is reached.
type ring struct {
	mu   sync.Mutex
	buf  []Record
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Record, capacity)}
}

func (r *ring) append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns the retained records ordered oldest to newest.
func (r *ring) snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]Record, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]Record, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Stats aggregates the retained log window.
type Stats struct {
	Total        int          `json:"total"`
	Recovered    int          `json:"recovered"`
	RecoveryRate float64      `json:"recovery_rate"`
	ByKind       map[Kind]int `json:"by_kind"`
}

// Records returns the retained error records, oldest first.
func (h *Handler) Records() []Record {
	return h.records.snapshot()
}

// Stats derives recovery-rate and per-kind counts from the retained window.
func (h *Handler) Stats() Stats {
	records := h.records.snapshot()
	s := Stats{Total: len(records), ByKind: map[Kind]int{}}
	for _, rec := range records {
		s.ByKind[rec.Kind]++
		if rec.Recovered {
			s.Recovered++
		}
	}
	if s.Total > 0 {
		s.RecoveryRate = float64(s.Recovered) / float64(s.Total)
	}
	return s
}
