package capability

import (
	"sync/atomic"
	"time"
)

// counters are updated atomically; observed stats are eventually consistent.
type counters struct {
	total      atomic.Uint64
	successes  atomic.Uint64
	failures   atomic.Uint64
	timeouts   atomic.Uint64
	totalNanos atomic.Int64
}

func (c *counters) record(dur time.Duration, success, timedOut bool) {
	c.total.Add(1)
	c.totalNanos.Add(int64(dur))
	if success {
		c.successes.Add(1)
		return
	}
	c.failures.Add(1)
	if timedOut {
		c.timeouts.Add(1)
	}
}

// Stats is an observability snapshot of the orchestrator.
type Stats struct {
	Total      uint64        `json:"total"`
	Successes  uint64        `json:"successes"`
	Failures   uint64        `json:"failures"`
	Timeouts   uint64        `json:"timeouts"`
	AvgLatency time.Duration `json:"avg_latency"`
}

// Stats returns a point-in-time snapshot of the call counters.
func (o *Orchestrator) Stats() Stats {
	total := o.stats.total.Load()
	s := Stats{
		Total:     total,
		Successes: o.stats.successes.Load(),
		Failures:  o.stats.failures.Load(),
		Timeouts:  o.stats.timeouts.Load(),
	}
	if total > 0 {
		s.AvgLatency = time.Duration(o.stats.totalNanos.Load() / int64(total))
	}
	return s
}
