package capability

import (
	"fmt"
	"time"
)

// Result is the outcome of one capability within a dispatch batch: either a
// genuine success (Data), a cached success (Data + Cached), or a failure
// carrying the capability-specific fallback payload.
type Result struct {
	Capability string        `json:"capability"`
	Success    bool          `json:"success"`
	Data       any           `json:"data,omitempty"`
	Fallback   string        `json:"fallback,omitempty"`
	Cached     bool          `json:"cached"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Report is the merged outcome of one dispatch batch. Success is true iff at
// least one capability produced a genuine, non-fallback result.
type Report struct {
	Success  bool              `json:"success"`
	Results  map[string]Result `json:"results"`
	Insights []string          `json:"insights,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// fallbackPayloads are the placeholder instructions substituted when a
// capability fails after exhausting its retries.
var fallbackPayloads = map[string]string{
	Decomposition: "use native analysis",
	Prototyping:   "use manual specification",
	Validation:    "use web search",
}

// fallbackFor returns the fallback payload for a capability name.
func fallbackFor(name string) string {
	if p, ok := fallbackPayloads[name]; ok {
		return p
	}
	return "retry the analysis manually"
}

// deriveInsights inspects well-known payload shapes and summarizes what
// deserves the workflow's attention.
func deriveInsights(results map[string]Result) []string {
	var insights []string
	if r, ok := results[Decomposition]; ok && r.Success {
		if d, ok := r.Data.(DecompositionResult); ok && len(d.Risks) > 0 {
			insights = append(insights, fmt.Sprintf("%d risk(s) requiring attention", len(d.Risks)))
		}
	}
	if r, ok := results[Validation]; ok && r.Success {
		if v, ok := r.Data.(ValidationResult); ok && len(v.Constraints) > 0 {
			insights = append(insights, fmt.Sprintf("%d technical constraint(s) found", len(v.Constraints)))
		}
	}
	return insights
}
