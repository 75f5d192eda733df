package session

import "time"

// Phase identifies one step of the fixed workflow sequence.
type Phase int

const (
	// PhaseDiscovery captures and refines the requirement text.
	PhaseDiscovery Phase = iota
	// PhaseQuestions walks the user through the clarification questions.
	PhaseQuestions
	// PhaseAnalysis runs the capability dispatch over the requirement.
	PhaseAnalysis
	// PhaseSynthesis assembles the final specification.
	PhaseSynthesis
)

// PhaseCount is the length of the fixed phase sequence; each phase carries
// an equal share of overall progress.
const PhaseCount = 4

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseDiscovery:
		return "discovery"
	case PhaseQuestions:
		return "questions"
	case PhaseAnalysis:
		return "analysis"
	case PhaseSynthesis:
		return "synthesis"
	default:
		return "unknown"
	}
}

// Answer is one recorded, pre-normalized answer.
type Answer struct {
	Value string    `json:"value"`
	At    time.Time `json:"at"`
}

// CapabilityResult is one recorded capability outcome.
type CapabilityResult struct {
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Progress is the session's completion snapshot.
type Progress struct {
	Overall  float64   `json:"overall"`
	PerPhase []float64 `json:"per_phase"`
}

// Session is the durable record of one in-progress workflow. It is a plain
// data record: the Manager is its single writer and guards all access.
type Session struct {
	ID          string                      `json:"id"`
	Started     time.Time                   `json:"started"`
	LastUpdate  time.Time                   `json:"last_update"`
	Phase       Phase                       `json:"phase"`
	Requirement string                      `json:"requirement"`
	Answers     map[string]Answer           `json:"answers"`
	Results     map[string]CapabilityResult `json:"results"`
	Progress    Progress                    `json:"progress"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		Started:    now,
		LastUpdate: now,
		Phase:      PhaseDiscovery,
		Answers:    map[string]Answer{},
		Results:    map[string]CapabilityResult{},
		Progress:   Progress{PerPhase: make([]float64, PhaseCount)},
	}
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Answers = make(map[string]Answer, len(s.Answers))
	for k, v := range s.Answers {
		clone.Answers[k] = v
	}
	clone.Results = make(map[string]CapabilityResult, len(s.Results))
	for k, v := range s.Results {
		clone.Results[k] = v
	}
	clone.Progress.PerPhase = make([]float64, len(s.Progress.PerPhase))
	copy(clone.Progress.PerPhase, s.Progress.PerPhase)
	return &clone
}
