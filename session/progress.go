package session

import (
	"fmt"
	"math"
	"strings"
)

// computeProgress derives the overall and per-phase percentages. Each of the
// four phases carries an equal share; completed phases contribute their full
// share, the question phase scales by answered/total while current.
func computeProgress(s *Session, questionsTotal int) Progress {
	per := make([]float64, PhaseCount)
	for i := 0; i < int(s.Phase) && i < PhaseCount; i++ {
		per[i] = 100
	}
	if s.Phase == PhaseQuestions && questionsTotal > 0 {
		share := float64(len(s.Answers)) / float64(questionsTotal) * 100
		if share > 100 {
			share = 100
		}
		per[PhaseQuestions] = share
	}

	var overall float64
	for _, p := range per {
		overall += p
	}
	overall /= PhaseCount

	return Progress{Overall: overall, PerPhase: per}
}

// RenderBar renders a fixed-width progress bar for pct, e.g.
// [██████░░░░░░░░░░░░░░] 33%. Filled segments = round(pct * width / 100).
func RenderBar(pct float64, width int) string {
	if width <= 0 {
		width = 20
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(math.Round(pct * float64(width) / 100))
	return fmt.Sprintf("[%s%s] %.0f%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		pct,
	)
}
