package recovery

import (
	"regexp"
	"strings"
)

// NativeAnalysis is the local, dependency-free substitute produced when no
// capability backend can analyze the requirement text.
type NativeAnalysis struct {
	Components []string `json:"components"`
	Keywords   []string `json:"keywords"`
	Complexity string   `json:"complexity"`
	Source     string   `json:"source"`
}

// componentPattern matches the well-known building blocks a requirement
// typically mentions.
var componentPattern = regexp.MustCompile(`(?i)\b(auth\w*|login|user\w*|database|storage|api|ui|dashboard|interface|payment\w*|search|report\w*|notification\w*|integration\w*|admin\w*|analytics)\b`)

// importantKeywords flag cross-cutting concerns worth surfacing even without
// a full decomposition.
var importantKeywords = []string{
	"secure", "security", "sso", "scalable", "realtime", "real-time",
	"compliance", "audit", "performance", "migration", "responsive",
}

// AnalyzeNative extracts components and keywords from the requirement text
// and classifies its complexity by length. It is intentionally crude: a
// placeholder that keeps the workflow moving, not a replacement for a real
// capability backend.
func AnalyzeNative(requirement string) NativeAnalysis {
	lower := strings.ToLower(requirement)

	seen := map[string]bool{}
	var components []string
	for _, m := range componentPattern.FindAllString(lower, -1) {
		if !seen[m] {
			seen[m] = true
			components = append(components, m)
		}
	}

	var keywords []string
	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			keywords = append(keywords, kw)
		}
	}

	words := len(strings.Fields(requirement))
	complexity := "complex"
	switch {
	case words < 20:
		complexity = "simple"
	case words < 100:
		complexity = "moderate"
	}

	return NativeAnalysis{
		Components: components,
		Keywords:   keywords,
		Complexity: complexity,
		Source:     "native",
	}
}
