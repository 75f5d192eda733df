package capability

import (
	"encoding/json"
	"strings"
)

// prompts instruct hosted-model backends to answer in the payload shapes the
// orchestrator knows how to derive insights from.
var prompts = map[string]string{
	Decomposition: "You analyze software requirements. Break the requirement into its components, " +
		"list concrete delivery risks, and estimate complexity as simple, moderate or complex. " +
		`Respond with JSON only: {"components":[],"risks":[],"complexity":""}`,
	Prototyping: "You sketch user interfaces. Outline the screens and elements the requirement needs " +
		`and add brief notes. Respond with JSON only: {"outline":[],"notes":""}`,
	Validation: "You validate technical feasibility. List hard technical constraints and the libraries " +
		`or approaches you could verify. Respond with JSON only: {"constraints":[],"verified":[]}`,
}

// PromptFor returns the system prompt a hosted-model backend should use for
// the named capability.
func PromptFor(name string) string {
	if p, ok := prompts[name]; ok {
		return p
	}
	return "You analyze software requirements. Respond concisely."
}

// DecodePayload parses a model's raw text answer into the typed payload for
// the named capability. Unparsable answers degrade to the raw text: a
// readable answer is still a usable result.
func DecodePayload(name, raw string) any {
	trimmed := stripFences(raw)
	switch name {
	case Decomposition:
		var d DecompositionResult
		if err := json.Unmarshal([]byte(trimmed), &d); err == nil {
			return d
		}
	case Prototyping:
		var p PrototypeResult
		if err := json.Unmarshal([]byte(trimmed), &p); err == nil {
			return p
		}
	case Validation:
		var v ValidationResult
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return raw
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
