package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePayload_TypedShapes(t *testing.T) {
	d := DecodePayload(Decomposition, `{"components":["auth"],"risks":["lockout"],"complexity":"moderate"}`)
	dec, ok := d.(DecompositionResult)
	assert.True(t, ok)
	assert.Equal(t, []string{"auth"}, dec.Components)

	v := DecodePayload(Validation, `{"constraints":["needs SAML"],"verified":[]}`)
	val, ok := v.(ValidationResult)
	assert.True(t, ok)
	assert.Equal(t, []string{"needs SAML"}, val.Constraints)
}

func TestDecodePayload_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"outline\":[\"login form\"],\"notes\":\"\"}\n```"
	p, ok := DecodePayload(Prototyping, raw).(PrototypeResult)
	assert.True(t, ok)
	assert.Equal(t, []string{"login form"}, p.Outline)
}

func TestDecodePayload_UnparsableDegradesToRawText(t *testing.T) {
	raw := "The requirement needs an auth service and a database."
	assert.Equal(t, raw, DecodePayload(Decomposition, raw))
}

func TestPromptFor_UnknownCapabilityGetsGenericPrompt(t *testing.T) {
	assert.NotEmpty(t, PromptFor("estimation"))
	assert.NotEqual(t, PromptFor("estimation"), PromptFor(Decomposition))
}
