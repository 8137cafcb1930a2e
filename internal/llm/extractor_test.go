package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredPrompt(t *testing.T) {
	schema := OutputSchema{
		Preamble: "Describe the copy.",
		Fields: []OutputField{
			{Name: "score", Type: "number", Hint: "points", Required: true},
			{Name: "notes"},
		},
	}

	prompt := StructuredPrompt(schema, "Student copy", "x = 42")

	assert.Contains(t, prompt, "Describe the copy.\n\n")
	assert.Contains(t, prompt, `"score": number (required) // points,`)
	assert.Contains(t, prompt, "  \"notes\": string\n}")
	assert.Contains(t, prompt, "Student copy:\n\"\"\"\nx = 42\n\"\"\"")
}

func TestStructuredPrompt_NoPreamble(t *testing.T) {
	prompt := StructuredPrompt(OutputSchema{Fields: []OutputField{{Name: "a"}}}, "Input", "")

	assert.True(t, len(prompt) > 0 && prompt[:6] == "Return")
}
