package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"score\": 14}\n```",
			expected: `{"score": 14}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"score\": 14}\n```",
			expected: `{"score": 14}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"score\": 14}\n```",
			expected: `{"score": 14}`,
		},
		{
			name:     "plain JSON",
			input:    `{"score": 14}`,
			expected: `{"score": 14}`,
		},
		{
			name:     "preamble before object",
			input:    "Here is the grading:\n{\"score\": 12.5, \"feedback\": \"Solid\"}",
			expected: `{"score": 12.5, "feedback": "Solid"}`,
		},
		{
			name:     "trailing commentary",
			input:    "{\"score\": 9}\n\nLet me know if you need anything else!",
			expected: `{"score": 9}`,
		},
		{
			name:     "braces inside strings",
			input:    `Result: {"feedback": "Use {x} and \"y\""}`,
			expected: `{"feedback": "Use {x} and \"y\""}`,
		},
		{
			name:     "array payload",
			input:    "Items:\n[\"algebra\", \"geometry\"]",
			expected: `["algebra", "geometry"]`,
		},
		{
			name:     "no JSON at all",
			input:    "  not json  ",
			expected: "not json",
		},
		{
			name:     "unbalanced object",
			input:    `{"score": 3`,
			expected: `{"score": 3`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`{"a": {"b": 1}} tail`))
	assert.Equal(t, "", extractJSONObject(""))
	assert.Equal(t, "", extractJSONObject("not json"))
	assert.Equal(t, "", extractJSONObject(`{"open": true`))
}

func TestExtractJSONArray(t *testing.T) {
	assert.Equal(t, `[[1, 2], [3]]`, extractJSONArray(`[[1, 2], [3]] extra`))
	assert.Equal(t, `[{"id": "]"}]`, extractJSONArray(`[{"id": "]"}]`))
	assert.Equal(t, "", extractJSONArray("nope"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10, "..."))
	assert.Equal(t, "abc...", Truncate("abcdef", 3, "..."))
	assert.Equal(t, "éà…", Truncate("éàü", 2, "…"), "counts runes, not bytes")
	assert.Equal(t, "abcdef", Truncate("abcdef", 0, "..."), "non-positive limit disables truncation")
}
