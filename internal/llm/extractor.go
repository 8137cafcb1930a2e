package llm

import (
	"fmt"
	"strings"
)

// OutputSchema describes the JSON object a structured prompt asks for.
type OutputSchema struct {
	Preamble string
	Fields   []OutputField
}

// OutputField is one key of the expected object. Type is a hint shown to the
// model verbatim, "string" when empty.
type OutputField struct {
	Name     string
	Type     string
	Hint     string
	Required bool
}

// StructuredPrompt renders the schema followed by the input, fenced and labelled.
func StructuredPrompt(schema OutputSchema, label, input string) string {
	var sb strings.Builder

	if schema.Preamble != "" {
		sb.WriteString(schema.Preamble)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	lines := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		typ := f.Type
		if typ == "" {
			typ = "string"
		}
		line := fmt.Sprintf("  %q: %s", f.Name, typ)
		if f.Required {
			line += " (required)"
		}
		if f.Hint != "" {
			line += " // " + f.Hint
		}
		lines[i] = line
	}
	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n}\n\n")

	sb.WriteString("Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")
	fmt.Fprintf(&sb, "%s:\n\"\"\"\n%s\n\"\"\"\n", label, input)
	return sb.String()
}
