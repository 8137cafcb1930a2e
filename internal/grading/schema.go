package grading

import (
	"fmt"

	"github.com/jonathan/exam-grader/internal/llm"
)

// OutputSchema is the structure the grading model must return. It mirrors
// the embedded grading JSON Schema that validates the response.
func OutputSchema(maxScore float64) llm.OutputSchema {
	return llm.OutputSchema{
		Preamble: "You are an experienced examiner grading a student's exam copy. Base every judgement on the student's text; do not credit answers that are not there.",
		Fields: []llm.OutputField{
			{Name: "score", Type: "number", Hint: fmt.Sprintf("total between 0 and %g", maxScore), Required: true},
			{Name: "feedback", Type: `"string"`, Hint: "two to four sentences addressed to the student", Required: true},
			{
				Name:     "annotations",
				Type:     `[{"question": "string", "comment": "string", "points": number}]`,
				Hint:     "one entry per question or section with the points awarded",
				Required: true,
			},
			{Name: "competencies", Type: `{"competency": integer}`, Hint: "mastery from 0 to 5 for each competency assessed"},
			{Name: "student_name", Type: `"string"`, Hint: "name written on the copy, empty when absent"},
		},
	}
}
