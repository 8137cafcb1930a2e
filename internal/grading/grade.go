// Package grading grades the extracted text of a copy with the LLM and turns the
// validated response into a correction (score, annotations, competencies).
package grading

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/prompts"
	"github.com/jonathan/exam-grader/internal/schemas"
	"github.com/jonathan/exam-grader/internal/types"
)

const (
	// ExtractedContentChars is how much of the copy text is kept in annotations.
	ExtractedContentChars = 500
	// maxAttempts bounds calls when the response does not match the schema.
	maxAttempts = 2
)

// Annotation keys set on every corrected copy.
const (
	AnnotationFeedback         = "feedback"
	AnnotationQuestions        = "questions"
	AnnotationExtractedContent = "extracted_content"
	AnnotationCompetencies     = "competencies"
	AnnotationTruncated        = "truncated"
)

// QuestionAnnotation is the grader's comment on one question.
type QuestionAnnotation struct {
	Question string   `json:"question,omitempty"`
	Comment  string   `json:"comment"`
	Points   *float64 `json:"points,omitempty"`
}

// Output is the JSON structure returned by the grading model.
type Output struct {
	Score        float64              `json:"score"`
	Feedback     string               `json:"feedback"`
	Annotations  []QuestionAnnotation `json:"annotations"`
	Competencies map[string]int       `json:"competencies,omitempty"`
	StudentName  string               `json:"student_name,omitempty"`
}

// Grader grades copies through an LLM.
type Grader struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewGrader creates a Grader using the advanced tier.
func NewGrader(client llm.Client) *Grader {
	return &Grader{client: client, tier: llm.TierAdvanced}
}

// Grade grades the text of a copy for an exam.
func (g *Grader) Grade(ctx context.Context, exam *types.Exam, text string, truncated bool) (*types.Correction, error) {
	maxScore := exam.MaxScore
	if maxScore <= 0 {
		maxScore = types.DefaultMaxScore
	}

	prompt, err := BuildPrompt(exam, maxScore, text)
	if err != nil {
		return nil, err
	}

	var output *Output
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, err := g.client.GenerateJSON(ctx, prompt, g.tier)
		if err != nil {
			return nil, &APICallError{Message: "failed to generate grading", Cause: err}
		}
		output, lastErr = ParseOutput(response)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[grading] attempt %d/%d returned an invalid response: %v", attempt, maxAttempts, lastErr)
	}
	if lastErr != nil {
		return nil, lastErr
	}

	return BuildCorrection(output, maxScore, text, truncated), nil
}

// BuildPrompt renders the grading prompt for an exam and the copy text.
func BuildPrompt(exam *types.Exam, maxScore float64, text string) (string, error) {
	answerKey := strings.TrimSpace(exam.AnswerKey)
	if answerKey == "" {
		fallback, err := prompts.Get(prompts.GradingFile, "no-answer-key")
		if err != nil {
			return "", err
		}
		answerKey = fallback
	}
	description := strings.TrimSpace(exam.Description)
	if description == "" {
		description = "(none)"
	}

	return prompts.Render(prompts.GradingFile, "grade-copy", map[string]string{
		"Course":      exam.Course,
		"Date":        exam.Date.String(),
		"MaxScore":    strconv.FormatFloat(maxScore, 'f', -1, 64),
		"Description": description,
		"AnswerKey":   answerKey,
		"Structure":   llm.StructuredPrompt(OutputSchema(maxScore), "Student copy", text),
	})
}

// ParseOutput validates a grading response against the grading schema and decodes it.
func ParseOutput(response string) (*Output, error) {
	payload := []byte(llm.CleanJSONBlock(response))
	if err := schemas.Validate(schemas.Grading, payload); err != nil {
		return nil, &ParseError{Message: "grading response does not match schema", Cause: err}
	}

	var out Output
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &ParseError{Message: "failed to decode grading response", Cause: err}
	}
	return &out, nil
}

// extractedPreview is the start of the copy text, always ending in "...".
func extractedPreview(text string) string {
	return llm.Truncate(text, ExtractedContentChars, "") + "..."
}

// BuildCorrection turns a validated output into the stored correction.
func BuildCorrection(out *Output, maxScore float64, text string, truncated bool) *types.Correction {
	competencies := NormalizeCompetencies(out.Competencies)

	questions := make([]map[string]any, 0, len(out.Annotations))
	for _, a := range out.Annotations {
		q := map[string]any{"comment": strings.TrimSpace(a.Comment)}
		if a.Question != "" {
			q["question"] = strings.TrimSpace(a.Question)
		}
		if a.Points != nil {
			q["points"] = ClampScore(*a.Points, maxScore)
		}
		questions = append(questions, q)
	}

	annotations := map[string]any{
		AnnotationFeedback:         strings.TrimSpace(out.Feedback),
		AnnotationQuestions:        questions,
		AnnotationExtractedContent: extractedPreview(text),
	}
	if competencies != nil {
		annotations[AnnotationCompetencies] = competencies
	}
	if truncated {
		annotations[AnnotationTruncated] = true
	}

	return &types.Correction{
		Grade:         ClampScore(out.Score, maxScore),
		Annotations:   annotations,
		Competencies:  competencies,
		ExtractedText: text,
		StudentName:   strings.TrimSpace(out.StudentName),
	}
}
