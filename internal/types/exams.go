package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxScore is the grading scale used when an exam does not set one.
const DefaultMaxScore = 20.0

// dateLayout is the wire format of exam dates.
const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return Date{Time: t}, nil
}

// String implements fmt.Stringer
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == "null" || str == `""` {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	// Accept full timestamps from clients that serialize Date objects.
	if len(raw) > len(dateLayout) {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return nil
		}
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Exam is an exam session whose copies are graded together.
type Exam struct {
	ID          uuid.UUID  `json:"id"`
	Course      string     `json:"course"`
	Date        Date       `json:"date"`
	MaxScore    float64    `json:"max_score"`
	Description string     `json:"description,omitempty"`
	AnswerKey   string     `json:"answer_key,omitempty"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateExamRequest is the body of POST /exams.
type CreateExamRequest struct {
	Course      string   `json:"course" validate:"required,min=1,max=200"`
	Date        Date     `json:"date"`
	MaxScore    *float64 `json:"max_score,omitempty" validate:"omitempty,gt=0"`
	Description string   `json:"description,omitempty"`
	AnswerKey   string   `json:"answer_key,omitempty"`
}

// UpdateExamRequest is the body of PATCH /exams/{id}. Nil fields are left unchanged.
type UpdateExamRequest struct {
	Course      *string  `json:"course,omitempty" validate:"omitempty,min=1,max=200"`
	Date        *Date    `json:"date,omitempty"`
	MaxScore    *float64 `json:"max_score,omitempty" validate:"omitempty,gt=0"`
	Description *string  `json:"description,omitempty"`
	AnswerKey   *string  `json:"answer_key,omitempty"`
}

// Empty reports whether the update carries no field.
func (r *UpdateExamRequest) Empty() bool {
	return r.Course == nil && r.Date == nil && r.MaxScore == nil && r.Description == nil && r.AnswerKey == nil
}

// Apply copies the set fields of the update onto exam.
func (r *UpdateExamRequest) Apply(exam *Exam) {
	if r.Course != nil {
		exam.Course = *r.Course
	}
	if r.Date != nil {
		exam.Date = *r.Date
	}
	if r.MaxScore != nil {
		exam.MaxScore = *r.MaxScore
	}
	if r.Description != nil {
		exam.Description = *r.Description
	}
	if r.AnswerKey != nil {
		exam.AnswerKey = *r.AnswerKey
	}
}

// CreateExamResponse is returned by POST /exams.
type CreateExamResponse struct {
	ExamID uuid.UUID `json:"examId"`
}
