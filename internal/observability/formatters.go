// Package observability provides formatted output utilities for the exam_grader CLI.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jonathan/exam-grader/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// barWidth is the width of a full distribution bar
	barWidth = 30
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// PrintJSON writes v as indented JSON.
func (p *Printer) PrintJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = truncate(line, boxWidth-4)
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatGrade(grade *float64, maxScore float64) string {
	if grade == nil {
		return "-"
	}
	if maxScore <= 0 {
		return fmt.Sprintf("%g", *grade)
	}
	return fmt.Sprintf("%g/%g", *grade, maxScore)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// PrintUser outputs the profile of a user.
func (p *Printer) PrintUser(user *types.User) {
	if user == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Email:  %s\n", user.Email))
	if user.FullName != "" {
		sb.WriteString(fmt.Sprintf("Name:   %s\n", user.FullName))
	}
	sb.WriteString(fmt.Sprintf("Role:   %s\n", user.Role))
	sb.WriteString(fmt.Sprintf("ID:     %s", user.ID))
	p.printBox("USER", sb.String())
}

// PrintExams outputs exams as a table.
func (p *Printer) PrintExams(exams []types.Exam) error {
	table := tablewriter.NewWriter(p.out)
	table.Header("ID", "Course", "Date", "Max score", "Created")
	for _, e := range exams {
		if err := table.Append(
			e.ID.String(),
			e.Course,
			e.Date.String(),
			fmt.Sprintf("%g", e.MaxScore),
			e.CreatedAt.Format("2006-01-02 15:04"),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintExam outputs one exam with its description and answer key excerpt.
func (p *Printer) PrintExam(exam *types.Exam) {
	if exam == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Course:     %s\n", exam.Course))
	sb.WriteString(fmt.Sprintf("Date:       %s\n", exam.Date))
	sb.WriteString(fmt.Sprintf("Max score:  %g\n", exam.MaxScore))
	sb.WriteString(fmt.Sprintf("ID:         %s\n", exam.ID))
	if exam.Description != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(exam.Description + "\n")
	}
	if exam.AnswerKey != "" {
		sb.WriteString("\nAnswer key:\n")
		lines := strings.Split(strings.TrimSpace(exam.AnswerKey), "\n")
		count := min(len(lines), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  %s\n", lines[i]))
		}
		if len(lines) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more lines\n", len(lines)-maxItemsToShow))
		}
	}

	p.printBox("EXAM", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCopies outputs copies as a table.
func (p *Printer) PrintCopies(copies []types.Copy, maxScore float64) error {
	table := tablewriter.NewWriter(p.out)
	table.Header("ID", "Student", "File", "Status", "Grade", "Error")
	for _, c := range copies {
		if err := table.Append(
			c.ID.String(),
			orDash(c.StudentName),
			orDash(c.OriginalName),
			string(c.Status),
			formatGrade(c.Grade, maxScore),
			orDash(truncate(c.Error, 40)),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintCopy outputs one copy with its feedback, per-question scores and competencies.
func (p *Printer) PrintCopy(c *types.Copy, maxScore float64) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Student:  %s\n", orDash(c.StudentName)))
	sb.WriteString(fmt.Sprintf("File:     %s\n", orDash(c.OriginalName)))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", c.Status))
	sb.WriteString(fmt.Sprintf("Grade:    %s\n", formatGrade(c.Grade, maxScore)))
	sb.WriteString(fmt.Sprintf("ID:       %s\n", c.ID))
	if c.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", c.Error))
	}

	if feedback, ok := c.Annotations["feedback"].(string); ok && feedback != "" {
		sb.WriteString("\nFeedback:\n")
		sb.WriteString(feedback + "\n")
	}

	if questions := questionList(c.Annotations["questions"]); len(questions) > 0 {
		sb.WriteString("\nQuestions:\n")
		count := min(len(questions), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString("  • " + describeQuestion(questions[i]) + "\n")
		}
		if len(questions) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(questions)-maxItemsToShow))
		}
	}

	if len(c.Competencies) > 0 {
		sb.WriteString("\nCompetencies:\n")
		names := make([]string, 0, len(c.Competencies))
		for name := range c.Competencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  • %s: %d/5\n", name, c.Competencies[name]))
		}
	}

	p.printBox("COPY", strings.TrimSuffix(sb.String(), "\n"))
}

// questionList accepts the "questions" annotation as decoded from JSON or as built in memory.
func questionList(v any) []map[string]any {
	switch qs := v.(type) {
	case []map[string]any:
		return qs
	case []any:
		out := make([]map[string]any, 0, len(qs))
		for _, q := range qs {
			if m, ok := q.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// describeQuestion renders one entry of the "questions" annotation.
func describeQuestion(q map[string]any) string {
	label, _ := q["question"].(string)
	if label == "" {
		label = "General"
	}
	if points, ok := q["points"].(float64); ok {
		label += fmt.Sprintf(" (%g pts)", points)
	}
	if comment, ok := q["comment"].(string); ok && comment != "" {
		label += ": " + comment
	}
	return label
}

// PrintUpload outputs the result of an upload.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintUpload(resp *types.UploadResponse) {
	if resp == nil {
		return
	}
	fmt.Fprintf(p.out, "Uploaded %d copies\n", resp.UploadedCount)
	for _, c := range resp.Copies {
		fmt.Fprintf(p.out, "  %s  %s\n", c.ID, orDash(c.OriginalName))
	}
}

// PrintProgress outputs one line per corrected copy of a streamed batch.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(progress types.CorrectionProgress) {
	line := fmt.Sprintf("[%d/%d] %s  %s", progress.Completed, progress.Total, progress.CopyID, progress.Status)
	if progress.Grade != nil {
		line += fmt.Sprintf("  grade %g", *progress.Grade)
	}
	if progress.Error != "" {
		line += "  " + progress.Error
	}
	fmt.Fprintln(p.out, line)
}

// PrintBatch outputs the totals of a batch correction.
func (p *Printer) PrintBatch(result *types.BatchResult) {
	if result == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Copies:     %d\n", result.Total))
	sb.WriteString(fmt.Sprintf("Corrected:  %d\n", result.Corrected))
	sb.WriteString(fmt.Sprintf("Failed:     %d", result.Failed))
	for _, c := range result.Copies {
		if c.Status == types.CopyStatusFailed {
			sb.WriteString(fmt.Sprintf("\n  ✗ %s  %s", c.ID.String()[:8], c.Error))
		}
	}
	p.printBox("BATCH CORRECTION", sb.String())
}

// PrintReport outputs the summary statistics, the grade distribution and, for
// detailed reports, one row per copy.
func (p *Printer) PrintReport(report *types.Report) error {
	if report == nil {
		return nil
	}
	s := report.Data.ReportSummary

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Course:        %s\n", s.Course))
	sb.WriteString(fmt.Sprintf("Copies:        %d (%d graded, %d pending, %d failed)\n",
		s.TotalCopies, s.GradedCopies, s.PendingCopies, s.FailedCopies))
	if s.GradedCopies > 0 {
		sb.WriteString(fmt.Sprintf("Average:       %g/%g (%g%%)\n", s.AverageGrade, s.MaxScore, s.AveragePercent))
		sb.WriteString(fmt.Sprintf("Median:        %g\n", s.MedianGrade))
		sb.WriteString(fmt.Sprintf("Min / Max:     %g / %g\n", s.MinGrade, s.MaxGrade))
		sb.WriteString(fmt.Sprintf("Std deviation: %g\n", s.StdDev))
		sb.WriteString(fmt.Sprintf("Pass rate:     %g%%\n", s.PassRate))
	}

	if len(s.GradeDistribution) > 0 {
		sb.WriteString("\nDistribution:\n")
		peak := 0
		for _, b := range s.GradeDistribution {
			peak = max(peak, b.Count)
		}
		for _, b := range s.GradeDistribution {
			bar := 0
			if peak > 0 {
				bar = b.Count * barWidth / peak
			}
			sb.WriteString(fmt.Sprintf("  %-7s %s %d\n", b.Label, strings.Repeat("█", bar), b.Count))
		}
	}

	if len(report.Data.Competencies) > 0 {
		sb.WriteString("\nCompetencies (average /5):\n")
		names := make([]string, 0, len(report.Data.Competencies))
		for name := range report.Data.Competencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  • %s: %g\n", name, report.Data.Competencies[name]))
		}
	}

	p.printBox(strings.ToUpper(report.Type)+" REPORT", strings.TrimSuffix(sb.String(), "\n"))

	if len(report.Data.Copies) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(p.out)
	table.Header("Copy", "Student", "Status", "Grade", "Percent", "Level")
	for _, row := range report.Data.Copies {
		percent := "-"
		if row.Percent != nil {
			percent = fmt.Sprintf("%g%%", *row.Percent)
		}
		if err := table.Append(
			row.CopyID.String()[:8],
			orDash(row.StudentName),
			string(row.Status),
			formatGrade(row.Grade, 0),
			percent,
			orDash(string(row.Level)),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintMessages outputs a chat transcript.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintMessages(messages []types.ChatMessage) {
	if len(messages) == 0 {
		fmt.Fprintln(p.out, "(no messages)")
		return
	}
	for _, m := range messages {
		fmt.Fprintf(p.out, "[%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Role, m.Content)
	}
}

// PrintClaims outputs claims as a table.
func (p *Printer) PrintClaims(claims []types.Claim) error {
	table := tablewriter.NewWriter(p.out)
	table.Header("ID", "Copy", "Kind", "Status", "Message", "Created")
	for _, c := range claims {
		if err := table.Append(
			c.ID.String(),
			c.CopyID.String()[:8],
			string(c.Kind),
			string(c.Status),
			truncate(c.Message, 40),
			c.CreatedAt.Format("2006-01-02 15:04"),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
