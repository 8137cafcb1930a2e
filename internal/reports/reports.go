// Package reports computes grade statistics for an exam.
package reports

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/jonathan/exam-grader/internal/types"
)

// PassThreshold is the fraction of the maximum score needed to pass.
const PassThreshold = 0.5

// bucketBounds are the percentage bounds of the grade distribution.
var bucketBounds = []float64{0, 20, 40, 60, 80, 100}

// UnknownReportTypeError is returned for report types other than summary and detailed.
type UnknownReportTypeError struct {
	Type string
}

func (e *UnknownReportTypeError) Error() string {
	return fmt.Sprintf("unknown report type %q (want %q or %q)", e.Type, types.ReportTypeSummary, types.ReportTypeDetailed)
}

// Build computes the report of the given type. An empty type selects the summary.
func Build(exam *types.Exam, copies []types.Copy, reportType string) (*types.Report, error) {
	if reportType == "" {
		reportType = types.ReportTypeSummary
	}

	var data types.ReportData
	switch reportType {
	case types.ReportTypeSummary:
		data.ReportSummary = Summarize(exam, copies)
	case types.ReportTypeDetailed:
		data.ReportSummary = Summarize(exam, copies)
		data.Copies = CopyRows(exam, copies)
		data.Competencies = CompetencyAverages(copies)
	default:
		return nil, &UnknownReportTypeError{Type: reportType}
	}

	return &types.Report{ExamID: exam.ID, Type: reportType, Data: data}, nil
}

// Summarize computes the aggregate statistics of an exam.
// Only corrected and reviewed copies with a grade count as graded.
func Summarize(exam *types.Exam, copies []types.Copy) types.ReportSummary {
	maxScore := maxScoreOf(exam)
	summary := types.ReportSummary{
		Course:            exam.Course,
		MaxScore:          maxScore,
		TotalCopies:       len(copies),
		GradeDistribution: emptyDistribution(),
	}

	var grades []float64
	for _, c := range copies {
		switch c.Status {
		case types.CopyStatusPending:
			summary.PendingCopies++
		case types.CopyStatusReviewed:
			summary.ReviewedCopies++
		case types.CopyStatusFailed:
			summary.FailedCopies++
		}
		if c.Status.Graded() && c.Grade != nil {
			grades = append(grades, *c.Grade)
		}
	}
	summary.GradedCopies = len(grades)
	if len(grades) == 0 {
		return summary
	}

	sort.Float64s(grades)
	var sum float64
	passed := 0
	for _, g := range grades {
		sum += g
		if g >= maxScore*PassThreshold {
			passed++
		}
		summary.GradeDistribution[bucketIndex(percentOf(g, maxScore))].Count++
	}
	mean := sum / float64(len(grades))

	var squares float64
	for _, g := range grades {
		squares += (g - mean) * (g - mean)
	}

	summary.AverageGrade = round2(mean)
	summary.AveragePercent = round2(percentOf(mean, maxScore))
	summary.MedianGrade = round2(median(grades))
	summary.MinGrade = round2(grades[0])
	summary.MaxGrade = round2(grades[len(grades)-1])
	summary.StdDev = round2(math.Sqrt(squares / float64(len(grades))))
	summary.PassRate = round2(float64(passed) / float64(len(grades)) * 100)
	return summary
}

// CopyRows returns one row per copy, in the given order.
func CopyRows(exam *types.Exam, copies []types.Copy) []types.CopyReport {
	maxScore := maxScoreOf(exam)
	rows := make([]types.CopyReport, 0, len(copies))
	for _, c := range copies {
		row := types.CopyReport{
			CopyID:      c.ID,
			StudentName: c.StudentName,
			Status:      c.Status,
		}
		if c.Status.Graded() && c.Grade != nil {
			grade := *c.Grade
			exact := percentOf(grade, maxScore)
			percent := round2(exact)
			row.Grade = &grade
			row.Percent = &percent
			row.Level = Level(exact)
		}
		rows = append(rows, row)
	}
	return rows
}

// Level classifies a percentage of the maximum score.
func Level(percent float64) types.PerformanceLevel {
	switch {
	case percent >= 80:
		return types.PerformanceExcellent
	case percent >= 60:
		return types.PerformanceGood
	case percent >= 40:
		return types.PerformanceAverage
	default:
		return types.PerformancePoor
	}
}

// CompetencyAverages averages each competency level over the graded copies that report it.
// Returns nil when no copy reports competencies.
func CompetencyAverages(copies []types.Copy) map[string]float64 {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, c := range copies {
		if !c.Status.Graded() {
			continue
		}
		for name, level := range c.Competencies {
			sums[name] += level
			counts[name]++
		}
	}
	if len(sums) == 0 {
		return nil
	}
	averages := make(map[string]float64, len(sums))
	for name, sum := range sums {
		averages[name] = round2(float64(sum) / float64(counts[name]))
	}
	return averages
}

func emptyDistribution() []types.DistributionBucket {
	buckets := make([]types.DistributionBucket, 0, len(bucketBounds)-1)
	for i := 0; i < len(bucketBounds)-1; i++ {
		lo, hi := bucketBounds[i], bucketBounds[i+1]
		buckets = append(buckets, types.DistributionBucket{
			Label: fmt.Sprintf("%g-%g", lo, hi),
			Min:   lo,
			Max:   hi,
		})
	}
	return buckets
}

// bucketIndex places a percentage in [lo, hi); the last bucket also holds 100.
func bucketIndex(percent float64) int {
	last := len(bucketBounds) - 2
	for i := 0; i < last; i++ {
		if percent < bucketBounds[i+1] {
			return i
		}
	}
	return last
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func percentOf(grade, maxScore float64) float64 {
	return grade / maxScore * 100
}

func maxScoreOf(exam *types.Exam) float64 {
	if exam.MaxScore > 0 {
		return exam.MaxScore
	}
	return types.DefaultMaxScore
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SortedCompetencies returns competency names in alphabetical order.
func SortedCompetencies(averages map[string]float64) []string {
	names := make([]string, 0, len(averages))
	for name := range averages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
