package reports

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/types"
)

func graded(grade float64, status types.CopyStatus, competencies map[string]int) types.Copy {
	return types.Copy{ID: uuid.New(), Grade: &grade, Status: status, Competencies: competencies}
}

func sampleCopies() []types.Copy {
	return []types.Copy{
		graded(4, types.CopyStatusCorrected, map[string]int{"reasoning": 1}),
		graded(10, types.CopyStatusCorrected, map[string]int{"reasoning": 3, "writing": 2}),
		graded(12, types.CopyStatusReviewed, nil),
		graded(16, types.CopyStatusCorrected, map[string]int{"reasoning": 4}),
		graded(20, types.CopyStatusCorrected, nil),
		{ID: uuid.New(), Status: types.CopyStatusPending},
		{ID: uuid.New(), Status: types.CopyStatusFailed, Error: "extract failed"},
	}
}

func TestSummarize(t *testing.T) {
	exam := &types.Exam{ID: uuid.New(), Course: "Maths", MaxScore: 20}

	s := Summarize(exam, sampleCopies())

	assert.Equal(t, "Maths", s.Course)
	assert.Equal(t, 7, s.TotalCopies)
	assert.Equal(t, 5, s.GradedCopies)
	assert.Equal(t, 1, s.PendingCopies)
	assert.Equal(t, 1, s.ReviewedCopies)
	assert.Equal(t, 1, s.FailedCopies)
	assert.Equal(t, 12.4, s.AverageGrade)
	assert.Equal(t, 62.0, s.AveragePercent)
	assert.Equal(t, 12.0, s.MedianGrade)
	assert.Equal(t, 4.0, s.MinGrade)
	assert.Equal(t, 20.0, s.MaxGrade)
	assert.Equal(t, 5.43, s.StdDev)
	assert.Equal(t, 80.0, s.PassRate)

	require.Len(t, s.GradeDistribution, 5)
	labels := make([]string, 0, 5)
	counts := make([]int, 0, 5)
	for _, b := range s.GradeDistribution {
		labels = append(labels, b.Label)
		counts = append(counts, b.Count)
	}
	assert.Equal(t, []string{"0-20", "20-40", "40-60", "60-80", "80-100"}, labels)
	// 20% falls in 20-40; 100% stays in the last bucket.
	assert.Equal(t, []int{0, 1, 1, 1, 2}, counts)
}

func TestSummarize_NoGradedCopies(t *testing.T) {
	exam := &types.Exam{Course: "Maths", MaxScore: 20}

	s := Summarize(exam, []types.Copy{{Status: types.CopyStatusPending}})

	assert.Equal(t, 1, s.TotalCopies)
	assert.Equal(t, 0, s.GradedCopies)
	assert.Zero(t, s.AverageGrade)
	assert.Zero(t, s.PassRate)
	assert.Len(t, s.GradeDistribution, 5)
}

func TestSummarize_EvenMedianAndDefaultScale(t *testing.T) {
	exam := &types.Exam{Course: "Maths"}
	copies := []types.Copy{
		graded(8, types.CopyStatusCorrected, nil),
		graded(12, types.CopyStatusCorrected, nil),
	}

	s := Summarize(exam, copies)

	assert.Equal(t, types.DefaultMaxScore, s.MaxScore)
	assert.Equal(t, 10.0, s.MedianGrade)
	assert.Equal(t, 50.0, s.PassRate)
}

func TestSummarize_IgnoresGradeOfFailedCopy(t *testing.T) {
	exam := &types.Exam{Course: "Maths", MaxScore: 20}
	copies := []types.Copy{
		graded(18, types.CopyStatusFailed, nil),
		graded(6, types.CopyStatusCorrected, nil),
	}

	s := Summarize(exam, copies)

	assert.Equal(t, 1, s.GradedCopies)
	assert.Equal(t, 6.0, s.AverageGrade)
	assert.Equal(t, 1, s.FailedCopies)
}

func TestLevel(t *testing.T) {
	tests := []struct {
		percent float64
		want    types.PerformanceLevel
	}{
		{100, types.PerformanceExcellent},
		{80, types.PerformanceExcellent},
		{79.99, types.PerformanceGood},
		{60, types.PerformanceGood},
		{40, types.PerformanceAverage},
		{39.5, types.PerformancePoor},
		{0, types.PerformancePoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.percent), "percent %v", tt.percent)
	}
}

func TestBuild_Detailed(t *testing.T) {
	exam := &types.Exam{ID: uuid.New(), Course: "Maths", MaxScore: 20}
	copies := sampleCopies()

	report, err := Build(exam, copies, types.ReportTypeDetailed)
	require.NoError(t, err)

	assert.Equal(t, exam.ID, report.ExamID)
	assert.Equal(t, types.ReportTypeDetailed, report.Type)
	require.Len(t, report.Data.Copies, 7)

	first := report.Data.Copies[0]
	assert.Equal(t, copies[0].ID, first.CopyID)
	require.NotNil(t, first.Percent)
	assert.Equal(t, 20.0, *first.Percent)
	assert.Equal(t, types.PerformancePoor, first.Level)

	pending := report.Data.Copies[5]
	assert.Nil(t, pending.Grade)
	assert.Empty(t, pending.Level)

	assert.Equal(t, map[string]float64{"reasoning": 2.67, "writing": 2}, report.Data.Competencies)
}

func TestCopyRows_LevelUsesUnroundedPercent(t *testing.T) {
	exam := &types.Exam{ID: uuid.New(), MaxScore: 20}
	rows := CopyRows(exam, []types.Copy{graded(15.9991, types.CopyStatusCorrected, nil)})

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Percent)
	assert.Equal(t, 80.0, *rows[0].Percent)
	assert.Equal(t, types.PerformanceGood, rows[0].Level)
}

func TestBuild_SummaryOmitsDetails(t *testing.T) {
	exam := &types.Exam{ID: uuid.New(), Course: "Maths", MaxScore: 20}

	report, err := Build(exam, sampleCopies(), "")
	require.NoError(t, err)
	assert.Equal(t, types.ReportTypeSummary, report.Type)
	assert.Nil(t, report.Data.Copies)
	assert.Nil(t, report.Data.Competencies)
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := Build(&types.Exam{}, nil, "weekly")
	var unknown *UnknownReportTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "weekly", unknown.Type)
}

func TestSortedCompetencies(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedCompetencies(map[string]float64{"c": 1, "a": 2, "b": 3}))
}
