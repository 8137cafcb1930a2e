package types

import "github.com/google/uuid"

// Report types accepted by GET /exams/{id}/report.
const (
	ReportTypeSummary  = "summary"
	ReportTypeDetailed = "detailed"
)

// PerformanceLevel buckets a copy by percentage of the maximum score.
type PerformanceLevel string

// Performance levels.
const (
	PerformanceExcellent PerformanceLevel = "excellent"
	PerformanceGood      PerformanceLevel = "good"
	PerformanceAverage   PerformanceLevel = "average"
	PerformancePoor      PerformanceLevel = "poor"
)

// DistributionBucket counts graded copies whose percentage falls in [Min, Max).
type DistributionBucket struct {
	Label string  `json:"grade"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// ReportSummary holds the aggregate statistics of an exam.
type ReportSummary struct {
	Course            string               `json:"course"`
	MaxScore          float64              `json:"maxScore"`
	TotalCopies       int                  `json:"totalCopies"`
	GradedCopies      int                  `json:"gradedCopies"`
	PendingCopies     int                  `json:"pendingCopies"`
	ReviewedCopies    int                  `json:"reviewedCopies"`
	FailedCopies      int                  `json:"failedCopies"`
	AverageGrade      float64              `json:"averageGrade"`
	AveragePercent    float64              `json:"averagePercent"`
	MedianGrade       float64              `json:"medianGrade"`
	MinGrade          float64              `json:"minGrade"`
	MaxGrade          float64              `json:"maxGrade"`
	StdDev            float64              `json:"stdDev"`
	PassRate          float64              `json:"passRate"`
	GradeDistribution []DistributionBucket `json:"gradeDistribution"`
}

// CopyReport is one row of a detailed report.
type CopyReport struct {
	CopyID      uuid.UUID        `json:"copyId"`
	StudentName string           `json:"studentName,omitempty"`
	Status      CopyStatus       `json:"status"`
	Grade       *float64         `json:"grade"`
	Percent     *float64         `json:"percent,omitempty"`
	Level       PerformanceLevel `json:"level,omitempty"`
}

// ReportData is the payload of a report. Detailed-only fields are omitted from summaries.
type ReportData struct {
	ReportSummary
	Copies       []CopyReport       `json:"copies,omitempty"`
	Competencies map[string]float64 `json:"competencies,omitempty"`
}

// Report is returned by GET /exams/{id}/report.
type Report struct {
	ExamID uuid.UUID  `json:"examId"`
	Type   string     `json:"type"`
	Data   ReportData `json:"data"`
}
