package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/observability"
	"github.com/jonathan/exam-grader/internal/types"
)

func (a *app) newGradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grade <exam-id> <copy-id>",
		Short: "Show the grade and annotations of a copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, copyID, err := parseExamCopy(args)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			grade, err := c.GetGrade(cmd.Context(), examID, copyID)
			if err != nil {
				return err
			}
			annotations, err := c.GetAnnotations(cmd.Context(), examID, copyID)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(map[string]any{
					"copyId":      grade.CopyID,
					"grade":       grade.Grade,
					"annotations": annotations.Annotations,
				})
			}
			exam, err := c.GetExam(cmd.Context(), examID)
			if err != nil {
				return err
			}
			a.printer().PrintCopy(&types.Copy{
				ID:          grade.CopyID,
				Grade:       grade.Grade,
				Status:      statusOf(grade.Grade),
				Annotations: annotations.Annotations,
			}, exam.MaxScore)
			return nil
		},
	}
}

func statusOf(grade *float64) types.CopyStatus {
	if grade == nil {
		return types.CopyStatusPending
	}
	return types.CopyStatusCorrected
}

func (a *app) newReportCmd() *cobra.Command {
	var reportType string

	cmd := &cobra.Command{
		Use:   "report <exam-id>",
		Short: "Show exam statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseID("exam", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			report, err := c.GetReport(cmd.Context(), examID, reportType)
			if err != nil {
				return err
			}
			return a.render(report, func(p *observability.Printer) error {
				return p.PrintReport(report)
			})
		},
	}

	cmd.Flags().StringVar(&reportType, "type", types.ReportTypeSummary, "summary or detailed")
	return cmd
}
