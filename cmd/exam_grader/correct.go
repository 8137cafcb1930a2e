package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/observability"
	"github.com/jonathan/exam-grader/internal/types"
)

func parseExamCopy(args []string) (uuid.UUID, uuid.UUID, error) {
	examID, err := parseID("exam", args[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	copyID, err := parseID("copy", args[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return examID, copyID, nil
}

func (a *app) newCorrectCmd() *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "correct <exam-id> [copy-id]",
		Short: "Grade one copy or every copy of an exam",
		Long: `Run automatic correction. With a copy ID only that copy is graded; otherwise every
copy of the exam that has not been reviewed by hand. --stream prints each copy as it finishes.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseID("exam", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}

			if len(args) == 2 {
				copyID, err := parseID("copy", args[1])
				if err != nil {
					return err
				}
				graded, err := c.CorrectCopy(cmd.Context(), examID, copyID)
				if err != nil {
					return err
				}
				if a.jsonOutput() {
					return a.printer().PrintJSON(graded)
				}
				exam, err := c.GetExam(cmd.Context(), examID)
				if err != nil {
					return err
				}
				a.printer().PrintCopy(graded, exam.MaxScore)
				return nil
			}

			var result *types.BatchResult
			if stream {
				p := a.printer()
				result, err = c.CorrectExamStream(cmd.Context(), examID, func(progress types.CorrectionProgress) {
					if !a.jsonOutput() {
						p.PrintProgress(progress)
					}
				})
			} else {
				result, err = c.CorrectExam(cmd.Context(), examID)
			}
			if err != nil {
				return err
			}
			return a.render(result, func(p *observability.Printer) error {
				p.PrintBatch(result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "print progress as each copy is graded")
	return cmd
}

func (a *app) newReviewCmd() *cobra.Command {
	var (
		grade    float64
		feedback string
	)

	cmd := &cobra.Command{
		Use:   "review <exam-id> <copy-id>",
		Short: "Set the grade of a copy by hand",
		Long:  `Record a professor's grade. Reviewed copies are skipped by later batch corrections.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, copyID, err := parseExamCopy(args)
			if err != nil {
				return err
			}
			req := &types.ReviewRequest{Grade: &grade}
			if feedback != "" {
				req.Annotations = map[string]any{"feedback": feedback}
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			reviewed, err := c.ReviewCopy(cmd.Context(), examID, copyID, req)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(reviewed)
			}
			a.say("Copy %s reviewed: grade %g", reviewed.ID, grade)
			return nil
		},
	}

	cmd.Flags().Float64Var(&grade, "grade", 0, "grade to record (required)")
	cmd.Flags().StringVar(&feedback, "feedback", "", "feedback replacing the automatic one")
	_ = cmd.MarkFlagRequired("grade")
	return cmd
}
