package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/observability"
	"github.com/jonathan/exam-grader/internal/types"
)

func (a *app) newExamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exams",
		Short: "Manage exams",
	}
	cmd.AddCommand(
		a.newExamsListCmd(),
		a.newExamsCreateCmd(),
		a.newExamsGetCmd(),
		a.newExamsUpdateCmd(),
		a.newExamsDeleteCmd(),
	)
	return cmd
}

func (a *app) newExamsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exams, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			exams, err := c.ListExams(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(exams, func(p *observability.Printer) error {
				if err := p.PrintExams(exams); err != nil {
					return err
				}
				a.say("\nTotal exams: %d", len(exams))
				return nil
			})
		},
	}
}

// examFlags are the editable fields shared by create and update.
type examFlags struct {
	course        string
	date          string
	maxScore      float64
	description   string
	answerKey     string
	answerKeyFile string
}

func (f *examFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.course, "course", "", "course name")
	cmd.Flags().StringVar(&f.date, "date", "", "exam date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&f.maxScore, "max-score", types.DefaultMaxScore, "maximum score")
	cmd.Flags().StringVar(&f.description, "description", "", "free text description")
	cmd.Flags().StringVar(&f.answerKey, "answer-key", "", "answer key used by the grader")
	cmd.Flags().StringVar(&f.answerKeyFile, "answer-key-file", "", "read the answer key from a file")
	cmd.MarkFlagsMutuallyExclusive("answer-key", "answer-key-file")
}

func (f *examFlags) loadAnswerKey() error {
	if f.answerKeyFile == "" {
		return nil
	}
	data, err := os.ReadFile(f.answerKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read answer key: %w", err)
	}
	f.answerKey = string(data)
	return nil
}

func (a *app) newExamsCreateCmd() *cobra.Command {
	var f examFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an exam",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := types.ParseDate(f.date)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			if err := f.loadAnswerKey(); err != nil {
				return err
			}
			req := &types.CreateExamRequest{
				Course:      f.course,
				Date:        date,
				Description: f.description,
				AnswerKey:   f.answerKey,
			}
			if cmd.Flags().Changed("max-score") {
				req.MaxScore = &f.maxScore
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			id, err := c.CreateExam(cmd.Context(), req)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(types.CreateExamResponse{ExamID: id})
			}
			a.say("Created exam %s", id)
			return nil
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (a *app) newExamsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <exam-id>",
		Short: "Show an exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("exam", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			exam, err := c.GetExam(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(exam, func(p *observability.Printer) error {
				p.PrintExam(exam)
				return nil
			})
		},
	}
}

func (a *app) newExamsUpdateCmd() *cobra.Command {
	var f examFlags

	cmd := &cobra.Command{
		Use:   "update <exam-id>",
		Short: "Change fields of an exam",
		Long:  `Only the flags given on the command line are sent.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("exam", args[0])
			if err != nil {
				return err
			}
			if err := f.loadAnswerKey(); err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			var req types.UpdateExamRequest
			if changed("course") {
				req.Course = &f.course
			}
			if changed("date") {
				date, err := types.ParseDate(f.date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				req.Date = &date
			}
			if changed("max-score") {
				req.MaxScore = &f.maxScore
			}
			if changed("description") {
				req.Description = &f.description
			}
			if changed("answer-key") || changed("answer-key-file") {
				req.AnswerKey = &f.answerKey
			}
			if req.Empty() {
				return fmt.Errorf("nothing to update: pass at least one field flag")
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			exam, err := c.UpdateExam(cmd.Context(), id, &req)
			if err != nil {
				return err
			}
			return a.render(exam, func(p *observability.Printer) error {
				p.PrintExam(exam)
				return nil
			})
		},
	}

	f.register(cmd)
	return cmd
}

func (a *app) newExamsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <exam-id>",
		Short: "Delete an exam with all its copies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("exam", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.DeleteExam(cmd.Context(), id); err != nil {
				return err
			}
			a.say("Deleted exam %s", id)
			return nil
		},
	}
}
