package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/observability"
	"github.com/jonathan/exam-grader/internal/types"
)

func (a *app) newCopiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copies",
		Short: "Manage scanned exam copies",
	}
	cmd.AddCommand(
		a.newCopiesUploadCmd(),
		a.newCopiesListCmd(),
		a.newCopiesGetCmd(),
		a.newCopiesDownloadCmd(),
		a.newCopiesDeleteCmd(),
	)
	return cmd
}

func (a *app) newCopiesUploadCmd() *cobra.Command {
	var student string

	cmd := &cobra.Command{
		Use:   "upload <exam-id> <file>...",
		Short: "Upload scanned copies (PDF, images or text)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseID("exam", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.UploadPaths(cmd.Context(), examID, student, args[1:]...)
			if err != nil {
				return err
			}
			return a.render(resp, func(p *observability.Printer) error {
				p.PrintUpload(resp)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&student, "student", "", "student name recorded on every uploaded copy")
	return cmd
}

func (a *app) newCopiesListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list <exam-id>",
		Short: "List the copies of an exam",
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
			copies, err := c.ListCopies(cmd.Context(), examID, types.CopyStatus(status))
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(copies)
			}
			exam, err := c.GetExam(cmd.Context(), examID)
			if err != nil {
				return err
			}
			if err := a.printer().PrintCopies(copies, exam.MaxScore); err != nil {
				return err
			}
			a.say("\nTotal copies: %d", len(copies))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only copies in this status: pending, corrected, reviewed or failed")
	return cmd
}

func (a *app) newCopiesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <exam-id> <copy-id>",
		Short: "Show a copy with its grade and annotations",
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
			found, err := c.GetCopy(cmd.Context(), examID, copyID)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(found)
			}
			exam, err := c.GetExam(cmd.Context(), examID)
			if err != nil {
				return err
			}
			a.printer().PrintCopy(found, exam.MaxScore)
			return nil
		},
	}
}

func (a *app) newCopiesDownloadCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "download <exam-id> <copy-id>",
		Short: "Download the original scan of a copy",
		Long:  `Write the uploaded file to --file, or to standard output when --file is "-".`,
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

			if outPath == "" {
				meta, err := c.GetCopy(cmd.Context(), examID, copyID)
				if err != nil {
					return err
				}
				outPath = meta.OriginalName
				if outPath == "" {
					outPath = copyID.String()
				}
			}

			var w io.Writer = a.out
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}

			n, err := c.DownloadCopy(cmd.Context(), examID, copyID, w)
			if err != nil {
				return err
			}
			if outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", n, outPath) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "file", "f", "", "destination path (default: the original file name)")
	return cmd
}

func (a *app) newCopiesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <exam-id> <copy-id>",
		Short: "Delete a copy and its file",
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
			if err := c.DeleteCopy(cmd.Context(), examID, copyID); err != nil {
				return err
			}
			a.say("Deleted copy %s", copyID)
			return nil
		},
	}
}
