package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/observability"
	"github.com/jonathan/exam-grader/internal/types"
)

func (a *app) newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask about a graded copy, request a rectification or flag a problem",
	}
	cmd.AddCommand(
		a.newChatSendCmd(),
		a.newChatHistoryCmd(),
		a.newChatRectifyCmd(),
		a.newChatFlagCmd(),
	)
	return cmd
}

func (a *app) newChatSendCmd() *cobra.Command {
	var extra string

	cmd := &cobra.Command{
		Use:   "send <copy-id> <message>...",
		Short: "Ask the assistant about a copy",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			copyID, err := parseID("copy", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.SendMessage(cmd.Context(), &types.ChatMessageRequest{
				CopyID:  copyID,
				Message: strings.Join(args[1:], " "),
				Context: extra,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(resp)
			}
			a.say("%s", resp.Response)
			return nil
		},
	}

	cmd.Flags().StringVar(&extra, "context", "", "extra context passed to the assistant")
	return cmd
}

func (a *app) newChatHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <copy-id>",
		Short: "Show the conversation about a copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			copyID, err := parseID("copy", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			messages, err := c.ListMessages(cmd.Context(), copyID, limit)
			if err != nil {
				return err
			}
			return a.render(messages, func(p *observability.Printer) error {
				p.PrintMessages(messages)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "only the most recent messages (0 for all)")
	return cmd
}

func (a *app) newChatRectifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rectify <exam-id> <copy-id> <message>...",
		Short: "Request a grade rectification",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, copyID, err := parseExamCopy(args)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.Rectify(cmd.Context(), examID, copyID, strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(resp)
			}
			a.say("Claim %s is %s", resp.ClaimID, resp.Status)
			a.say("%s", resp.Response)
			return nil
		},
	}
}

func (a *app) newChatFlagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flag <exam-id> <copy-id> [issue]...",
		Short: "Flag a problem with a copy",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, copyID, err := parseExamCopy(args)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.Flag(cmd.Context(), examID, copyID, strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(resp)
			}
			a.say("Flagged copy %s: %s", resp.CopyID, resp.Issue)
			return nil
		},
	}
}

func (a *app) newClaimsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Review rectification requests and flags",
	}
	cmd.AddCommand(a.newClaimsListCmd(), a.newClaimsResolveCmd())
	return cmd
}

func (a *app) newClaimsListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list <exam-id>",
		Short: "List the claims of an exam",
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
			claims, err := c.ListClaims(cmd.Context(), examID, types.ClaimStatus(status))
			if err != nil {
				return err
			}
			return a.render(claims, func(p *observability.Printer) error {
				return p.PrintClaims(claims)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "pending or resolved")
	return cmd
}

func (a *app) newClaimsResolveCmd() *cobra.Command {
	var response string

	cmd := &cobra.Command{
		Use:   "resolve <claim-id>",
		Short: "Mark a claim resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimID, err := parseID("claim", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			claim, err := c.ResolveClaim(cmd.Context(), claimID, response)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(claim)
			}
			a.say("Claim %s resolved", claim.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&response, "response", "", "answer shown to the student")
	return cmd
}
