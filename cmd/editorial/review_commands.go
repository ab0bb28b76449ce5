package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"editorial/internal/api"
	"editorial/internal/journal"
	"editorial/internal/workflow"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:     "review",
		Aliases: []string{"reviews"},
		Short:   "Work with reviewer reports",
	}
	reviewCmd.AddCommand(newReviewShowCommand(ctx))
	reviewCmd.AddCommand(newReviewTransitionCommand(ctx))
	reviewCmd.AddCommand(newReviewSubmitCommand(ctx))
	reviewCmd.AddCommand(newReviewExtendCommand(ctx))
	reviewCmd.AddCommand(newReviewExpireCommand(ctx))
	reviewCmd.AddCommand(newReviewAllowedCommand(ctx))
	reviewCmd.AddCommand(newEntityHistoryCommand(ctx, "review"))
	return reviewCmd
}

func newReviewShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				review, err := s.store.GetReview(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromReview(review))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderReviews([]*journal.Review{review}))
				if review.Text != "" {
					fmt.Fprintf(out, "Report:\n%s\n", review.Text)
				}
				if review.EditorFeedback != "" {
					fmt.Fprintf(out, "Editor feedback:\n%s\n", review.EditorFeedback)
				}
				return nil
			})
		},
	}
}

func newReviewTransitionCommand(ctx *commandContext) *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "transition <id> <status>",
		Short: "Move a review to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review", args[0])
			if err != nil {
				return err
			}
			to, ok := journal.ParseReviewStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown review status %q", args[1])
			}
			return ctx.reviewAction(cmd, func(s *session, actor int64) (workflow.Result, error) {
				return s.svc.MoveReview(cmd.Context(), actor, id, to, feedback)
			})
		},
	}

	cmd.Flags().StringVar(&feedback, "feedback", "", "Editor feedback when requesting an edit")
	return cmd
}

func newReviewSubmitCommand(ctx *commandContext) *cobra.Command {
	var text, recommendation string

	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit the acting reviewer's report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review", args[0])
			if err != nil {
				return err
			}
			rec, ok := journal.ParseRecommendation(recommendation)
			if !ok {
				return fmt.Errorf("unknown recommendation %q", recommendation)
			}
			return ctx.reviewAction(cmd, func(s *session, actor int64) (workflow.Result, error) {
				return s.svc.SubmitReview(cmd.Context(), actor, id, text, rec)
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Review report")
	cmd.Flags().StringVar(&recommendation, "recommendation", "", "accept, minor, major or reject")
	_ = cmd.MarkFlagRequired("recommendation")
	return cmd
}

func newReviewExtendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "extend <id>",
		Short: "Reopen an expired review with a new due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review", args[0])
			if err != nil {
				return err
			}
			return ctx.reviewAction(cmd, func(s *session, actor int64) (workflow.Result, error) {
				return s.svc.ExtendReview(cmd.Context(), actor, id)
			})
		},
	}
}

func newReviewExpireCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Expire every overdue review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				results, err := s.svc.ExpireOverdueReviews(cmd.Context())
				if ctx.jsonOutput() {
					resp := api.ExpireResponse{Expired: make([]api.Result, 0, len(results))}
					for _, res := range results {
						resp.Expired = append(resp.Expired, api.FromResult(res))
					}
					if err != nil {
						resp.Errors = []string{err.Error()}
					}
					if encErr := writeJSON(cmd, resp); encErr != nil {
						return encErr
					}
					return err
				}
				out := cmd.OutOrStdout()
				for _, res := range results {
					fmt.Fprintf(out, "Review %d: %s\n", res.EntityID, res.State)
				}
				fmt.Fprintf(out, "%d review(s) processed\n", len(results))
				return err
			})
		},
	}
}

func newReviewAllowedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "allowed <id>",
		Short: "List statuses the review may move to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				review, err := s.store.GetReview(cmd.Context(), id)
				if err != nil {
					return err
				}
				allowed, err := s.svc.AllowedReviewTransitions(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printAllowed(ctx, cmd, string(review.Status), allowed)
			})
		},
	}
}

// reviewAction runs fn as the acting user and prints its result.
func (c *commandContext) reviewAction(cmd *cobra.Command, fn func(*session, int64) (workflow.Result, error)) error {
	return c.withSession(func(s *session) error {
		actor, err := c.actor(cmd.Context(), s)
		if err != nil {
			return err
		}
		res, err := fn(s, actor)
		if err != nil {
			return err
		}
		return c.printResult(cmd, "Review", res)
	})
}
