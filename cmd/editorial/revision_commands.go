package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"editorial/internal/api"
	"editorial/internal/journal"
)

func newRevisionCommand(ctx *commandContext) *cobra.Command {
	revisionCmd := &cobra.Command{
		Use:     "revision",
		Aliases: []string{"revisions", "rev"},
		Short:   "Move revisions through the editorial workflow",
	}
	revisionCmd.AddCommand(newRevisionShowCommand(ctx))
	revisionCmd.AddCommand(newRevisionTransitionCommand(ctx))
	revisionCmd.AddCommand(newRevisionAllowedCommand(ctx))
	revisionCmd.AddCommand(newRevisionNewCommand(ctx))
	revisionCmd.AddCommand(newEntityHistoryCommand(ctx, "revision"))
	return revisionCmd
}

func newRevisionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a revision and its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				rev, err := s.store.GetRevision(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromRevision(rev))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Revision %d (manuscript %d, no. %d): %s\n", rev.ID, rev.ManuscriptID, rev.Number, rev.Title)
				fmt.Fprintf(out, "  Status:  %s (%s)\n", rev.Status, rev.Column())
				fmt.Fprintf(out, "  Message: %s\n", rev.StatusMessage())
				if rev.RevisionNote != "" {
					fmt.Fprintf(out, "  Note:    %s\n", rev.RevisionNote)
				}
				if rev.EditorialReview != "" {
					fmt.Fprintf(out, "  Editorial review: %s\n", rev.EditorialReview)
				}
				if len(rev.Reviews) > 0 {
					fmt.Fprintln(out, renderReviews(rev.Reviews))
				}
				return nil
			})
		},
	}
}

func renderReviews(reviews []*journal.Review) string {
	rows := make([][]string, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.ReviewerID, 10),
			string(r.Status),
			orDash(string(r.Recommendation)),
			r.DueAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]column{numCol("Review"), numCol("Reviewer"), textCol("Status"), textCol("Recommendation"), textCol("Due")},
		rows,
	)
}

func newRevisionTransitionCommand(ctx *commandContext) *cobra.Command {
	var note, editorialReview string

	cmd := &cobra.Command{
		Use:   "transition <id> <status>",
		Short: "Move a revision to another status",
		Long: "Move a revision to another status. PENDING submits, WITHDRAWN withdraws and\n" +
			"ACCEPT, REJECT, MINOR_REVISION or MAJOR_REVISION record an editorial decision.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}
			to, ok := journal.ParseRevisionStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown revision status %q", args[1])
			}
			return ctx.withSession(func(s *session) error {
				actor, err := ctx.actor(cmd.Context(), s)
				if err != nil {
					return err
				}
				res, err := s.svc.MoveRevision(cmd.Context(), actor, id, to, note, editorialReview)
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, "Revision", res)
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Revision note explaining changes (submission)")
	cmd.Flags().StringVar(&editorialReview, "editorial-review", "", "Editorial review text (decisions)")
	return cmd
}

func newRevisionAllowedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "allowed <id>",
		Short: "List statuses the revision may move to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				rev, err := s.store.GetRevision(cmd.Context(), id)
				if err != nil {
					return err
				}
				allowed, err := s.svc.AllowedRevisionTransitions(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printAllowed(ctx, cmd, string(rev.Status), allowed)
			})
		},
	}
}

func newRevisionNewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new <id>",
		Short: "Start the next revision after a revision decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("revision", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				actor, err := ctx.actor(cmd.Context(), s)
				if err != nil {
					return err
				}
				res, err := s.svc.CreateNewRevision(cmd.Context(), actor, id)
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, "Revision", res)
			})
		},
	}
}

func printAllowed[S ~string](c *commandContext, cmd *cobra.Command, from string, allowed []S) error {
	names := make([]string, 0, len(allowed))
	for _, state := range allowed {
		names = append(names, string(state))
	}
	if c.jsonOutput() {
		return writeJSON(cmd, api.AllowedResponse{From: from, Allowed: names})
	}
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "%s: no transitions available\n", from)
		return nil
	}
	fmt.Fprintf(out, "%s -> %s\n", from, strings.Join(names, ", "))
	return nil
}
