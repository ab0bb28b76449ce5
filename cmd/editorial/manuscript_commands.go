package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"editorial/internal/api"
	"editorial/internal/workflow"
)

func newManuscriptCommand(ctx *commandContext) *cobra.Command {
	manuscriptCmd := &cobra.Command{
		Use:     "manuscript",
		Aliases: []string{"manuscripts", "ms"},
		Short:   "Create and inspect manuscripts",
	}
	manuscriptCmd.AddCommand(newManuscriptCreateCommand(ctx))
	manuscriptCmd.AddCommand(newManuscriptListCommand(ctx))
	manuscriptCmd.AddCommand(newManuscriptShowCommand(ctx))
	manuscriptCmd.AddCommand(newManuscriptAcknowledgeCommand(ctx))
	manuscriptCmd.AddCommand(newManuscriptAssignCommand(ctx))
	return manuscriptCmd
}

func newManuscriptCreateCommand(ctx *commandContext) *cobra.Command {
	var title, text, textFile string
	var coauthors []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a manuscript authored by the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFile != "" {
				data, err := os.ReadFile(textFile)
				if err != nil {
					return fmt.Errorf("read text file: %w", err)
				}
				text = string(data)
			}
			return ctx.withSession(func(s *session) error {
				actor, err := ctx.actor(cmd.Context(), s)
				if err != nil {
					return err
				}
				draft := workflow.Draft{Title: title, Text: text}
				for _, raw := range coauthors {
					id, err := userRef(cmd.Context(), s, raw)
					if err != nil {
						return fmt.Errorf("coauthor %q: %w", raw, err)
					}
					draft.CoauthorIDs = append(draft.CoauthorIDs, id)
				}
				res, err := s.svc.CreateManuscript(cmd.Context(), actor, draft)
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, "Manuscript", res)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Manuscript title")
	cmd.Flags().StringVar(&text, "text", "", "Manuscript text")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read the manuscript text from a file")
	cmd.Flags().StringSliceVar(&coauthors, "coauthor", nil, "Coauthor id or username (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newManuscriptListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manuscripts with their current revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				list, err := s.store.ListManuscripts(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					out := make([]api.Manuscript, 0, len(list))
					for _, m := range list {
						out = append(out, api.FromManuscript(m))
					}
					return writeJSON(cmd, out)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No manuscripts")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, m := range list {
					row := []string{strconv.FormatInt(m.ID, 10), "-", orDash(m.AuthorNames()), "-", "-"}
					if current := m.Current(); current != nil {
						row[1] = current.Title
						row[3] = strconv.FormatInt(current.ID, 10)
						row[4] = string(current.Status)
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{numCol("ID"), textCol("Title"), textCol("Authors"), numCol("Revision"), textCol("Status")},
					rows,
				))
				return nil
			})
		},
	}
}

func newManuscriptShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a manuscript, its authors and revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("manuscript", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				m, err := s.store.GetManuscript(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromManuscript(m))
				}
				out := cmd.OutOrStdout()
				title := "-"
				if current := m.Current(); current != nil {
					title = current.Title
				}
				fmt.Fprintf(out, "Manuscript %d: %s\n", m.ID, title)
				for _, a := range m.Authorships {
					state := "acknowledged"
					if !a.Acknowledged {
						state = "awaiting acknowledgement"
					}
					fmt.Fprintf(out, "  Author %d %s (%s)\n", a.Author.ID, a.Author.DisplayName(), state)
				}
				if len(m.ReviewerIDs) > 0 {
					ids := make([]string, 0, len(m.ReviewerIDs))
					for _, id := range m.ReviewerIDs {
						ids = append(ids, strconv.FormatInt(id, 10))
					}
					fmt.Fprintf(out, "  Reviewers: %s\n", strings.Join(ids, ", "))
				}
				rows := make([][]string, 0, len(m.Revisions))
				for _, rev := range m.Revisions {
					rows = append(rows, []string{
						strconv.FormatInt(rev.ID, 10),
						strconv.Itoa(rev.Number),
						string(rev.Status),
						string(rev.Column()),
						rev.StatusMessage(),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{numCol("Revision"), numCol("No."), textCol("Status"), textCol("Column"), textCol("Message")},
					rows,
				))
				return nil
			})
		},
	}
}

func newManuscriptAcknowledgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "acknowledge <id>",
		Short: "Confirm the acting user's authorship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("manuscript", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				actor, err := ctx.actor(cmd.Context(), s)
				if err != nil {
					return err
				}
				res, err := s.svc.AcknowledgeAuthorship(cmd.Context(), actor, id)
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, "Manuscript", res)
			})
		},
	}
}

func newManuscriptAssignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <reviewer>",
		Short: "Assign a reviewer to the manuscript's current revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("manuscript", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				actor, err := ctx.actor(cmd.Context(), s)
				if err != nil {
					return err
				}
				reviewer, err := userRef(cmd.Context(), s, args[1])
				if err != nil {
					return fmt.Errorf("reviewer %q: %w", args[1], err)
				}
				res, err := s.svc.AssignReviewer(cmd.Context(), actor, id, reviewer)
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, "Review", res)
			})
		},
	}
}
