package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"editorial/internal/api"
)

func newReviewersCommand(ctx *commandContext) *cobra.Command {
	reviewersCmd := &cobra.Command{
		Use:   "reviewers",
		Short: "Reviewer selection",
	}
	reviewersCmd.AddCommand(newReviewersRankCommand(ctx))
	return reviewersCmd
}

func newReviewersRankCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <manuscript>",
		Short: "Rank eligible reviewers for a manuscript, best first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("manuscript", args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				ranked, err := s.svc.RankReviewers(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromRanked(ranked))
				}
				if len(ranked) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No eligible reviewers")
					return nil
				}
				ids := make([]int64, 0, len(ranked))
				for _, r := range ranked {
					ids = append(ids, r.ReviewerID)
				}
				users, err := s.store.UsersByID(cmd.Context(), ids)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(ranked))
				for i, r := range ranked {
					username, name := strconv.FormatInt(r.ReviewerID, 10), "-"
					if u, ok := users[r.ReviewerID]; ok {
						username, name = u.Username, u.DisplayName()
					}
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						username,
						name,
						strconv.Itoa(r.TotalReviews),
						strconv.Itoa(r.AuthorReviews),
						strconv.FormatFloat(r.Score, 'f', 3, 64),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{numCol("#"), textCol("Reviewer"), textCol("Name"), numCol("Reviews"), numCol("Author reviews"), numCol("Score")},
					rows,
				))
				return nil
			})
		},
	}
}
