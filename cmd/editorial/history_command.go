package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"editorial/internal/api"
	"editorial/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent workflow transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("invalid limit %d", limit)
			}
			return ctx.withSession(func(s *session) error {
				entries, err := s.store.RecentHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printHistory(ctx, cmd, entries)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of entries to show")
	return cmd
}

// newEntityHistoryCommand lists the transitions of one revision or review.
func newEntityHistoryCommand(ctx *commandContext, entity string) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: fmt.Sprintf("Show the transitions of a %s", entity),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(entity, args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				entries, err := s.store.History(cmd.Context(), entity, id)
				if err != nil {
					return err
				}
				return printHistory(ctx, cmd, entries)
			})
		},
	}
}

func printHistory(ctx *commandContext, cmd *cobra.Command, entries []*journal.HistoryEntry) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.FromHistory(entries))
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		actor := "-"
		if e.ActorID != nil {
			actor = strconv.FormatInt(*e.ActorID, 10)
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Entity,
			strconv.FormatInt(e.EntityID, 10),
			e.From,
			e.To,
			actor,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]column{textCol("When"), textCol("Entity"), numCol("ID"), textCol("From"), textCol("To"), numCol("Actor")},
		rows,
	))
	return nil
}
