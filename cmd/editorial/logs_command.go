package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"editorial/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines   int
		follow  bool
		audit   bool
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the service log or the audit log",
		Example: "  editorial logs --audit --filter model=review -n 20\n" +
			"  editorial logs --follow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter, err := logs.ParseFilter(filters)
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "editorial.log")
			if audit {
				path = cfg.Logging.AuditLog
			}

			out := cmd.OutOrStdout()
			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines, Filter: filter})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			offset := result.Offset
			for follow {
				result, err = logs.Tail(cmd.Context(), path, logs.TailOptions{
					Offset: offset,
					Follow: true,
					Wait:   time.Second,
					Filter: filter,
				})
				if err != nil {
					if errors.Is(err, cmd.Context().Err()) {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				offset = result.Offset
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&audit, "audit", false, "Read the audit log instead of the service log")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Only show JSON records with field=value (repeatable)")
	return cmd
}
