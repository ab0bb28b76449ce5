package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"editorial/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the database and the notification backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					switch {
					case !r.Passed && r.Optional:
						status = "warn"
						if colorize {
							status = ansiYellow + status + ansiReset
						}
					case !r.Passed:
						status = "fail"
						if colorize {
							status = ansiRed + status + ansiReset
						}
					case colorize:
						status = ansiGreen + status + ansiReset
					}
					rows = append(rows, []string{r.Name, status, orDash(r.Detail)})
				}
				fmt.Fprintln(out, renderTable([]column{textCol("Check"), textCol("Status"), textCol("Detail")}, rows))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}
