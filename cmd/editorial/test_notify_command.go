package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"editorial/internal/daemon"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var recipients []string

	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				d, err := daemon.New(s.cfg, s.store, s.svc, s.logger, prometheus.NewRegistry())
				if err != nil {
					return err
				}
				sent, message, err := d.TestNotification(cmd.Context(), recipients...)
				if err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				out := cmd.OutOrStdout()
				switch {
				case message != "":
					fmt.Fprintln(out, message)
				case sent:
					fmt.Fprintln(out, "Test notification sent")
				default:
					fmt.Fprintln(out, "Notification not sent")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&recipients, "to", nil, "Recipient address (repeatable)")
	return cmd
}
