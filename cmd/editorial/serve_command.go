package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"editorial/internal/daemon"
	"editorial/internal/logging"
	"editorial/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the review expiry sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if failed := preflight.Failed(preflight.RunAll(runCtx, cfg)); len(failed) > 0 {
				names := make([]string, 0, len(failed))
				for _, r := range failed {
					names = append(names, fmt.Sprintf("%s (%s)", r.Name, r.Detail))
				}
				return errors.New("preflight failed: " + strings.Join(names, ", "))
			}

			s, err := ctx.openSession(sessionOptions{logger: logger, registry: prometheus.DefaultRegisterer})
			if err != nil {
				return err
			}
			defer s.store.Close()

			d, err := daemon.New(cfg, s.store, s.svc, logger, nil)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", d.Addr())

			<-runCtx.Done()
			logger.Info("editorial server shutting down")
			return nil
		},
	}
}

