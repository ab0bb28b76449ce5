package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"editorial/internal/api"
	"editorial/internal/workflow"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

// printResult reports a workflow action: the resulting state, flash
// messages for the actor, warnings and the notification count.
func (c *commandContext) printResult(cmd *cobra.Command, label string, res workflow.Result) error {
	if c.jsonOutput() {
		return writeJSON(cmd, api.FromResult(res))
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	state := res.State
	if colorize && state != "" {
		state = ansiGreen + state + ansiReset
	}
	if state != "" {
		fmt.Fprintf(out, "%s %d: %s\n", label, res.EntityID, state)
	} else {
		fmt.Fprintf(out, "%s %d\n", label, res.EntityID)
	}
	for _, msg := range res.Messages {
		fmt.Fprintf(out, "  %s\n", msg)
	}
	for _, w := range res.Warnings {
		line := "warning: " + w.Error()
		if colorize {
			line = ansiYellow + line + ansiReset
		}
		fmt.Fprintf(out, "  %s\n", line)
	}
	if res.Notified > 0 {
		fmt.Fprintf(out, "  %d notification(s) sent\n", res.Notified)
	}
	return nil
}

// writeJSON prints v for scripts: two-space indent, and manuscript text
// such as "<" or "&" left unescaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
