package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"editorial/internal/api"
	"editorial/internal/journal"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage journal users",
	}
	userCmd.AddCommand(newUserAddCommand(ctx))
	userCmd.AddCommand(newUserListCommand(ctx))
	return userCmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var u journal.User

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u.Username = args[0]
			if !u.IsAuthor && !u.IsReviewer && !u.IsEditor {
				u.IsAuthor = true
			}
			return ctx.withSession(func(s *session) error {
				if err := s.store.CreateUser(cmd.Context(), &u); err != nil {
					return fmt.Errorf("add user: %w", err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromUser(u))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %d: %s\n", u.ID, u.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&u.FirstName, "first", "", "First name")
	cmd.Flags().StringVar(&u.LastName, "last", "", "Last name")
	cmd.Flags().StringVar(&u.Email, "email", "", "Email address for notifications")
	cmd.Flags().BoolVar(&u.IsAuthor, "author", false, "Grant the author role (default when no role is given)")
	cmd.Flags().BoolVar(&u.IsReviewer, "reviewer", false, "Grant the reviewer role")
	cmd.Flags().BoolVar(&u.IsEditor, "editor", false, "Grant the editor role")
	return cmd
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				users, err := s.store.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					out := make([]api.User, 0, len(users))
					for _, u := range users {
						out = append(out, api.FromUser(*u))
					}
					return writeJSON(cmd, out)
				}
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No users")
					return nil
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{
						strconv.FormatInt(u.ID, 10),
						u.Username,
						u.DisplayName(),
						orDash(u.Email),
						yesNo(u.IsAuthor),
						yesNo(u.IsReviewer),
						yesNo(u.IsEditor),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{numCol("ID"), textCol("Username"), textCol("Name"), textCol("Email"), textCol("Author"), textCol("Reviewer"), textCol("Editor")},
					rows,
				))
				return nil
			})
		},
	}
}
