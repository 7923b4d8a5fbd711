package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRosterCommand(ctx *commandContext) *cobra.Command {
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the official member list",
	}

	rosterCmd.AddCommand(newRosterListCommand(ctx))
	rosterCmd.AddCommand(newRosterAddCommand(ctx))
	rosterCmd.AddCommand(newRosterRenameCommand(ctx))
	rosterCmd.AddCommand(newRosterDeleteCommand(ctx))

	return rosterCmd
}

func newRosterListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List roster members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			names, err := app.Roster.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Roster is empty")
				return nil
			}
			rows := make([][]string, 0, len(names))
			for i, n := range names {
				rows = append(rows, []string{strconv.Itoa(i + 1), n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Nickname"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
}

func newRosterAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <nickname>...",
		Short: "Add members to the roster",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range args {
				added, err := app.Roster.Add(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("add %q: %w", name, err)
				}
				if added {
					fmt.Fprintf(out, "added %s\n", name)
				} else {
					fmt.Fprintf(out, "%s is already listed\n", name)
				}
			}
			return nil
		},
	}
}

func newRosterRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a roster member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Roster.Rename(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func newRosterDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <nickname>...",
		Short: "Remove members from the roster",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := app.Roster.Delete(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d\n", n, len(args))
			return nil
		},
	}
}
