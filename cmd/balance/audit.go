package main

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit [SESSION]",
		Short: "List recorded repair decisions",
		Long:  `List the decisions made in repair sessions: patterns added, rows
overridden and sessions stopped early. Give a session ID to see one session.

The audit log is a record only; classify never loads rules from it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var session string
			if len(args) == 1 {
				session = args[0]
			}

			actions, err := store.ListRepairActions(ctx, session)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(actions) == 0 {
				_, err := fmt.Fprintln(out, cli.FormatInfo("No repair actions recorded"))
				return err
			}
			_, err = fmt.Fprintln(out, cli.RenderRepairActions(actions))
			return err
		},
	}
}
