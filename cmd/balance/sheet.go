package main

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/balancesheet"
	"github.com/spf13/cobra"
)

func sheetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheet",
		Short: "Print the sample balance sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), balancesheet.Sample().Render())
			return err
		},
	}
}
