package main

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <listing-id>",
	Short: "Print a listing with its media section refreshed from image records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Listing.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
