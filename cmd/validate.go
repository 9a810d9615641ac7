package main

import (
	"github.com/spf13/cobra"
)

var validateUser string

var validateCmd = &cobra.Command{
	Use:   "validate <listing-id>",
	Short: "Validate required fields and lock the listing",
	Long:  "Checks the required canonical fields and, when all are present, moves the listing from draft to locked. A locked listing rejects further edits.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		outcome, err := env.Listing.ValidateAndLock(ctx, args[0], validateUser)
		if err != nil {
			return err
		}
		return printJSON(outcome)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateUser, "user", "cli", "user id recorded as the validator")
	rootCmd.AddCommand(validateCmd)
}
