package main

import (
	"github.com/spf13/cobra"
)

var createUser string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new draft listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Listing.Create(ctx, createUser)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

func init() {
	createCmd.Flags().StringVar(&createUser, "user", "cli", "user id recorded as the listing creator")
	rootCmd.AddCommand(createCmd)
}
