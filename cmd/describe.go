package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/enrich"
)

var describeCmd = &cobra.Command{
	Use:   "describe <listing-id>",
	Short: "Generate listing prose from canonical data",
	Long:  "Writes the AI property description and, when the public and syndication remarks are still empty, generates MLS-safe remarks from the populated canonical fields.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listingID := args[0]

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Listing.Get(ctx, listingID)
		if err != nil {
			return err
		}

		describer := enrich.NewDescriber(env.AI, cfg.Anthropic)
		set, err := describer.EnrichRemarks(ctx, rec.Canonical)
		if err != nil {
			return err
		}
		if _, err := env.Listing.Update(ctx, listingID, rec.Canonical); err != nil {
			return err
		}

		zap.L().Info("descriptions applied",
			zap.String("listing_id", listingID),
			zap.Strings("fields_set", set),
		)
		return printJSON(map[string]any{
			"listing_id":              listingID,
			"fields_set":              set,
			"ai_property_description": rec.Canonical.Remarks.AIPropertyDescription,
		})
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
