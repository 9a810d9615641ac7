package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/geo"
)

var geoCmd = &cobra.Command{
	Use:   "geo <listing-id>",
	Short: "Enrich a listing with geo intelligence",
	Long:  "Geocodes the listing address and fills empty canonical fields with coordinates, county, driving directions, nearby points of interest, and water proximity.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listingID := args[0]

		env, err := initEnv(ctx, "geo")
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Listing.Get(ctx, listingID)
		if err != nil {
			return err
		}

		resolver := geo.NewResolver(placesClient(), env.Store, cfg.Geo)
		summary, err := resolver.Enrich(ctx, rec.Canonical)
		if err != nil {
			return err
		}
		if _, err := env.Listing.Update(ctx, listingID, rec.Canonical); err != nil {
			return err
		}

		zap.L().Info("geo enrichment applied",
			zap.String("listing_id", listingID),
			zap.Strings("fields_set", summary.FieldsSet),
		)
		return printJSON(map[string]any{
			"listing_id": listingID,
			"latitude":   summary.Latitude,
			"longitude":  summary.Longitude,
			"fields_set": summary.FieldsSet,
			"warnings":   summary.Warnings,
		})
	},
}

func init() {
	rootCmd.AddCommand(geoCmd)
}
