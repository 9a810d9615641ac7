package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listing-intake/internal/enrich"
	"github.com/sells-group/listing-intake/internal/model"
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence <listing-id>",
	Short: "Re-sequence listing photos by room priority",
	Long:  "Assigns display order from the fixed room-priority table, leaving user-pinned slots in place, and promotes a primary photo when none is pinned.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listingID := args[0]

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.Store.ListImages(ctx, listingID)
		if err != nil {
			return eris.Wrap(err, "list images")
		}
		images := make([]*model.Image, len(records))
		for i := range records {
			images[i] = &records[i]
		}

		enrich.Sequence(images)
		primary := enrich.PickPrimary(images)

		order := make([]map[string]any, 0, len(images))
		for _, img := range images {
			if err := env.Store.UpdateImage(ctx, img); err != nil {
				return eris.Wrapf(err, "update image %s", img.ID)
			}
			order = append(order, map[string]any{
				"image_id":      img.ID,
				"room_label":    img.RoomLabel(),
				"display_order": img.DisplayOrder,
				"is_primary":    img.IsPrimary,
			})
		}

		out := map[string]any{
			"listing_id": listingID,
			"order":      order,
		}
		if primary != nil {
			out["primary_image_id"] = primary.ID
		}
		return printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(sequenceCmd)
}
