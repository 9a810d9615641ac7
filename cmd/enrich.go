package main

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/enrich"
	"github.com/sells-group/listing-intake/internal/model"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <listing-id> [photo]...",
	Short: "Label, caption, and sequence listing photos",
	Long:  "Registers any photo files given as new images, runs vision labeling and captioning over every unannotated image, then assigns display order and picks the primary photo.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listingID := args[0]

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		// Register new photos in upload order after the existing ones.
		existing, err := env.Store.ListImages(ctx, listingID)
		if err != nil {
			return eris.Wrap(err, "list images")
		}
		next := 0
		for _, img := range existing {
			if img.UploadIndex >= next {
				next = img.UploadIndex + 1
			}
		}
		for _, path := range args[1:] {
			img := &model.Image{
				ID:          uuid.NewString(),
				ListingID:   listingID,
				Filename:    filepath.Base(path),
				StorageRef:  path,
				UploadIndex: next,
				UploadedAt:  time.Now().UTC(),
			}
			if err := env.Store.AddImage(ctx, img); err != nil {
				return eris.Wrap(err, "add image")
			}
			next++
		}

		records, err := env.Store.ListImages(ctx, listingID)
		if err != nil {
			return eris.Wrap(err, "list images")
		}
		images := make([]*model.Image, len(records))
		for i := range records {
			images[i] = &records[i]
		}

		analyzer := enrich.NewAnalyzer(env.AI, cfg.Enrich, cfg.Anthropic)
		result := analyzer.AnnotateAll(ctx, images, localImages{})

		enrich.Sequence(images)
		primary := enrich.PickPrimary(images)

		for _, img := range images {
			if err := env.Store.UpdateImage(ctx, img); err != nil {
				return eris.Wrapf(err, "update image %s", img.ID)
			}
		}

		zap.L().Info("enrichment complete",
			zap.String("listing_id", listingID),
			zap.Int("images", len(images)),
			zap.Int("annotated", result.Annotated),
		)
		out := map[string]any{
			"listing_id": listingID,
			"images":     len(images),
			"annotated":  result.Annotated,
			"warnings":   result.Warnings,
		}
		if primary != nil {
			out["primary_image_id"] = primary.ID
		}
		return printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
