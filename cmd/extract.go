package main

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/extract"
	"github.com/sells-group/listing-intake/internal/model"
)

var extractMode string

var extractCmd = &cobra.Command{
	Use:   "extract <listing-id> <file>...",
	Short: "Extract canonical fields from listing documents",
	Long:  "Runs AI field extraction over the given documents, records every candidate as a provenance fact, and applies the merged winners to the listing draft.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listingID := args[0]

		mode := extract.Mode(extractMode)
		switch mode {
		case extract.ModeAuto, extract.ModeNativeText, extract.ModeVision:
		default:
			return eris.Errorf("unknown extraction mode %q", extractMode)
		}

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		src := newFileSource()
		docs := make([]model.DocumentRef, 0, len(args)-1)
		for _, path := range args[1:] {
			doc := model.DocumentRef{ID: uuid.NewString(), Name: filepath.Base(path)}
			src.add(doc.ID, path)
			docs = append(docs, doc)
		}

		extractor := extract.New(env.AI, cfg.Extract, cfg.Anthropic)
		result, err := extractor.ExtractDocuments(ctx, listingID, docs, src, mode)
		if err != nil {
			return err
		}

		// Fill material fields the documents left empty from the listing's
		// photos, when any are registered.
		if photos, err := loadListingPhotos(ctx, env, listingID); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			extractor.BackfillMaterials(ctx, listingID, result, photos)
		}

		if len(result.Facts) > 0 {
			if err := env.Store.AppendFacts(ctx, result.Facts); err != nil {
				return eris.Wrap(err, "append facts")
			}
		}

		rec, err := env.Listing.Get(ctx, listingID)
		if err != nil {
			return err
		}
		applied := extract.Apply(rec.Canonical, result.Merged)
		if _, err := env.Listing.Update(ctx, listingID, rec.Canonical); err != nil {
			return err
		}

		zap.L().Info("extraction applied",
			zap.String("listing_id", listingID),
			zap.Int("fields_applied", len(applied)),
		)
		return printJSON(map[string]any{
			"listing_id":     listingID,
			"documents":      len(docs),
			"fields_applied": applied,
			"warnings":       result.Warnings,
		})
	},
}

// loadListingPhotos reads the listing's registered images from disk for
// material backfill. Unreadable images are skipped with a warning.
func loadListingPhotos(ctx context.Context, env *env, listingID string) ([]extract.Photo, error) {
	images, err := env.Store.ListImages(ctx, listingID)
	if err != nil {
		return nil, eris.Wrap(err, "list images")
	}
	var photos []extract.Photo
	var loader localImages
	for _, img := range images {
		data, mediaType, err := loader.ImageData(ctx, img)
		if err != nil {
			zap.L().Warn("skipping unreadable photo",
				zap.String("image_id", img.ID),
				zap.Error(err),
			)
			continue
		}
		photos = append(photos, extract.Photo{ID: img.ID, MediaType: mediaType, Data: data})
	}
	return photos, nil
}

func init() {
	extractCmd.Flags().StringVar(&extractMode, "mode", string(extract.ModeAuto), "extraction mode: auto, native_text_only, vision_only")
	rootCmd.AddCommand(extractCmd)
}
