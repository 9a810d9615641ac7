package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/listing-intake/internal/mls"
)

var mapSystem string

var mapCmd = &cobra.Command{
	Use:   "map <listing-id>",
	Short: "Map a listing onto an MLS form schema",
	Long:  "Resolves every schema field from the canonical listing through defaults, transforms, type coercion, and enum matching, then validates the mapped set for autofill readiness.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listingID := args[0]

		env, err := initEnv(ctx, "core")
		if err != nil {
			return err
		}
		defer env.Close()

		system := mapSystem
		if system == "" {
			system = cfg.MLS.DefaultSystem
		}
		schema, err := mls.NewRegistry(cfg.MLS.SchemaDir).Load(system)
		if err != nil {
			return err
		}

		rec, err := env.Listing.Get(ctx, listingID)
		if err != nil {
			return err
		}

		scorer := mls.NewLLMScorer(env.AI, cfg.Anthropic.HaikuModel)
		mapper := mls.NewMapper(scorer, cfg.MLS)
		result, err := mapper.Map(ctx, rec.Canonical, schema)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	mapCmd.Flags().StringVar(&mapSystem, "system", "", "MLS system schema to map against (default from config)")
	rootCmd.AddCommand(mapCmd)
}
