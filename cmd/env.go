package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-intake/internal/listing"
	"github.com/sells-group/listing-intake/internal/store"
	"github.com/sells-group/listing-intake/pkg/anthropic"
	"github.com/sells-group/listing-intake/pkg/places"
)

// env bundles the shared collaborators commands need.
type env struct {
	Store   store.Store
	AI      anthropic.Client
	Listing *listing.Service
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for the given mode and opens the store and AI
// client.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	return &env{
		Store:   st,
		AI:      anthropic.NewClient(cfg.Anthropic.Key),
		Listing: listing.NewService(st),
	}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
	return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func placesClient() places.Client {
	return places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithRateLimit(cfg.Places.RatePerSec, cfg.Places.BurstSize),
		places.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Places.TimeoutSecs) * time.Second}),
	)
}
