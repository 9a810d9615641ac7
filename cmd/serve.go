package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/geo"
	"github.com/sells-group/listing-intake/internal/mls"
	"github.com/sells-group/listing-intake/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the listing intake JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: apiRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func apiRouter(env *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/listings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CreatedBy string `json:"created_by"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rec, err := env.Listing.Create(r.Context(), req.CreatedBy)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	})

	r.Get("/listings/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := env.Listing.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Put("/listings/{id}", func(w http.ResponseWriter, r *http.Request) {
		var c model.CanonicalListing
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := env.Listing.Update(r.Context(), chi.URLParam(r, "id"), &c)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	})

	r.Post("/listings/{id}/validate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		outcome, err := env.Listing.ValidateAndLock(r.Context(), chi.URLParam(r, "id"), req.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	})

	r.Get("/listings/{id}/facts", func(w http.ResponseWriter, r *http.Request) {
		facts, err := env.Store.ListFacts(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"facts": facts})
	})

	r.Post("/listings/{id}/geo", func(w http.ResponseWriter, r *http.Request) {
		listingID := chi.URLParam(r, "id")
		rec, err := env.Listing.Get(r.Context(), listingID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resolver := geo.NewResolver(placesClient(), env.Store, cfg.Geo)
		summary, err := resolver.Enrich(r.Context(), rec.Canonical)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if _, err := env.Listing.Update(r.Context(), listingID, rec.Canonical); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"listing_id": listingID,
			"fields_set": summary.FieldsSet,
			"warnings":   summary.Warnings,
		})
	})

	r.Post("/listings/{id}/map", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			System string `json:"system"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.System == "" {
			req.System = cfg.MLS.DefaultSystem
		}
		schema, err := mls.NewRegistry(cfg.MLS.SchemaDir).Load(req.System)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rec, err := env.Listing.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		mapper := mls.NewMapper(mls.NewLLMScorer(env.AI, cfg.Anthropic.HaikuModel), cfg.MLS)
		result, err := mapper.Map(r.Context(), rec.Canonical, schema)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var locked *model.LockedStateError
	var geocode *geo.GeocodeError
	var schema *mls.SchemaError
	switch {
	case errors.As(err, &locked):
		writeError(w, http.StatusConflict, locked.Error())
	case errors.As(err, &geocode):
		writeError(w, http.StatusUnprocessableEntity, geocode.Error())
	case errors.As(err, &schema):
		writeError(w, http.StatusBadRequest, schema.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, eris.Cause(err).Error())
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
