package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/monitoring"
	"github.com/sells-group/prospect-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(env.Metrics, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, env.Metrics.Snapshot())
		})
		r.Get("/contacts/{id}", handleGetContact(env))
		r.Post("/contacts/{id}/enrich", handleEnrichContact(env))
		r.Post("/contacts/{id}/feedback", handleFeedback(env))
		r.Get("/companies/{id}/contacts", handleListContacts(env))
		r.Post("/companies/{id}/enrich", handleEnrichCompany(env))
		r.Post("/companies/{id}/discover", handleDiscover(env))
		r.Put("/search-approaches/{id}", handleSaveApproach(env))
	})

	return r
}

func handleGetContact(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contact, err := env.Store.GetContact(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func handleEnrichContact(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := enrich.Options{ForceRefresh: r.URL.Query().Get("force") == "true"}

		result, err := env.Service.EnrichContact(r.Context(), chi.URLParam(r, "id"), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleEnrichCompany(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := enrich.Options{ForceRefresh: r.URL.Query().Get("force") == "true"}

		results, err := env.Service.EnrichCompany(r.Context(), chi.URLParam(r, "id"), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleDiscover(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enrichAfter := r.URL.Query().Get("enrich") == "true"

		created, err := env.Service.DiscoverContacts(r.Context(), chi.URLParam(r, "id"), enrichAfter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, created)
	}
}

func handleFeedback(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		contact, err := env.Service.AddFeedback(r.Context(), chi.URLParam(r, "id"), model.FeedbackType(req.Type))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func handleListContacts(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minProb, _ := strconv.Atoi(r.URL.Query().Get("min_probability"))

		contacts, err := env.Store.ListContacts(r.Context(), store.ContactFilter{
			CompanyID:      chi.URLParam(r, "id"),
			MinProbability: minProb,
			HasEmail:       r.URL.Query().Get("has_email") == "true",
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func handleSaveApproach(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var approach model.SearchApproach
		if err := json.NewDecoder(r.Body).Decode(&approach); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if approach.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "approach name is required"})
			return
		}
		// The path is authoritative for the ID.
		approach.ID = chi.URLParam(r, "id")

		if err := env.Store.SaveSearchApproach(r.Context(), &approach); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, approach)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if store.IsNotFound(err) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
