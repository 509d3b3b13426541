package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/sweetcost/internal/calculations"
	"github.com/Simplici0/sweetcost/internal/config"
	"github.com/Simplici0/sweetcost/internal/db"
	"github.com/Simplici0/sweetcost/internal/log"
	"github.com/Simplici0/sweetcost/internal/migrations"
	"github.com/Simplici0/sweetcost/internal/pricing"
	"github.com/Simplici0/sweetcost/internal/seed"
	"github.com/Simplici0/sweetcost/internal/storage"
)

const maxBodyBytes = 1 << 20

type server struct {
	store    *calculations.Store
	auth     *tokenAuth
	currency string
}

type errorResponse struct {
	Error      string             `json:"error"`
	Violations pricing.Violations `json:"violations,omitempty"`
}

func main() {
	if err := run(context.Background()); err != nil {
		log.Error(context.Background(), "server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.Load()
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		log.Warn(ctx, "ignoring LOG_LEVEL", "err", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	version, err := migrations.Version(ctx, database, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info(ctx, "database ready", "path", cfg.DBPath, "schema_version", version)

	store, err := calculations.Open(ctx, storage.NewSQLite(database), calculations.WithDefaultMarkup(cfg.DefaultMarkupPercent))
	if err != nil {
		return fmt.Errorf("open calculation store: %w", err)
	}

	if cfg.SeedPrices {
		if _, err := seed.Run(ctx, store); err != nil {
			return fmt.Errorf("seed price book: %w", err)
		}
	}

	srv := &server{
		store:    store,
		auth:     newTokenAuth(cfg.APIToken),
		currency: cfg.CurrencySymbol,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info(ctx, "listening", "addr", httpServer.Addr, "env", cfg.Env, "auth", srv.auth.enabled())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.middleware)

		r.Get("/drafts/new", s.handleNewDraft)
		r.Post("/drafts/apply", s.handleApplyDraftPatch)

		r.Route("/calculations", func(r chi.Router) {
			r.Get("/", s.handleListCalculations)
			r.Post("/", s.handleCreateCalculation)
			r.Post("/preview", s.handlePreview)
			r.Get("/{id}", s.handleGetCalculation)
			r.Put("/{id}", s.handleUpdateCalculation)
			r.Delete("/{id}", s.handleDeleteCalculation)
			r.Get("/{id}/draft", s.handleEditDraft)
			r.Get("/{id}/export.csv", s.handleExportCSV)
			r.Get("/{id}/export.txt", s.handleExportText)
		})

		r.Route("/prices", func(r chi.Router) {
			r.Get("/", s.handleListPrices)
			r.Patch("/{name}", s.handlePatchPrice)
			r.Delete("/{name}", s.handleDeletePrice)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithAttrs(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// writeJSON encodes v before touching the response, so an encoding failure
// still produces a well-formed 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error(context.Background(), "encode response", "err", err)
		buf.Reset()
		buf.WriteString(`{"error":"internal error"}` + "\n")
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// writeError maps store and pricing errors to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var violations pricing.Violations
	switch {
	case errors.As(err, &violations):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid input", Violations: violations})
	case errors.Is(err, calculations.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "calculation not found"})
	case errors.Is(err, pricing.ErrNonPositivePortions),
		errors.Is(err, pricing.ErrNonPositivePriceQuantity),
		errors.Is(err, pricing.ErrNonFiniteCost):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
