package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the processed tables and KPIs to the dashboard layer",
	Long: `Starts the JSON API the interactive dashboard consumes: stage catalog
and detection candidates, refresh over a date window, normalized lead and
customer tables, KPIs, and bulk remediation of mislabeled leads.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server bundles the fetch service and session store behind the HTTP API.
// refreshMu serializes refreshes: a second trigger while one is in flight
// is rejected rather than queued.
type server struct {
	svc       *funnel.Service
	store     *store.Memory
	refreshMu sync.Mutex
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newFunnelService()
	if err != nil {
		return err
	}

	s := &server{svc: svc, store: store.New()}

	// Warm the stage catalog so the dashboard has candidates immediately.
	s.store.SetCatalog(svc.FetchStageCatalog(ctx))

	port := servePort
	if port == 0 {
		port = cfg.Server.Port
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router(),
	}

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
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stages", s.handleStages)
		r.Put("/stages/customer", s.handleSetCustomerStages)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/leads", s.handleLeads)
		r.Get("/customers", s.handleCustomers)
		r.Get("/kpis", s.handleKPIs)
		r.Post("/leads/remediate", s.handleRemediate)
	})

	return r
}

// handleStages returns the stage catalog plus the heuristic customer-stage
// candidates for human confirmation.
func (s *server) handleStages(w http.ResponseWriter, r *http.Request) {
	catalog := s.store.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"stages":                   catalog.Stages(),
		"detected_customer_stages": funnel.DetectCustomerStages(catalog),
		"confirmed_stage_ids":      s.store.CustomerStages(),
	})
}

// handleSetCustomerStages commits the human-confirmed customer stage set.
func (s *server) handleSetCustomerStages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StageIDs []string `json:"stage_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.store.SetCustomerStages(req.StageIDs)
	writeJSON(w, http.StatusOK, map[string]any{"confirmed_stage_ids": s.store.CustomerStages()})
}

// handleRefresh runs the acquisition pipeline for the requested window and
// replaces the cached tables. Concurrent refreshes are rejected with 409.
func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to dates are required")
		return
	}

	if !s.refreshMu.TryLock() {
		writeError(w, http.StatusConflict, "a refresh is already in flight")
		return
	}
	defer s.refreshMu.Unlock()

	win := funnel.Window{From: req.From, To: req.To, Loc: s.svc.Location()}

	contacts, contactStats := s.svc.FetchContacts(r.Context(), win)
	deals, dealStats := s.svc.FetchDeals(r.Context(), win, s.store.CustomerStages())
	s.store.ReplaceTables(contacts, deals)

	writeJSON(w, http.StatusOK, map[string]any{
		"contact_stats": contactStats,
		"deal_stats":    dealStats,
	})
}

func (s *server) handleLeads(w http.ResponseWriter, r *http.Request) {
	rows := s.store.Contacts()
	if rows == nil {
		rows = []funnel.ContactRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	rows := s.store.Deals()
	if rows == nil {
		rows = []funnel.DealRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleKPIs recomputes KPIs from the cached tables. An empty contact table
// yields an empty object, mirroring the aggregator's nil result.
func (s *server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	kpis := s.store.KPIs()
	if kpis == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, kpis)
}

// handleRemediate bulk re-labels any "Customer"-labeled cached lead to
// Qualified Lead.
func (s *server) handleRemediate(w http.ResponseWriter, r *http.Request) {
	fixed := s.store.Remediate()
	if fixed > 0 {
		zap.L().Warn("remediated customer-labeled leads", zap.Int("fixed", fixed))
	}
	writeJSON(w, http.StatusOK, map[string]int{"fixed": fixed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
