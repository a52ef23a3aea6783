// Package server exposes the local dashboard API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/pipeline"
	"github.com/realisrare-223/leadparser/internal/scoring"
	"github.com/realisrare-223/leadparser/internal/store"
)

// Runner starts pipeline runs for the scrape and export endpoints.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*model.RunStats, error)
}

// Server serves the dashboard API: run status, qualified leads by tier,
// aggregate stats, and scrape/export triggers.
type Server struct {
	store   store.Store
	tracker *pipeline.Tracker
	runner  Runner

	// runCtx outlives individual requests so a triggered scrape is not
	// cancelled when the triggering request returns.
	runCtx context.Context
}

func New(st store.Store, tracker *pipeline.Tracker, runner Runner, runCtx context.Context) *Server {
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &Server{store: st, tracker: tracker, runner: runner, runCtx: runCtx}
}

// Handler builds the chi router for the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/leads", s.handleLeads)
	r.Get("/api/stats", s.handleStats)
	r.Post("/api/scrape", s.handleScrape)
	r.Post("/api/export", s.handleExport)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Status())
}

// handleLeads returns qualified leads, optionally narrowed to one tier
// via ?filter=hot|warm|medium|all.
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	var tier scoring.Tier
	switch strings.ToLower(r.URL.Query().Get("filter")) {
	case "", "all":
		tier = ""
	case "hot":
		tier = scoring.TierHot
	case "warm":
		tier = scoring.TierWarm
	case "medium":
		tier = scoring.TierMedium
	default:
		writeError(w, http.StatusBadRequest, "filter must be hot, warm, medium, or all")
		return
	}

	leads, err := s.store.ListQualified(r.Context(), tier)
	if err != nil {
		zap.L().Error("list leads failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(leads),
		"leads": leads,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := s.store.CountByNiche(ctx)
	if err != nil {
		zap.L().Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	avgs, err := s.store.AvgScoreByNiche(ctx)
	if err != nil {
		zap.L().Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	tiers := make(map[string]int, 3)
	for _, tier := range []scoring.Tier{scoring.TierHot, scoring.TierWarm, scoring.TierMedium} {
		leads, err := s.store.ListQualified(ctx, tier)
		if err != nil {
			zap.L().Error("stats query failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		tiers[strings.ToLower(string(tier))] = len(leads)
	}

	byNiche := make(map[string]map[string]any, len(counts))
	for niche, n := range counts {
		byNiche[niche] = map[string]any{
			"count":     n,
			"avg_score": avgs[niche],
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_leads": total,
		"hot":         tiers["hot"],
		"warm":        tiers["warm"],
		"medium":      tiers["medium"],
		"by_niche":    byNiche,
	})
}

// handleScrape kicks off a pipeline run in the background. A run already
// in progress yields 409 rather than queueing.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Niches []string `json:"niches"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if s.tracker.Status().State == pipeline.StateRunning {
		writeError(w, http.StatusConflict, "a scrape run is already in progress")
		return
	}

	go func() {
		stats, err := s.runner.Run(s.runCtx, pipeline.RunOptions{Niches: req.Niches})
		if err != nil {
			if eris.Is(err, pipeline.ErrRunInProgress) {
				zap.L().Warn("scrape trigger lost the run slot")
				return
			}
			zap.L().Error("triggered run failed", zap.Error(err))
			return
		}
		zap.L().Info("triggered run complete",
			zap.Int("new", stats.New),
			zap.Int("duplicates", stats.Duplicates),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleExport re-exports the stored leads synchronously.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if _, err := s.runner.Run(r.Context(), pipeline.RunOptions{ExportOnly: true}); err != nil {
		if eris.Is(err, pipeline.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "a run is already in progress")
			return
		}
		zap.L().Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "exported"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
