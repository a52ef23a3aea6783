package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"

	"github.com/realisrare-223/leadparser/internal/enrich"
	"github.com/realisrare-223/leadparser/internal/phone"
	"github.com/realisrare-223/leadparser/internal/pipeline"
	"github.com/realisrare-223/leadparser/internal/pitch"
	"github.com/realisrare-223/leadparser/internal/ratelimit"
	"github.com/realisrare-223/leadparser/internal/resilience"
	"github.com/realisrare-223/leadparser/internal/scoring"
	"github.com/realisrare-223/leadparser/internal/source"
	"github.com/realisrare-223/leadparser/internal/store"
	"github.com/realisrare-223/leadparser/pkg/directory"
	"github.com/realisrare-223/leadparser/pkg/websearch"
)

// signalContext derives a context cancelled on SIGINT or SIGTERM so an
// interrupted run stops between records, persists what it scraped, and
// finalizes its session row before the process exits.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "create database dir")
		}
	}
	st, err := store.NewSQLite(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// buildEnricher assembles the phone lookup waterfall from the configured
// directory sources, with the web search client as the final phone source
// and the social fallback behind the yelp listing scan.
func buildEnricher() *enrich.Orchestrator {
	limiter := ratelimit.New(
		time.Duration(cfg.Scraping.DelayMinMS)*time.Millisecond,
		time.Duration(cfg.Scraping.DelayMaxMS)*time.Millisecond,
	)
	basePolicy := resilience.DefaultPolicy()
	if cfg.Scraping.Retries > 0 {
		basePolicy.Attempts = cfg.Scraping.Retries
	}

	var (
		phones  []enrich.PhoneSource
		socials []enrich.SocialSource
	)
	for _, src := range cfg.Enrichment.Sources {
		if !src.Enabled {
			continue
		}
		policy := basePolicy
		policy.OnRetry = resilience.LogRetries(src.Name, "find_phone")
		opts := []directory.Option{
			directory.WithLimiter(limiter),
			directory.WithRetryPolicy(policy),
		}
		// Yelp uses its own search parameter names.
		if src.Name == "yelp" {
			opts = append(opts, directory.WithQueryParams("find_desc", "find_loc"))
		}
		client := directory.NewClient(src.Name, src.BaseURL, opts...)
		phones = append(phones, client)
		// Yelp listings carry social links, making it the primary
		// social source ahead of the web search fallback.
		if src.Name == "yelp" {
			socials = append(socials, client)
		}
	}

	searchPolicy := basePolicy
	searchPolicy.OnRetry = resilience.LogRetries("websearch", "search")
	search := websearch.NewClient(
		websearch.WithBaseURL(cfg.Enrichment.SearchBaseURL),
		websearch.WithLimiter(limiter),
		websearch.WithRetryPolicy(searchPolicy),
	)
	phones = append(phones, search)
	socials = append(socials, search)

	return enrich.New(
		phones,
		socials,
		phone.NewNormalizer("US"),
		cfg.Location.City,
		cfg.Location.State,
	)
}

func buildCoordinator(st store.Store, inputPath string, tracker *pipeline.Tracker) *pipeline.Coordinator {
	if inputPath == "" {
		inputPath = cfg.Scraping.InputPath
	}
	builder := pipeline.NewBuilder(
		scoring.New(cfg.Scoring, cfg.HighValueNiches),
		phone.NewNormalizer("US"),
		pitch.NewEngine(cfg.PitchTemplates, cfg.Location.City),
		cfg.Location.City,
		cfg.Location.State,
	)
	return pipeline.New(cfg, st, source.NewCSVFile(inputPath), buildEnricher(), builder, tracker)
}
