// Package pipeline orchestrates the lead run: scrape, build, enrich,
// filter, persist, and export.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/config"
	"github.com/realisrare-223/leadparser/internal/enrich"
	"github.com/realisrare-223/leadparser/internal/export"
	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/store"
)

// Scraper produces raw business records for one niche in one locality.
type Scraper interface {
	ScrapeNiche(ctx context.Context, niche, location string) ([]model.RawRecord, error)
}

// RunOptions selects what a single pipeline invocation does.
type RunOptions struct {
	// Niches overrides the configured niche list when non-empty.
	Niches []string

	// DryRun processes records without writing to the store or disk.
	DryRun bool

	// ExportOnly skips scraping and re-exports what the store holds.
	ExportOnly bool

	// SkipXLSX omits the workbook export.
	SkipXLSX bool

	// SkipEnrich skips the phone and social lookup waterfall.
	SkipEnrich bool

	// SkipExport persists leads without writing any export files.
	SkipExport bool
}

// Coordinator runs the pipeline phases in order and owns the run's
// session bookkeeping.
type Coordinator struct {
	cfg      *config.Config
	store    store.Store
	scraper  Scraper
	enricher *enrich.Orchestrator
	builder  *Builder
	tracker  *Tracker
	csv      *export.CSVWriter
	xlsx     *export.XLSXWriter
}

func New(cfg *config.Config, st store.Store, scraper Scraper, enricher *enrich.Orchestrator, builder *Builder, tracker *Tracker) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		store:    st,
		scraper:  scraper,
		enricher: enricher,
		builder:  builder,
		tracker:  tracker,
		csv:      export.NewCSV(cfg.Export.OutputDir),
		xlsx:     export.NewXLSX(cfg.Export.OutputDir),
	}
}

// Run executes one full pipeline pass. Only one run may be active at a
// time; a concurrent call returns ErrRunInProgress. A cancelled context
// stops between niches and still finalizes the session with the counts
// accumulated so far.
func (c *Coordinator) Run(ctx context.Context, opts RunOptions) (*model.RunStats, error) {
	runID, err := c.tracker.Begin()
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("run_id", runID))
	stats, err := c.run(ctx, log, opts)
	c.tracker.End(err)
	return stats, err
}

func (c *Coordinator) run(ctx context.Context, log *zap.Logger, opts RunOptions) (*model.RunStats, error) {
	if opts.ExportOnly {
		stats := &model.RunStats{}
		return stats, c.export(ctx, log, opts.SkipXLSX)
	}

	niches := opts.Niches
	if len(niches) == 0 {
		niches = c.cfg.Niches
	}
	if len(niches) == 0 {
		return nil, eris.New("pipeline: no niches configured")
	}

	stats := &model.RunStats{Niches: len(niches)}
	if !opts.DryRun {
		if _, err := c.store.StartSession(ctx, niches, c.cfg.Snapshot()); err != nil {
			return nil, err
		}
		defer func() {
			if err := c.store.EndSession(context.WithoutCancel(ctx), *stats); err != nil {
				log.Warn("session finalize failed", zap.Error(err))
			}
		}()
	}

	location := c.cfg.Location.Location()
	for _, niche := range niches {
		if ctx.Err() != nil {
			log.Info("run cancelled", zap.String("niche", niche))
			break
		}
		c.tracker.SetNiche(niche)
		nlog := log.With(zap.String("niche", niche))

		records, err := c.scraper.ScrapeNiche(ctx, niche, location)
		if err != nil {
			stats.Errors++
			nlog.Error("scrape failed", zap.Error(err))
			continue
		}
		stats.Total += len(records)
		nlog.Info("scraped records", zap.Int("count", len(records)))

		leads := c.buildLeads(records, niche)
		if !opts.SkipEnrich {
			c.enrichMissingPhones(ctx, nlog, leads)
		}
		leads = ApplyFilters(leads, c.cfg.Filters)

		if opts.DryRun {
			stats.New += len(leads)
			continue
		}

		// Scraped work is persisted even when the run is being cancelled.
		ins, err := c.store.BulkInsert(context.WithoutCancel(ctx), leads)
		if err != nil {
			stats.Errors++
			nlog.Error("insert failed", zap.Error(err))
			continue
		}
		stats.New += ins.New
		stats.Duplicates += ins.Duplicates
		stats.Errors += ins.Errors
		c.tracker.AddLeads(ins.New)
		nlog.Info("niche complete",
			zap.Int("new", ins.New),
			zap.Int("duplicates", ins.Duplicates),
			zap.Int("errors", ins.Errors),
		)
	}

	if opts.DryRun {
		log.Info("dry run complete", zap.Int("total", stats.Total), zap.Int("kept", stats.New))
		return stats, nil
	}
	if opts.SkipExport {
		return stats, nil
	}
	return stats, c.export(context.WithoutCancel(ctx), log, opts.SkipXLSX)
}

func (c *Coordinator) buildLeads(records []model.RawRecord, niche string) []model.Lead {
	now := time.Now()
	leads := make([]model.Lead, 0, len(records))
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		leads = append(leads, c.builder.BuildLead(rec, niche, now))
	}
	return leads
}

func (c *Coordinator) enrichMissingPhones(ctx context.Context, log *zap.Logger, leads []model.Lead) {
	if c.enricher == nil {
		return
	}
	ptrs := make([]*model.Lead, len(leads))
	for i := range leads {
		ptrs[i] = &leads[i]
	}
	found := c.enricher.EnrichBatch(ctx, ptrs)
	if found > 0 {
		log.Info("enrichment found phones", zap.Int("count", found))
	}
}

// export writes the CSV snapshot of every lead at or above the score
// floor, then the workbook of not-yet-exported leads, marking those rows
// exported afterwards.
func (c *Coordinator) export(ctx context.Context, log *zap.Logger, skipXLSX bool) error {
	now := time.Now()

	leads, err := c.store.GetAllLeads(ctx, c.cfg.Filters.MinLeadScore)
	if err != nil {
		return err
	}
	if _, err := c.csv.Write(leads, now); err != nil {
		return err
	}

	if skipXLSX {
		return nil
	}

	pending, err := c.store.GetUnexportedLeads(ctx, c.cfg.Filters.MinLeadScore)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Info("no leads pending workbook export")
		return nil
	}

	counts, err := c.store.CountByNiche(ctx)
	if err != nil {
		return err
	}
	avgs, err := c.store.AvgScoreByNiche(ctx)
	if err != nil {
		return err
	}
	if _, err := c.xlsx.Write(pending, counts, avgs, now); err != nil {
		return err
	}

	ids := make([]int64, len(pending))
	for i, l := range pending {
		ids[i] = l.ID
	}
	return c.store.MarkExported(ctx, ids)
}
