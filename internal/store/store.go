// Package store persists leads and scrape sessions.
package store

import (
	"context"

	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/scoring"
)

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Leads
	InsertLead(ctx context.Context, lead model.Lead) (inserted bool, dedupKey string, err error)
	BulkInsert(ctx context.Context, leads []model.Lead) (model.InsertStats, error)
	GetAllLeads(ctx context.Context, minScore int) ([]model.Lead, error)
	GetUnexportedLeads(ctx context.Context, minScore int) ([]model.Lead, error)
	MarkExported(ctx context.Context, ids []int64) error
	IsDuplicate(ctx context.Context, name, city string) (bool, error)
	ListQualified(ctx context.Context, tier scoring.Tier) ([]model.Lead, error)

	// Aggregates for exports and the dashboard
	CountByNiche(ctx context.Context) (map[string]int, error)
	AvgScoreByNiche(ctx context.Context) (map[string]float64, error)

	// Sessions
	StartSession(ctx context.Context, niches []string, configSnapshot string) (int64, error)
	EndSession(ctx context.Context, stats model.RunStats) error
	GetSessions(ctx context.Context, limit int) ([]model.Session, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
