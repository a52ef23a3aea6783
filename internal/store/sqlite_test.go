package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/scoring"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testLead(name, city string) model.Lead {
	return model.Lead{
		Niche:     "plumber",
		Name:      name,
		City:      city,
		State:     "TX",
		Phone:     "(512) 555-0100",
		LeadScore: 10,
		DateAdded: "2025-01-15",
	}
}

func TestInsertLeadAndDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inserted, key, err := s.InsertLead(ctx, testLead("Joe's Plumbing", "Austin"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, key)

	// Same name and city, different casing: same business.
	again, key2, err := s.InsertLead(ctx, testLead("JOE'S PLUMBING", "austin"))
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, key, key2)

	dup, err := s.IsDuplicate(ctx, "  Joe's Plumbing  ", "Austin")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = s.IsDuplicate(ctx, "Other Biz", "Austin")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestInsertLeadNeverModifiesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testLead("Biz", "Austin")
	first.Phone = "(512) 555-0100"
	_, _, err := s.InsertLead(ctx, first)
	require.NoError(t, err)

	second := testLead("Biz", "Austin")
	second.Phone = "(999) 999-9999"
	inserted, _, err := s.InsertLead(ctx, second)
	require.NoError(t, err)
	require.False(t, inserted)

	leads, err := s.GetAllLeads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "(512) 555-0100", leads[0].Phone)
}

func TestBulkInsertCountsOutcomes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.BulkInsert(ctx, []model.Lead{
		testLead("A Biz", "Austin"),
		testLead("B Biz", "Austin"),
		testLead("a biz", "Austin"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.New)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Zero(t, stats.Errors)
}

func TestGetAllLeadsOrderingAndMinScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testLead("Low", "Austin")
	a.Niche = "plumber"
	a.LeadScore = 5
	b := testLead("High", "Austin")
	b.Niche = "plumber"
	b.LeadScore = 20
	c := testLead("Other", "Austin")
	c.Niche = "electrician"
	c.LeadScore = 15

	for _, l := range []model.Lead{a, b, c} {
		_, _, err := s.InsertLead(ctx, l)
		require.NoError(t, err)
	}

	leads, err := s.GetAllLeads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	// Niche ascending, then score descending.
	assert.Equal(t, "Other", leads[0].Name)
	assert.Equal(t, "High", leads[1].Name)
	assert.Equal(t, "Low", leads[2].Name)

	leads, err = s.GetAllLeads(ctx, 15)
	require.NoError(t, err)
	require.Len(t, leads, 2)
}

func TestListQualifiedByTier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hot := testLead("Hot Biz", "Austin")
	hot.LeadScore = 22
	warm := testLead("Warm Biz", "Austin")
	warm.LeadScore = 14
	site := testLead("Has Site", "Austin")
	site.LeadScore = 30
	site.Website = "https://example.com"
	mute := testLead("No Phone", "Austin")
	mute.LeadScore = 30
	mute.Phone = ""

	for _, l := range []model.Lead{hot, warm, site, mute} {
		_, _, err := s.InsertLead(ctx, l)
		require.NoError(t, err)
	}

	all, err := s.ListQualified(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "leads with a website or without a phone are not qualified")

	hots, err := s.ListQualified(ctx, scoring.TierHot)
	require.NoError(t, err)
	require.Len(t, hots, 1)
	assert.Equal(t, "Hot Biz", hots[0].Name)

	warms, err := s.ListQualified(ctx, scoring.TierWarm)
	require.NoError(t, err)
	require.Len(t, warms, 1)
	assert.Equal(t, "Warm Biz", warms[0].Name)
}

func TestMarkExportedIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.InsertLead(ctx, testLead("A Biz", "Austin"))
	require.NoError(t, err)
	_, _, err = s.InsertLead(ctx, testLead("B Biz", "Austin"))
	require.NoError(t, err)

	pending, err := s.GetUnexportedLeads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	ids := []int64{pending[0].ID}
	require.NoError(t, s.MarkExported(ctx, ids))
	require.NoError(t, s.MarkExported(ctx, ids))
	require.NoError(t, s.MarkExported(ctx, nil))

	pending, err = s.GetUnexportedLeads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestNicheAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testLead("A Biz", "Austin")
	a.Niche = "plumber"
	a.LeadScore = 10
	b := testLead("B Biz", "Austin")
	b.Niche = "plumber"
	b.LeadScore = 20
	c := testLead("C Biz", "Austin")
	c.Niche = "roofer"
	c.LeadScore = 8

	for _, l := range []model.Lead{a, b, c} {
		_, _, err := s.InsertLead(ctx, l)
		require.NoError(t, err)
	}

	counts, err := s.CountByNiche(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"plumber": 2, "roofer": 1}, counts)

	avgs, err := s.AvgScoreByNiche(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, avgs["plumber"], 0.001)
	assert.InDelta(t, 8.0, avgs["roofer"], 0.001)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.StartSession(ctx, []string{"plumber", "roofer"}, "niches: [plumber, roofer]")
	require.NoError(t, err)
	assert.Positive(t, id)

	require.NoError(t, s.EndSession(ctx, model.RunStats{Total: 10, New: 7, Duplicates: 2, Errors: 1}))

	sessions, err := s.GetSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	sess := sessions[0]
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, []string{"plumber", "roofer"}, sess.NichesSearched)
	assert.Equal(t, 10, sess.TotalScraped)
	assert.Equal(t, 7, sess.NewLeads)
	assert.Equal(t, 2, sess.Duplicates)
	assert.Equal(t, 1, sess.Errors)
	require.NotNil(t, sess.FinishedAt)
	assert.False(t, sess.FinishedAt.Before(sess.StartedAt))
}

func TestEndSessionWithoutOpenSession(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.EndSession(context.Background(), model.RunStats{}))
}

func TestGetSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.StartSession(ctx, []string{"plumber"}, "")
		require.NoError(t, err)
		require.NoError(t, s.EndSession(ctx, model.RunStats{}))
	}

	sessions, err := s.GetSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Greater(t, sessions[0].ID, sessions[1].ID)
}

func TestGetUnexportedLeadsHonorsScoreFloor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	low := testLead("Low Score Co", "Austin")
	low.LeadScore = 1
	high := testLead("High Score Co", "Austin")
	high.LeadScore = 20
	for _, l := range []model.Lead{low, high} {
		_, _, err := s.InsertLead(ctx, l)
		require.NoError(t, err)
	}

	pending, err := s.GetUnexportedLeads(ctx, 12)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "High Score Co", pending[0].Name)

	pending, err = s.GetUnexportedLeads(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
