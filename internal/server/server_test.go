package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/pipeline"
	"github.com/realisrare-223/leadparser/internal/store"
)

type stubRunner struct {
	mu    sync.Mutex
	calls []pipeline.RunOptions
	err   error
}

func (r *stubRunner) Run(_ context.Context, opts pipeline.RunOptions) (*model.RunStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, opts)
	if r.err != nil {
		return nil, r.err
	}
	return &model.RunStats{}, nil
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore, *pipeline.Tracker, *stubRunner) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	tracker := pipeline.NewTracker()
	runner := &stubRunner{}
	ts := httptest.NewServer(New(st, tracker, runner, context.Background()).Handler())
	t.Cleanup(ts.Close)
	return ts, st, tracker, runner
}

func seedLead(t *testing.T, st *store.SQLiteStore, name string, score int, website string) {
	t.Helper()
	_, _, err := st.InsertLead(context.Background(), model.Lead{
		Niche:     "plumber",
		Name:      name,
		City:      "Austin",
		Phone:     "(512) 555-0100",
		Website:   website,
		LeadScore: score,
	})
	require.NoError(t, err)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	ts, _, tracker, _ := newTestServer(t)

	var status pipeline.Status
	code := getJSON(t, ts.URL+"/api/status", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, pipeline.StateIdle, status.State)

	_, err := tracker.Begin()
	require.NoError(t, err)
	defer tracker.End(nil)

	code = getJSON(t, ts.URL+"/api/status", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, pipeline.StateRunning, status.State)
}

func TestLeadsEndpointFilters(t *testing.T) {
	ts, st, _, _ := newTestServer(t)
	seedLead(t, st, "Hot Biz", 22, "")
	seedLead(t, st, "Warm Biz", 14, "")
	seedLead(t, st, "Has Site", 30, "https://example.com")

	var body struct {
		Count int          `json:"count"`
		Leads []model.Lead `json:"leads"`
	}

	code := getJSON(t, ts.URL+"/api/leads", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, body.Count, "lead with a website is not qualified")

	code = getJSON(t, ts.URL+"/api/leads?filter=hot", &body)
	assert.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Hot Biz", body.Leads[0].Name)

	code = getJSON(t, ts.URL+"/api/leads?filter=warm", &body)
	assert.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Warm Biz", body.Leads[0].Name)
}

func TestLeadsEndpointBadFilter(t *testing.T) {
	ts, _, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/leads?filter=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts, st, _, _ := newTestServer(t)
	seedLead(t, st, "Hot Biz", 22, "")
	seedLead(t, st, "Warm Biz", 14, "")
	seedLead(t, st, "Medium Biz", 8, "")
	seedLead(t, st, "Low Biz", 2, "")

	var body struct {
		TotalLeads int `json:"total_leads"`
		Hot        int `json:"hot"`
		Warm       int `json:"warm"`
		Medium     int `json:"medium"`
		ByNiche    map[string]struct {
			Count    int     `json:"count"`
			AvgScore float64 `json:"avg_score"`
		} `json:"by_niche"`
	}
	code := getJSON(t, ts.URL+"/api/stats", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, body.TotalLeads)
	assert.Equal(t, 1, body.Hot)
	assert.Equal(t, 1, body.Warm)
	assert.Equal(t, 1, body.Medium)
	require.Contains(t, body.ByNiche, "plumber")
	assert.Equal(t, 4, body.ByNiche["plumber"].Count)
	assert.InDelta(t, 11.5, body.ByNiche["plumber"].AvgScore, 0.001)
}

func TestScrapeEndpointTriggersRun(t *testing.T) {
	ts, _, _, runner := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/scrape", "application/json", strings.NewReader(`{"niches":["roofer"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"roofer"}, runner.calls[0].Niches)
}

func TestScrapeEndpointConflictWhileRunning(t *testing.T) {
	ts, _, tracker, runner := newTestServer(t)

	_, err := tracker.Begin()
	require.NoError(t, err)
	defer tracker.End(nil)

	resp, err := http.Post(ts.URL+"/api/scrape", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Zero(t, runner.callCount())
}

func TestExportEndpoint(t *testing.T) {
	ts, _, _, runner := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/export", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, runner.callCount())
	assert.True(t, runner.calls[0].ExportOnly)
}

func TestExportEndpointConflict(t *testing.T) {
	ts, _, _, runner := newTestServer(t)
	runner.err = pipeline.ErrRunInProgress

	resp, err := http.Post(ts.URL+"/api/export", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
