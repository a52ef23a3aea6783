package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realisrare-223/leadparser/internal/model"
)

var wantHeaders = []string{
	"Business Niche/Category",
	"Business Name",
	"Phone Number",
	"Secondary Phone",
	"Address",
	"City",
	"State",
	"Zip Code",
	"Operating Hours",
	"Review Count",
	"Star Rating",
	"Google Business Link",
	"Website (if available)",
	"Facebook Profile",
	"Instagram Profile",
	"Data Source",
	"Date Added",
	"Lead Score",
	"Custom Sales Pitch Notes",
	"Additional Notes",
	"Call Status",
	"Follow-up Date",
}

func sampleLead() model.Lead {
	return model.Lead{
		Niche:       "plumber",
		Name:        "Joe's Plumbing",
		Phone:       "(512) 555-0100",
		City:        "Austin",
		State:       "TX",
		ReviewCount: 12,
		Rating:      "4.5",
		DateAdded:   "2025-01-15",
		LeadScore:   18,
		PitchNotes:  "Hi Joe's Plumbing, I noticed you don't have a website...",
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriteColumnContract(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	path, err := NewCSV(dir).Write([]model.Lead{sampleLead()}, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "leads_20250115_103000.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, wantHeaders, records[0])

	row := records[1]
	assert.Equal(t, "plumber", row[0])
	assert.Equal(t, "Joe's Plumbing", row[1])
	assert.Equal(t, "(512) 555-0100", row[2])
	assert.Equal(t, "12", row[9])
	assert.Equal(t, "4.5", row[10])
	assert.Equal(t, "18", row[17])
}

func TestCSVWriteRefreshesLatest(t *testing.T) {
	dir := t.TempDir()
	w := NewCSV(dir)

	_, err := w.Write([]model.Lead{sampleLead()}, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := w.Write([]model.Lead{sampleLead()}, time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	latest, err := os.ReadFile(filepath.Join(dir, "leads_latest.csv"))
	require.NoError(t, err)
	timestamped, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, timestamped, latest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "two timestamped files plus the latest copy")
}

func TestCSVWriteEmptyStillHasHeader(t *testing.T) {
	dir := t.TempDir()
	path, err := NewCSV(dir).Write(nil, time.Now())
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, wantHeaders, records[0])
}

func TestCSVFieldsWithCommasAndQuotes(t *testing.T) {
	dir := t.TempDir()
	lead := sampleLead()
	lead.Address = `123 Main St, Suite "B"`
	lead.Hours = "Mon-Fri: 8am-5pm, Sat: 9am-12pm"

	path, err := NewCSV(dir).Write([]model.Lead{lead}, time.Now())
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, `123 Main St, Suite "B"`, records[1][4])
	assert.True(t, strings.Contains(records[1][8], "Sat: 9am-12pm"))
}
