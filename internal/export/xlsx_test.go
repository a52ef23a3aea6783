package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/realisrare-223/leadparser/internal/model"
)

func TestXLSXWriteSheets(t *testing.T) {
	dir := t.TempDir()
	leads := []model.Lead{sampleLead()}
	counts := map[string]int{"plumber": 1}
	avgs := map[string]float64{"plumber": 18.0}

	path, err := NewXLSX(dir).Write(leads, counts, avgs, time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	leadsSheet, ok := f.Sheet["Leads"]
	require.True(t, ok)
	require.Len(t, leadsSheet.Rows, 2)

	header := leadsSheet.Rows[0]
	require.Len(t, header.Cells, len(wantHeaders))
	for i, want := range wantHeaders {
		assert.Equal(t, want, header.Cells[i].String())
	}

	row := leadsSheet.Rows[1]
	assert.Equal(t, "Joe's Plumbing", row.Cells[1].String())
	score, err := row.Cells[17].Int()
	require.NoError(t, err)
	assert.Equal(t, 18, score)

	_, ok = f.Sheet["Summary"]
	require.True(t, ok)
}

func TestXLSXSummaryAggregates(t *testing.T) {
	dir := t.TempDir()
	counts := map[string]int{"roofer": 3, "plumber": 2}
	avgs := map[string]float64{"roofer": 9.5, "plumber": 14.0}

	path, err := NewXLSX(dir).Write(nil, counts, avgs, time.Now())
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheet["Summary"]
	require.NotNil(t, sheet)

	// Header, two niches sorted alphabetically, then the total row.
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "plumber", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "roofer", sheet.Rows[2].Cells[0].String())

	total, err := sheet.Rows[3].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}
