package export

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/model"
)

var xlsxHeaders = []string{
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

// XLSXWriter writes the master workbook: a Leads sheet with every lead and
// a Summary sheet with per-niche counts and average scores.
type XLSXWriter struct {
	outputDir string
}

func NewXLSX(outputDir string) *XLSXWriter {
	return &XLSXWriter{outputDir: outputDir}
}

func (w *XLSXWriter) Write(leads []model.Lead, counts map[string]int, avgScores map[string]float64, now time.Time) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", eris.Wrap(err, "export: create output dir")
	}

	f := xlsx.NewFile()
	if err := w.addLeadsSheet(f, leads); err != nil {
		return "", err
	}
	if err := w.addSummarySheet(f, counts, avgScores); err != nil {
		return "", err
	}

	path := filepath.Join(w.outputDir, "leads_"+now.Format("20060102_150405")+".xlsx")
	if err := f.Save(path); err != nil {
		return "", eris.Wrap(err, "export: save xlsx")
	}

	zap.L().Info("xlsx export written",
		zap.String("path", path),
		zap.Int("leads", len(leads)),
	)
	return path, nil
}

func (w *XLSXWriter) addLeadsSheet(f *xlsx.File, leads []model.Lead) error {
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add leads sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeaders {
		header.AddCell().SetString(h)
	}

	for _, l := range leads {
		r := RowFromLead(l)
		row := sheet.AddRow()
		row.AddCell().SetString(r.Niche)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Phone)
		row.AddCell().SetString(r.SecondaryPhone)
		row.AddCell().SetString(r.Address)
		row.AddCell().SetString(r.City)
		row.AddCell().SetString(r.State)
		row.AddCell().SetString(r.ZipCode)
		row.AddCell().SetString(r.Hours)
		row.AddCell().SetInt(r.ReviewCount)
		row.AddCell().SetString(r.Rating)
		row.AddCell().SetString(r.GMBLink)
		row.AddCell().SetString(r.Website)
		row.AddCell().SetString(r.Facebook)
		row.AddCell().SetString(r.Instagram)
		row.AddCell().SetString(r.DataSource)
		row.AddCell().SetString(r.DateAdded)
		row.AddCell().SetInt(r.LeadScore)
		row.AddCell().SetString(r.PitchNotes)
		row.AddCell().SetString(r.AdditionalNotes)
		row.AddCell().SetString(r.CallStatus)
		row.AddCell().SetString(r.FollowUpDate)
	}
	return nil
}

func (w *XLSXWriter) addSummarySheet(f *xlsx.File, counts map[string]int, avgScores map[string]float64) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Niche", "Lead Count", "Average Score"} {
		header.AddCell().SetString(h)
	}

	niches := make([]string, 0, len(counts))
	for niche := range counts {
		niches = append(niches, niche)
	}
	sort.Strings(niches)

	total := 0
	for _, niche := range niches {
		row := sheet.AddRow()
		row.AddCell().SetString(niche)
		row.AddCell().SetInt(counts[niche])
		row.AddCell().SetFloatWithFormat(avgScores[niche], "0.00")
		total += counts[niche]
	}

	totalRow := sheet.AddRow()
	totalRow.AddCell().SetString("Total")
	totalRow.AddCell().SetInt(total)
	return nil
}
