// Package export renders leads into the spreadsheet formats handed to the
// sales team: timestamped CSV snapshots and a styled XLSX workbook.
package export

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/model"
)

// Row is one exported lead. The csv tags are the exact column headers the
// sales team's import tooling expects; changing them breaks downstream
// spreadsheets.
type Row struct {
	Niche           string `csv:"Business Niche/Category"`
	Name            string `csv:"Business Name"`
	Phone           string `csv:"Phone Number"`
	SecondaryPhone  string `csv:"Secondary Phone"`
	Address         string `csv:"Address"`
	City            string `csv:"City"`
	State           string `csv:"State"`
	ZipCode         string `csv:"Zip Code"`
	Hours           string `csv:"Operating Hours"`
	ReviewCount     int    `csv:"Review Count"`
	Rating          string `csv:"Star Rating"`
	GMBLink         string `csv:"Google Business Link"`
	Website         string `csv:"Website (if available)"`
	Facebook        string `csv:"Facebook Profile"`
	Instagram       string `csv:"Instagram Profile"`
	DataSource      string `csv:"Data Source"`
	DateAdded       string `csv:"Date Added"`
	LeadScore       int    `csv:"Lead Score"`
	PitchNotes      string `csv:"Custom Sales Pitch Notes"`
	AdditionalNotes string `csv:"Additional Notes"`
	CallStatus      string `csv:"Call Status"`
	FollowUpDate    string `csv:"Follow-up Date"`
}

// RowFromLead maps a persisted lead onto the export column contract.
func RowFromLead(l model.Lead) Row {
	return Row{
		Niche:           l.Niche,
		Name:            l.Name,
		Phone:           l.Phone,
		SecondaryPhone:  l.SecondaryPhone,
		Address:         l.Address,
		City:            l.City,
		State:           l.State,
		ZipCode:         l.ZipCode,
		Hours:           l.Hours,
		ReviewCount:     l.ReviewCount,
		Rating:          l.Rating,
		GMBLink:         l.GMBLink,
		Website:         l.Website,
		Facebook:        l.Facebook,
		Instagram:       l.Instagram,
		DataSource:      l.DataSource,
		DateAdded:       l.DateAdded,
		LeadScore:       l.LeadScore,
		PitchNotes:      l.PitchNotes,
		AdditionalNotes: l.AdditionalNotes,
		CallStatus:      l.CallStatus,
		FollowUpDate:    l.FollowUpDate,
	}
}

const latestCSVName = "leads_latest.csv"

// CSVWriter writes lead snapshots into an output directory.
type CSVWriter struct {
	outputDir string
}

func NewCSV(outputDir string) *CSVWriter {
	return &CSVWriter{outputDir: outputDir}
}

// Write renders leads as a timestamped CSV and refreshes leads_latest.csv
// with the same content. It returns the timestamped file's path. An empty
// lead slice still produces a header-only file.
func (w *CSVWriter) Write(leads []model.Lead, now time.Time) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", eris.Wrap(err, "export: create output dir")
	}

	rows := make([]Row, len(leads))
	for i, l := range leads {
		rows[i] = RowFromLead(l)
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return "", eris.Wrap(err, "export: marshal csv")
	}

	path := filepath.Join(w.outputDir, "leads_"+now.Format("20060102_150405")+".csv")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "export: write csv")
	}
	if err := os.WriteFile(filepath.Join(w.outputDir, latestCSVName), data, 0o644); err != nil {
		return "", eris.Wrap(err, "export: write latest csv")
	}

	zap.L().Info("csv export written",
		zap.String("path", path),
		zap.Int("leads", len(leads)),
	)
	return path, nil
}
