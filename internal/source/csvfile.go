// Package source provides scrape-record providers for the pipeline.
package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/model"
)

// csvRecord adds the niche column that routes each row to a search niche.
// The remaining columns come from the raw record's csv tags.
type csvRecord struct {
	Niche string `csv:"niche"`
	model.RawRecord
}

// CSVFile serves raw business records from a local CSV file, typically the
// output of a browser scraping session. Rows carry a niche column; rows
// with an empty niche match every requested niche.
type CSVFile struct {
	path string
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// ScrapeNiche returns the file's records for the given niche in file
// order. The location argument is unused; the file already reflects one
// locality.
func (s *CSVFile) ScrapeNiche(ctx context.Context, niche, _ string) ([]model.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", s.path)
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		return nil, eris.Wrapf(err, "source: read header %s", s.path)
	}

	want := strings.ToLower(strings.TrimSpace(niche))
	var records []model.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "source: scan cancelled")
		}

		var rec csvRecord
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row should not sink the whole file.
			zap.L().Warn("skipping malformed csv row",
				zap.String("path", s.path),
				zap.Error(err),
			)
			continue
		}

		rowNiche := strings.ToLower(strings.TrimSpace(rec.Niche))
		if rowNiche != "" && rowNiche != want {
			continue
		}
		if strings.TrimSpace(rec.Name) == "" {
			continue
		}
		if rec.Source == "" {
			rec.Source = "CSV Import"
		}
		records = append(records, rec.RawRecord)
	}
	return records, nil
}
