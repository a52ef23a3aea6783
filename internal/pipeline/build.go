package pipeline

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/address"
	"github.com/realisrare-223/leadparser/internal/config"
	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/phone"
	"github.com/realisrare-223/leadparser/internal/pitch"
	"github.com/realisrare-223/leadparser/internal/scoring"
)

// Builder turns raw scrape records into scored, pitched leads.
type Builder struct {
	scorer       *scoring.Scorer
	splitter     *address.Splitter
	normalizer   *phone.Normalizer
	pitches      *pitch.Engine
	defaultCity  string
	defaultState string
}

func NewBuilder(scorer *scoring.Scorer, normalizer *phone.Normalizer, pitches *pitch.Engine, defaultCity, defaultState string) *Builder {
	return &Builder{
		scorer:       scorer,
		splitter:     address.NewSplitter(),
		normalizer:   normalizer,
		pitches:      pitches,
		defaultCity:  defaultCity,
		defaultState: defaultState,
	}
}

// BuildLead normalizes one raw record into a lead: location backfill,
// phone formatting, scoring with review sentiment, and the sales pitch.
// A record with no phone keeps an empty phone field for the enrichment
// waterfall to fill later.
func (b *Builder) BuildLead(rec model.RawRecord, niche string, now time.Time) model.Lead {
	city := strings.TrimSpace(rec.City)
	state := strings.TrimSpace(rec.State)
	zip := strings.TrimSpace(rec.Zip)
	if city == "" || state == "" {
		parsed := b.splitter.InferCityState(rec.Address, b.defaultCity, b.defaultState)
		if city == "" {
			city = parsed.City
		}
		if state == "" {
			state = parsed.State
		}
		if zip == "" {
			zip = parsed.Zip
		}
	}

	score := b.scorer.Score(rec, niche)
	if len(rec.Reviews) > 0 {
		score += scoring.AnalyzeReviews(rec.Reviews).ScoreAdjust
		if score < 0 {
			score = 0
		}
	}

	lead := model.Lead{
		Niche:           niche,
		Name:            strings.TrimSpace(rec.Name),
		Phone:           b.normalizer.Format(rec.Phone),
		SecondaryPhone:  b.normalizer.Format(rec.SecondaryPhone),
		Address:         strings.TrimSpace(rec.Address),
		City:            city,
		State:           state,
		ZipCode:         zip,
		Hours:           rec.Hours,
		ReviewCount:     rec.ReviewCount,
		Rating:          rec.Rating,
		GMBLink:         rec.GMBLink,
		Website:         strings.TrimSpace(rec.Website),
		Facebook:        rec.Facebook,
		Instagram:       rec.Instagram,
		DataSource:      rec.Source,
		DateAdded:       now.Format("2006-01-02"),
		LeadScore:       score,
		PitchNotes:      b.pitches.Generate(niche, rec),
		AdditionalNotes: rec.Notes,
	}
	lead.DedupKey = lead.Key()
	return lead
}

// ApplyFilters drops leads outside the configured bounds. Rating filters
// only apply to leads that have a parseable rating; zero max values mean
// unbounded.
func ApplyFilters(leads []model.Lead, f config.FiltersConfig) []model.Lead {
	kept := leads[:0:0]
	for _, l := range leads {
		if !passesFilters(l, f) {
			continue
		}
		kept = append(kept, l)
	}
	if dropped := len(leads) - len(kept); dropped > 0 {
		zap.L().Debug("filters dropped leads", zap.Int("dropped", dropped))
	}
	return kept
}

func passesFilters(l model.Lead, f config.FiltersConfig) bool {
	if l.ReviewCount < f.MinReviews {
		return false
	}
	if f.MaxReviews > 0 && l.ReviewCount > f.MaxReviews {
		return false
	}
	if rating, err := strconv.ParseFloat(strings.TrimSpace(l.Rating), 64); err == nil && rating > 0 {
		if rating < f.MinRating {
			return false
		}
		if f.MaxRating > 0 && rating > f.MaxRating {
			return false
		}
	}
	if f.ExcludeWithWebsite && l.Website != "" {
		return false
	}
	return l.LeadScore >= f.MinLeadScore
}
