// Package scoring computes the priority score and tier for a lead.
// The scorer is a pure function over a raw record plus a weight table;
// it performs no I/O and keeps no state beyond the supplied weights.
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/model"
)

// Weights holds every scoring contribution. Each weight is overridable
// independently; DefaultWeights returns the stock table.
type Weights struct {
	NoReviews       int `yaml:"no_reviews_score" mapstructure:"no_reviews_score"`
	VeryFewReviews  int `yaml:"very_few_reviews_score" mapstructure:"very_few_reviews_score"`
	FewReviews      int `yaml:"few_reviews_score" mapstructure:"few_reviews_score"`
	SomeReviews     int `yaml:"some_reviews_score" mapstructure:"some_reviews_score"`
	ManyReviews     int `yaml:"many_reviews_score" mapstructure:"many_reviews_score"`
	LowRating       int `yaml:"low_rating_bonus" mapstructure:"low_rating_bonus"`
	MediumRating    int `yaml:"medium_rating_bonus" mapstructure:"medium_rating_bonus"`
	HighValueNiche  int `yaml:"high_value_niche_bonus" mapstructure:"high_value_niche_bonus"`
	CompleteContact int `yaml:"complete_contact_bonus" mapstructure:"complete_contact_bonus"`
	NoWebsite       int `yaml:"no_website_bonus" mapstructure:"no_website_bonus"`
	HasFacebook     int `yaml:"has_facebook_bonus" mapstructure:"has_facebook_bonus"`
}

// DefaultWeights returns the stock weight table.
func DefaultWeights() Weights {
	return Weights{
		NoReviews:       10,
		VeryFewReviews:  8,
		FewReviews:      5,
		SomeReviews:     3,
		ManyReviews:     1,
		LowRating:       9,
		MediumRating:    4,
		HighValueNiche:  7,
		CompleteContact: 2,
		NoWebsite:       3,
		HasFacebook:     1,
	}
}

// Scorer scores raw records against a weight table and a set of
// high-value niches. Create once, reuse for every record.
type Scorer struct {
	weights         Weights
	highValueNiches map[string]bool
}

// New creates a Scorer. Niche membership checks are case-insensitive.
func New(w Weights, highValueNiches []string) *Scorer {
	set := make(map[string]bool, len(highValueNiches))
	for _, n := range highValueNiches {
		set[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return &Scorer{weights: w, highValueNiches: set}
}

// Score computes the integer priority score for a raw record.
// Deterministic: identical inputs always yield identical output.
func (s *Scorer) Score(rec model.RawRecord, niche string) int {
	total := 0
	w := s.weights

	// Review-count bracket, first match wins.
	reviews := rec.ReviewCount
	if reviews < 0 {
		reviews = 0
	}
	switch {
	case reviews == 0:
		total += w.NoReviews
	case reviews <= 10:
		total += w.VeryFewReviews
	case reviews <= 25:
		total += w.FewReviews
	case reviews <= 50:
		total += w.SomeReviews
	default:
		total += w.ManyReviews
	}

	// Rating bonus. Unrated (zero or unparseable) contributes nothing;
	// 4.0+ businesses already have social proof and get no bonus.
	rating := parseRating(rec.Rating)
	switch {
	case rating > 0 && rating <= 3.5:
		total += w.LowRating
	case rating > 3.5 && rating <= 4.0:
		total += w.MediumRating
	}

	if s.highValueNiches[strings.ToLower(strings.TrimSpace(niche))] {
		total += w.HighValueNiche
	}

	if strings.TrimSpace(rec.Phone) != "" && strings.TrimSpace(rec.Address) != "" {
		total += w.CompleteContact
	}

	if strings.TrimSpace(rec.Website) == "" {
		total += w.NoWebsite
	}

	if strings.TrimSpace(rec.Facebook) != "" {
		total += w.HasFacebook
	}

	zap.L().Debug("scored lead",
		zap.String("name", rec.Name),
		zap.String("niche", niche),
		zap.Int("score", total),
	)
	return total
}

// parseRating tolerates empty and malformed rating strings, treating
// them as zero rather than failing.
func parseRating(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// Tier is the priority bucket for a score.
type Tier string

const (
	TierHot    Tier = "HOT"
	TierWarm   Tier = "WARM"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Fixed tier thresholds. These are contract points shared by storage
// queries, exports, and the dashboard, not tunable weights.
const (
	HotThreshold    = 18
	WarmThreshold   = 12
	MediumThreshold = 7
)

// TierFor classifies a score into exactly one tier. Total over all
// integers: 18+ HOT, 12-17 WARM, 7-11 MEDIUM, below 7 LOW.
func TierFor(score int) Tier {
	switch {
	case score >= HotThreshold:
		return TierHot
	case score >= WarmThreshold:
		return TierWarm
	case score >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Bounds returns the inclusive score range for a tier. An upper bound
// below zero means unbounded.
func Bounds(t Tier) (min, max int) {
	switch t {
	case TierHot:
		return HotThreshold, -1
	case TierWarm:
		return WarmThreshold, HotThreshold - 1
	case TierMedium:
		return MediumThreshold, WarmThreshold - 1
	default:
		return 0, MediumThreshold - 1
	}
}

// Label renders the score with its star-rated tier for display columns,
// e.g. "21 ★★★ HOT".
func Label(score int) string {
	switch TierFor(score) {
	case TierHot:
		return fmt.Sprintf("%d ★★★ HOT", score)
	case TierWarm:
		return fmt.Sprintf("%d ★★ WARM", score)
	case TierMedium:
		return fmt.Sprintf("%d ★ MEDIUM", score)
	default:
		return fmt.Sprintf("%d LOW", score)
	}
}
