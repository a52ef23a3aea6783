// Package enrich fills missing contact fields on leads by querying an
// ordered waterfall of external lookup sources, stopping at the first
// source that yields a value for each field.
package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/phone"
)

// PhoneNeededFlag is appended to a lead's additional notes when no
// source could supply a phone number. It is added at most once and
// removed again if a later enrichment pass succeeds.
const PhoneNeededFlag = "Phone Number Needed - Manual Research Required"

const noteSeparator = " | "

// PhoneSource looks up a business phone number. "Not found" is an empty
// string, not an error; errors mean the source itself failed.
type PhoneSource interface {
	Name() string
	FindPhone(ctx context.Context, name, city, state string) (string, error)
}

// SocialProfiles holds the social links a source found. Either field
// may be empty.
type SocialProfiles struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
}

// SocialSource looks up social media profiles for a business.
type SocialSource interface {
	Name() string
	FindSocialProfiles(ctx context.Context, name, city, state string) (SocialProfiles, error)
}

// Orchestrator runs the enrichment waterfall. Sources are tried in the
// order given; a source error is treated as "not found" for that source
// only and never aborts the cascade.
type Orchestrator struct {
	phones       []PhoneSource
	socials      []SocialSource
	normalizer   *phone.Normalizer
	defaultCity  string
	defaultState string
}

// New creates an Orchestrator. phones and socials are tried in slice
// order. The default location fills in for leads without one.
func New(phones []PhoneSource, socials []SocialSource, normalizer *phone.Normalizer, defaultCity, defaultState string) *Orchestrator {
	return &Orchestrator{
		phones:       phones,
		socials:      socials,
		normalizer:   normalizer,
		defaultCity:  defaultCity,
		defaultState: defaultState,
	}
}

// Enrich fills the lead's missing phone, facebook, and instagram fields
// in place. Fields that already hold a value are never overwritten.
func (o *Orchestrator) Enrich(ctx context.Context, lead *model.Lead) {
	name := strings.TrimSpace(lead.Name)
	if name == "" {
		return
	}

	city := strings.TrimSpace(lead.City)
	if city == "" {
		city = o.defaultCity
	}
	state := strings.TrimSpace(lead.State)
	if state == "" {
		state = o.defaultState
	}

	if strings.TrimSpace(lead.Phone) == "" {
		o.enrichPhone(ctx, lead, name, city, state)
	}

	if strings.TrimSpace(lead.Facebook) == "" || strings.TrimSpace(lead.Instagram) == "" {
		o.enrichSocial(ctx, lead, name, city, state)
	}
}

// EnrichBatch enriches every lead missing a phone number, in list
// order, mutating each in place. Per-lead problems are logged and do
// not stop the batch. Returns how many leads gained a phone number.
func (o *Orchestrator) EnrichBatch(ctx context.Context, leads []*model.Lead) int {
	var missing []*model.Lead
	for _, l := range leads {
		if strings.TrimSpace(l.Phone) == "" {
			missing = append(missing, l)
		}
	}

	zap.L().Info("enriching leads missing phone numbers",
		zap.Int("missing", len(missing)),
		zap.Int("total", len(leads)),
	)

	found := 0
	for i, lead := range missing {
		if ctx.Err() != nil {
			zap.L().Warn("enrichment interrupted", zap.Int("processed", i))
			return found
		}
		zap.L().Debug("enriching lead",
			zap.Int("index", i+1),
			zap.Int("of", len(missing)),
			zap.String("name", lead.Name),
		)
		o.Enrich(ctx, lead)
		if strings.TrimSpace(lead.Phone) != "" {
			found++
		}
	}
	return found
}

func (o *Orchestrator) enrichPhone(ctx context.Context, lead *model.Lead, name, city, state string) {
	for _, src := range o.phones {
		raw, err := src.FindPhone(ctx, name, city, state)
		if err != nil {
			// Source failure is "not found" for this source only.
			zap.L().Debug("phone source failed",
				zap.String("source", src.Name()),
				zap.String("name", name),
				zap.Error(err),
			)
			continue
		}
		if raw == "" {
			continue
		}

		formatted := o.normalizer.Format(raw)
		if formatted == "" {
			formatted = strings.TrimSpace(raw)
		}
		lead.Phone = formatted
		lead.AdditionalNotes = RemovePhoneNeededFlag(lead.AdditionalNotes)
		markSupplemented(lead)
		zap.L().Debug("phone found",
			zap.String("source", src.Name()),
			zap.String("name", name),
		)
		return
	}

	zap.L().Info("no phone found through any source", zap.String("name", name))
	lead.AdditionalNotes = AddPhoneNeededFlag(lead.AdditionalNotes)
}

func (o *Orchestrator) enrichSocial(ctx context.Context, lead *model.Lead, name, city, state string) {
	for _, src := range o.socials {
		if strings.TrimSpace(lead.Facebook) != "" && strings.TrimSpace(lead.Instagram) != "" {
			return
		}

		profiles, err := src.FindSocialProfiles(ctx, name, city, state)
		if err != nil {
			zap.L().Debug("social source failed",
				zap.String("source", src.Name()),
				zap.String("name", name),
				zap.Error(err),
			)
			continue
		}

		// Each field fills independently; a hit for one never blocks
		// taking the other from the same or a later source.
		if strings.TrimSpace(lead.Facebook) == "" && profiles.Facebook != "" {
			lead.Facebook = profiles.Facebook
		}
		if strings.TrimSpace(lead.Instagram) == "" && profiles.Instagram != "" {
			lead.Instagram = profiles.Instagram
		}
	}
}

// markSupplemented records in the provenance string that a supplementary
// source contributed data. Idempotent.
func markSupplemented(lead *model.Lead) {
	const suffix = " + Supplementary"
	if lead.DataSource == "" || strings.HasSuffix(lead.DataSource, suffix) {
		if lead.DataSource == "" {
			lead.DataSource = "Supplementary"
		}
		return
	}
	lead.DataSource += suffix
}

// AddPhoneNeededFlag appends the manual-research flag to notes unless
// it is already present.
func AddPhoneNeededFlag(notes string) string {
	if strings.Contains(notes, PhoneNeededFlag) {
		return notes
	}
	if strings.TrimSpace(notes) == "" {
		return PhoneNeededFlag
	}
	return notes + noteSeparator + PhoneNeededFlag
}

// RemovePhoneNeededFlag strips the manual-research flag and any
// dangling separators from notes.
func RemovePhoneNeededFlag(notes string) string {
	if !strings.Contains(notes, PhoneNeededFlag) {
		return notes
	}
	notes = strings.ReplaceAll(notes, PhoneNeededFlag, "")
	notes = strings.ReplaceAll(notes, noteSeparator+noteSeparator, noteSeparator)
	return strings.Trim(notes, " |")
}
