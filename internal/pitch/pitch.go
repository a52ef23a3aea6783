// Package pitch generates niche-specific outreach notes from
// configurable templates.
package pitch

import (
	"sort"
	"strconv"
	"strings"

	"github.com/realisrare-223/leadparser/internal/model"
)

// DefaultTemplate is used when no configured template matches the niche.
const DefaultTemplate = "Hi {name}, I help local businesses in {city} grow their " +
	"customer base through better online presence. Would you have " +
	"10 minutes to chat?"

// Engine picks the best template for a niche and fills its
// placeholders. Supported placeholders: {name}, {city}, {niche},
// {review_count}, {rating}.
type Engine struct {
	templates   map[string]string
	defaultCity string
}

// NewEngine creates an Engine. templates maps niche names to template
// strings; the "default" key overrides DefaultTemplate. defaultCity is
// used when a record carries no city.
func NewEngine(templates map[string]string, defaultCity string) *Engine {
	if templates == nil {
		templates = map[string]string{}
	}
	return &Engine{templates: templates, defaultCity: defaultCity}
}

// Generate builds the pitch text for one record. Never fails: missing
// placeholders are left intact rather than erroring out.
func (e *Engine) Generate(niche string, rec model.RawRecord) string {
	tmpl := e.pickTemplate(niche)

	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = "there"
	}
	city := strings.TrimSpace(rec.City)
	if city == "" {
		city = e.defaultCity
	}
	if city == "" {
		city = "your city"
	}

	replacer := strings.NewReplacer(
		"{name}", name,
		"{city}", city,
		"{niche}", niche,
		"{review_count}", strconv.Itoa(rec.ReviewCount),
		"{rating}", rec.Rating,
	)
	return strings.TrimSpace(replacer.Replace(tmpl))
}

// Niches returns the niches with explicit templates, sorted.
func (e *Engine) Niches() []string {
	var niches []string
	for k := range e.templates {
		if k != "default" {
			niches = append(niches, k)
		}
	}
	sort.Strings(niches)
	return niches
}

// pickTemplate resolves the template for a niche: exact match, then
// case-insensitive match, then partial match in either direction, then
// the configured or built-in default.
func (e *Engine) pickTemplate(niche string) string {
	if tmpl, ok := e.templates[niche]; ok {
		return tmpl
	}

	lower := strings.ToLower(niche)
	for _, key := range e.sortedKeys() {
		if strings.ToLower(key) == lower {
			return e.templates[key]
		}
	}
	for _, key := range e.sortedKeys() {
		kl := strings.ToLower(key)
		if kl == "default" {
			continue
		}
		if strings.Contains(lower, kl) || strings.Contains(kl, lower) {
			return e.templates[key]
		}
	}

	if tmpl, ok := e.templates["default"]; ok {
		return tmpl
	}
	return DefaultTemplate
}

// sortedKeys keeps partial-match resolution deterministic across runs.
func (e *Engine) sortedKeys() []string {
	keys := make([]string, 0, len(e.templates))
	for k := range e.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
