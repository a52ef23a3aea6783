// Package phone normalizes free-text phone candidates into consistent
// national and E.164 formats using libphonenumber-backed validation.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// candidateRE extracts an area-code/exchange/subscriber triple from
// arbitrary text, with an optional leading country code.
var candidateRE = regexp.MustCompile(
	`(?:\+?1[\s.\-]?)?\(?(\d{3})\)?[\s.\-]?(\d{3})[\s.\-]?(\d{4})`)

// Normalizer validates and reformats phone numbers for one default
// region. Stateless: create once and reuse.
type Normalizer struct {
	region string
}

// NewNormalizer creates a Normalizer. An empty region defaults to US.
func NewNormalizer(region string) *Normalizer {
	if region == "" {
		region = "US"
	}
	return &Normalizer{region: region}
}

// Format parses raw and returns the national format, e.g.
// "(512) 555-0100", or "" when no valid number can be extracted.
// Library parsing is tried first; on failure a regex-extracted triple is
// reassembled with the +1 country code and re-validated before being
// accepted. Never returns an unvalidated guess.
func (n *Normalizer) Format(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if formatted, ok := n.parse(raw, phonenumbers.NATIONAL); ok {
		return formatted
	}

	m := candidateRE.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	candidate := "+1" + m[1] + m[2] + m[3]
	if formatted, ok := n.parse(candidate, phonenumbers.NATIONAL); ok {
		return formatted
	}
	return ""
}

// ToE164 returns the E.164 form, e.g. "+15125550100", or "" on failure.
func (n *Normalizer) ToE164(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if formatted, ok := n.parse(raw, phonenumbers.E164); ok {
		return formatted
	}
	return ""
}

// IsValid reports whether raw holds a valid number for the region.
func (n *Normalizer) IsValid(raw string) bool {
	return n.Format(raw) != ""
}

// ExtractFromText returns every distinct valid phone number found in
// text, formatted nationally, in first-occurrence order.
func (n *Normalizer) ExtractFromText(text string) []string {
	var results []string
	seen := make(map[string]bool)
	for _, m := range candidateRE.FindAllStringSubmatch(text, -1) {
		candidate := "+1" + m[1] + m[2] + m[3]
		formatted, ok := n.parse(candidate, phonenumbers.NATIONAL)
		if !ok || seen[formatted] {
			continue
		}
		seen[formatted] = true
		results = append(results, formatted)
	}
	return results
}

func (n *Normalizer) parse(raw string, format phonenumbers.PhoneNumberFormat) (string, bool) {
	num, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, format), true
}
