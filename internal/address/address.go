// Package address splits single-line US postal addresses into
// components. Pure pattern matching, no geocoding service.
package address

import (
	"regexp"
	"strings"
)

// strictRE covers the common listing format:
// "123 Main St, Austin, TX 78701, USA" (ZIP and USA suffix optional).
var strictRE = regexp.MustCompile(
	`(?i)^([^,]+),\s*([^,]+),\s*([A-Za-z]{2})(?:\s+(\d{5}(?:-\d{4})?))?(?:,\s*USA)?\s*$`)

var zipRE = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

var usaSuffixRE = regexp.MustCompile(`(?i)\bUSA\b`)

// stateAbbr maps lowercased full state names to postal abbreviations.
var stateAbbr = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND",
	"ohio": "OH", "oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}

// Components holds the parsed parts of an address. Fields that cannot
// be determined are empty strings, never omitted.
type Components struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Splitter parses single-line addresses. Stateless.
type Splitter struct{}

// NewSplitter creates a Splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Parse splits address into street/city/state/zip. The strict pattern
// is tried first; on failure it falls back to comma-splitting with
// best-effort token assignment (full state names are mapped to their
// abbreviations, trailing ZIPs are recognized). Never fails: anything
// undetermined comes back empty.
func (s *Splitter) Parse(address string) Components {
	var c Components

	address = strings.TrimSpace(address)
	if address == "" {
		return c
	}

	if m := strictRE.FindStringSubmatch(address); m != nil {
		c.Street = strings.TrimSpace(m[1])
		c.City = strings.TrimSpace(m[2])
		c.State = strings.ToUpper(strings.TrimSpace(m[3]))
		c.Zip = strings.TrimSpace(m[4])
		return c
	}

	var parts []string
	for _, p := range strings.Split(address, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	switch {
	case len(parts) >= 3:
		c.Street = parts[0]
		c.City = parts[1]

		stateZip := strings.TrimSpace(usaSuffixRE.ReplaceAllString(parts[len(parts)-1], ""))
		tokens := strings.Fields(stateZip)
		if len(tokens) > 0 {
			c.State = normalizeState(tokens[0])
		}
		if len(tokens) >= 2 && zipRE.MatchString(tokens[1]) {
			c.Zip = tokens[1]
		}
	case len(parts) == 2:
		c.Street = parts[0]
		c.City = parts[1]
	case len(parts) == 1:
		c.Street = parts[0]
	}

	return c
}

// InferCityState parses the address and backfills missing city/state
// from the configured default location, so every lead ends up with a
// usable location even when parsing fails entirely.
func (s *Splitter) InferCityState(address, defaultCity, defaultState string) Components {
	c := s.Parse(address)
	if c.City == "" {
		c.City = defaultCity
	}
	if c.State == "" {
		c.State = defaultState
	}
	return c
}

// normalizeState maps a token to a 2-letter state code: full names go
// through the lookup table, everything else is uppercased as-is.
func normalizeState(token string) string {
	if abbr, ok := stateAbbr[strings.ToLower(token)]; ok {
		return abbr
	}
	return strings.ToUpper(token)
}
