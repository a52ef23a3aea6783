// Package model defines the canonical record types shared across the
// lead pipeline: raw scrape records, persisted leads, and scrape sessions.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// RawRecord is one business listing as produced by a scrape source.
// Every field is present and defaults to its zero value; only Name is
// required. Untyped maps never cross package boundaries.
type RawRecord struct {
	Name           string   `csv:"name" json:"name"`
	Phone          string   `csv:"phone" json:"phone"`
	SecondaryPhone string   `csv:"secondary_phone" json:"secondary_phone"`
	Address        string   `csv:"address" json:"address"`
	City           string   `csv:"city" json:"city"`
	State          string   `csv:"state" json:"state"`
	Zip            string   `csv:"zip" json:"zip"`
	Hours          string   `csv:"hours" json:"hours"`
	ReviewCount    int      `csv:"review_count" json:"review_count"`
	Rating         string   `csv:"rating" json:"rating"`
	GMBLink        string   `csv:"gmb_link" json:"gmb_link"`
	Website        string   `csv:"website" json:"website"`
	Facebook       string   `csv:"facebook" json:"facebook"`
	Instagram      string   `csv:"instagram" json:"instagram"`
	Source         string   `csv:"source" json:"source"`
	Notes          string   `csv:"notes" json:"notes"`
	Reviews        []string `csv:"-" json:"reviews,omitempty"`
}

// Lead is the canonical persisted record for one business.
type Lead struct {
	ID              int64  `json:"id"`
	DedupKey        string `json:"dedup_key"`
	Niche           string `json:"niche"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	SecondaryPhone  string `json:"secondary_phone"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	ZipCode         string `json:"zip_code"`
	Hours           string `json:"hours"`
	ReviewCount     int    `json:"review_count"`
	Rating          string `json:"rating"`
	GMBLink         string `json:"gmb_link"`
	Website         string `json:"website"`
	Facebook        string `json:"facebook"`
	Instagram       string `json:"instagram"`
	DataSource      string `json:"data_source"`
	DateAdded       string `json:"date_added"`
	LeadScore       int    `json:"lead_score"`
	PitchNotes      string `json:"pitch_notes"`
	AdditionalNotes string `json:"additional_notes"`
	CallStatus      string `json:"call_status"`
	FollowUpDate    string `json:"follow_up_date"`
	Exported        bool   `json:"exported"`
}

// Qualified reports whether the lead is actionable: no website and a
// phone number on file. This predicate is the single definition used by
// storage queries, exports, and the dashboard.
func (l Lead) Qualified() bool {
	return strings.TrimSpace(l.Website) == "" && strings.TrimSpace(l.Phone) != ""
}

var keyFolder = cases.Fold()

// DedupKey derives the stable deduplication key for a business from its
// case-folded, whitespace-trimmed name and city. Two leads with the same
// key are the same business.
func DedupKey(name, city string) string {
	raw := keyFolder.String(strings.TrimSpace(name)) + "|" + keyFolder.String(strings.TrimSpace(city))
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Key returns the lead's deduplication key.
func (l Lead) Key() string {
	return DedupKey(l.Name, l.City)
}

// Session is the append-only audit record for one pipeline run.
type Session struct {
	ID             int64      `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	NichesSearched []string   `json:"niches_searched"`
	TotalScraped   int        `json:"total_scraped"`
	NewLeads       int        `json:"new_leads"`
	Duplicates     int        `json:"duplicates"`
	Errors         int        `json:"errors"`
	ConfigSnapshot string     `json:"config_snapshot,omitempty"`
}

// RunStats aggregates counters for one pipeline run. Counters only ever
// increase during a run.
type RunStats struct {
	Niches     int `json:"niches"`
	Total      int `json:"total"`
	New        int `json:"new"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// InsertStats is the outcome of a bulk insert.
type InsertStats struct {
	New        int `json:"new"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}
