package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/realisrare-223/leadparser/internal/model"
	"github.com/realisrare-223/leadparser/internal/scoring"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	dedup_key        TEXT NOT NULL UNIQUE,
	niche            TEXT NOT NULL,
	name             TEXT NOT NULL,
	phone            TEXT NOT NULL DEFAULT '',
	secondary_phone  TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	zip_code         TEXT NOT NULL DEFAULT '',
	hours            TEXT NOT NULL DEFAULT '',
	review_count     INTEGER NOT NULL DEFAULT 0,
	rating           TEXT NOT NULL DEFAULT '',
	gmb_link         TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	facebook         TEXT NOT NULL DEFAULT '',
	instagram        TEXT NOT NULL DEFAULT '',
	data_source      TEXT NOT NULL DEFAULT '',
	date_added       TEXT NOT NULL DEFAULT '',
	lead_score       INTEGER NOT NULL DEFAULT 0,
	pitch_notes      TEXT NOT NULL DEFAULT '',
	additional_notes TEXT NOT NULL DEFAULT '',
	call_status      TEXT NOT NULL DEFAULT '',
	follow_up_date   TEXT NOT NULL DEFAULT '',
	exported         INTEGER NOT NULL DEFAULT 0,
	raw_json         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sessions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME,
	niches_searched TEXT NOT NULL DEFAULT '[]',
	total_scraped   INTEGER NOT NULL DEFAULT 0,
	new_leads       INTEGER NOT NULL DEFAULT 0,
	duplicates      INTEGER NOT NULL DEFAULT 0,
	errors          INTEGER NOT NULL DEFAULT 0,
	config_snapshot TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_leads_niche ON leads(niche);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(lead_score);
CREATE INDEX IF NOT EXISTS idx_leads_exported ON leads(exported);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `id, dedup_key, niche, name, phone, secondary_phone, address, city, state,
	zip_code, hours, review_count, rating, gmb_link, website, facebook, instagram,
	data_source, date_added, lead_score, pitch_notes, additional_notes, call_status,
	follow_up_date, exported`

// InsertLead persists one lead. It returns false with the lead's dedup key
// when a lead with the same key already exists; existing rows are never
// modified.
func (s *SQLiteStore) InsertLead(ctx context.Context, lead model.Lead) (bool, string, error) {
	key := lead.DedupKey
	if key == "" {
		key = lead.Key()
	}

	rawJSON, err := json.Marshal(lead)
	if err != nil {
		return false, key, eris.Wrap(err, "sqlite: marshal lead")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (dedup_key, niche, name, phone, secondary_phone, address, city, state,
			zip_code, hours, review_count, rating, gmb_link, website, facebook, instagram,
			data_source, date_added, lead_score, pitch_notes, additional_notes, call_status,
			follow_up_date, exported, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, lead.Niche, lead.Name, lead.Phone, lead.SecondaryPhone, lead.Address, lead.City,
		lead.State, lead.ZipCode, lead.Hours, lead.ReviewCount, lead.Rating, lead.GMBLink,
		lead.Website, lead.Facebook, lead.Instagram, lead.DataSource, lead.DateAdded,
		lead.LeadScore, lead.PitchNotes, lead.AdditionalNotes, lead.CallStatus,
		lead.FollowUpDate, boolToInt(lead.Exported), string(rawJSON),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, key, nil
		}
		return false, key, eris.Wrapf(err, "sqlite: insert lead %s", lead.Name)
	}
	return true, key, nil
}

// BulkInsert inserts a batch of leads, counting new rows, duplicates, and
// per-row failures. A failing row never aborts the batch.
func (s *SQLiteStore) BulkInsert(ctx context.Context, leads []model.Lead) (model.InsertStats, error) {
	var stats model.InsertStats
	for i := range leads {
		inserted, _, err := s.InsertLead(ctx, leads[i])
		switch {
		case err != nil:
			stats.Errors++
			zap.L().Warn("lead insert failed",
				zap.String("name", leads[i].Name),
				zap.Error(err),
			)
		case inserted:
			stats.New++
		default:
			stats.Duplicates++
		}
	}
	return stats, nil
}

func (s *SQLiteStore) GetAllLeads(ctx context.Context, minScore int) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE lead_score >= ?
		 ORDER BY niche ASC, lead_score DESC, id ASC`,
		minScore,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get all leads")
	}
	return collectLeads(rows)
}

func (s *SQLiteStore) GetUnexportedLeads(ctx context.Context, minScore int) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE exported = 0 AND lead_score >= ?
		 ORDER BY niche ASC, lead_score DESC, id ASC`,
		minScore,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get unexported leads")
	}
	return collectLeads(rows)
}

// MarkExported flags the given leads as exported. Already-exported rows
// stay flagged, so repeating a call is harmless.
func (s *SQLiteStore) MarkExported(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE leads SET exported = 1 WHERE id IN (%s)`, strings.Join(placeholders, ", ")),
		args...,
	)
	return eris.Wrap(err, "sqlite: mark exported")
}

func (s *SQLiteStore) IsDuplicate(ctx context.Context, name, city string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM leads WHERE dedup_key = ?`,
		model.DedupKey(name, city),
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: duplicate check")
	}
	return n > 0, nil
}

// ListQualified returns leads with no website and a phone on file, filtered
// to the given score tier. An empty tier returns every qualified lead.
func (s *SQLiteStore) ListQualified(ctx context.Context, tier scoring.Tier) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		 WHERE TRIM(website) = '' AND TRIM(phone) <> ''`
	var args []any

	if tier != "" {
		min, max := scoring.Bounds(tier)
		query += ` AND lead_score >= ?`
		args = append(args, min)
		if max >= 0 {
			query += ` AND lead_score <= ?`
			args = append(args, max)
		}
	}
	query += ` ORDER BY niche ASC, lead_score DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list qualified %s", tier)
	}
	return collectLeads(rows)
}

func (s *SQLiteStore) CountByNiche(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT niche, COUNT(1) FROM leads GROUP BY niche`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by niche")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var niche string
		var n int
		if err := rows.Scan(&niche, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan niche count")
		}
		counts[niche] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by niche iterate")
}

func (s *SQLiteStore) AvgScoreByNiche(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT niche, AVG(lead_score) FROM leads GROUP BY niche`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: avg score by niche")
	}
	defer rows.Close()

	avgs := make(map[string]float64)
	for rows.Next() {
		var niche string
		var avg float64
		if err := rows.Scan(&niche, &avg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan niche avg")
		}
		avgs[niche] = avg
	}
	return avgs, eris.Wrap(rows.Err(), "sqlite: avg score iterate")
}

func (s *SQLiteStore) StartSession(ctx context.Context, niches []string, configSnapshot string) (int64, error) {
	nichesJSON, err := json.Marshal(niches)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal niches")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, niches_searched, config_snapshot) VALUES (?, ?, ?)`,
		time.Now().UTC(), string(nichesJSON), configSnapshot,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: start session")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: session id")
}

// EndSession finalizes the most recent open session with the run's
// counters. It is a no-op when no session is open.
func (s *SQLiteStore) EndSession(ctx context.Context, stats model.RunStats) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET finished_at = ?, total_scraped = ?, new_leads = ?, duplicates = ?, errors = ?
		 WHERE id = (SELECT id FROM sessions WHERE finished_at IS NULL ORDER BY id DESC LIMIT 1)`,
		time.Now().UTC(), stats.Total, stats.New, stats.Duplicates, stats.Errors,
	)
	return eris.Wrap(err, "sqlite: end session")
}

func (s *SQLiteStore) GetSessions(ctx context.Context, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, niches_searched, total_scraped, new_leads, duplicates, errors, config_snapshot
		 FROM sessions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var finished sql.NullTime
		var nichesJSON string
		err := rows.Scan(&sess.ID, &sess.StartedAt, &finished, &nichesJSON,
			&sess.TotalScraped, &sess.NewLeads, &sess.Duplicates, &sess.Errors, &sess.ConfigSnapshot)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		if finished.Valid {
			t := finished.Time
			sess.FinishedAt = &t
		}
		if err := json.Unmarshal([]byte(nichesJSON), &sess.NichesSearched); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal niches")
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: get sessions iterate")
}

// helpers

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func collectLeads(rows *sql.Rows) ([]model.Lead, error) {
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var exported int
		err := rows.Scan(&l.ID, &l.DedupKey, &l.Niche, &l.Name, &l.Phone, &l.SecondaryPhone,
			&l.Address, &l.City, &l.State, &l.ZipCode, &l.Hours, &l.ReviewCount, &l.Rating,
			&l.GMBLink, &l.Website, &l.Facebook, &l.Instagram, &l.DataSource, &l.DateAdded,
			&l.LeadScore, &l.PitchNotes, &l.AdditionalNotes, &l.CallStatus, &l.FollowUpDate,
			&exported)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.Exported = exported != 0
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}
