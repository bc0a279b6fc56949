package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"dealer_hunt/internal/model"
	"dealer_hunt/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting across pool connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db, migrations.DialectSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const huntColumns = `id, name, make, model, year_min, year_max, series, engine_family, cab_type, body_type,
	must_have, strict_keywords, exclude_rules, min_gap_abs_buy, min_gap_pct_buy, proven_exit_value,
	criteria_version, queries, is_active, created_at`

// CreateHunt inserts a new hunt and populates its ID and CreatedAt.
func (s *SQLite) CreateHunt(ctx context.Context, h *model.Hunt) error {
	if h.CriteriaVersion == 0 {
		h.CriteriaVersion = 1
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO hunts (name, make, model, year_min, year_max, series, engine_family, cab_type, body_type,
		   must_have, strict_keywords, exclude_rules, min_gap_abs_buy, min_gap_pct_buy, proven_exit_value,
		   criteria_version, queries, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Name, h.Make, h.Model, h.YearMin, h.YearMax, h.Series, h.EngineFamily, h.CabType, h.BodyType,
		toJSON(h.MustHave), boolToInt(h.StrictKeywords), toJSON(h.Exclude), h.MinGapAbsBuy, h.MinGapPctBuy,
		h.ProvenExitValue, h.CriteriaVersion, toJSON(h.Queries), boolToInt(h.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert hunt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	h.ID = id
	h.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetHunt returns a single hunt by its ID.
func (s *SQLite) GetHunt(ctx context.Context, id int64) (*model.Hunt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+huntColumns+` FROM hunts WHERE id = ?`, id)
	return scanHunt(row)
}

// ListActiveHunts returns all active hunts ordered by ID.
func (s *SQLite) ListActiveHunts(ctx context.Context) ([]model.Hunt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+huntColumns+` FROM hunts WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query hunts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hunts []model.Hunt
	for rows.Next() {
		h, err := scanHunt(rows)
		if err != nil {
			return nil, err
		}
		hunts = append(hunts, *h)
	}
	return hunts, rows.Err()
}

// UpdateHunt persists changes to an existing hunt.
func (s *SQLite) UpdateHunt(ctx context.Context, h *model.Hunt) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hunts SET name = ?, make = ?, model = ?, year_min = ?, year_max = ?, series = ?,
		   engine_family = ?, cab_type = ?, body_type = ?, must_have = ?, strict_keywords = ?,
		   exclude_rules = ?, min_gap_abs_buy = ?, min_gap_pct_buy = ?, proven_exit_value = ?,
		   criteria_version = ?, queries = ?, is_active = ?
		 WHERE id = ?`,
		h.Name, h.Make, h.Model, h.YearMin, h.YearMax, h.Series, h.EngineFamily, h.CabType, h.BodyType,
		toJSON(h.MustHave), boolToInt(h.StrictKeywords), toJSON(h.Exclude), h.MinGapAbsBuy, h.MinGapPctBuy,
		h.ProvenExitValue, h.CriteriaVersion, toJSON(h.Queries), boolToInt(h.IsActive), h.ID,
	)
	if err != nil {
		return fmt.Errorf("update hunt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const candidateColumns = `id, hunt_id, criteria_version, canonical_id, identity_kind, run_id, source_url, domain,
	source_name, source_tier, title, year, make, model, variant, odometer, asking_price, state, confidence,
	is_listing, listing_kind, page_type, score, decision, reject_reason, reasons, tags, gap_dollars, gap_pct,
	verified_fields, alert_emitted, alerted_decision, stale, first_seen_at, last_seen_at`

// UpsertCandidate inserts c or folds it into the existing record with the
// same (hunt_id, criteria_version, canonical_id). c is updated in place with
// the stored state.
func (s *SQLite) UpsertCandidate(ctx context.Context, c *model.Candidate) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	row := tx.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE hunt_id = ? AND criteria_version = ? AND canonical_id = ?`,
		c.HuntID, c.CriteriaVersion, c.CanonicalID,
	)
	old, err := scanCandidate(row)
	switch {
	case errors.Is(err, ErrNotFound):
		stored := *c
		stored.FirstSeenAt = now
		stored.LastSeenAt = now
		stored.AlertEmitted = false
		stored.AlertedDecision = ""
		stored.Stale = false
		stored.VerifiedFields = unionFields(nil, c.VerifiedFields)
		id, err := insertCandidate(ctx, tx, &stored)
		if err != nil {
			return UpsertResult{}, err
		}
		stored.ID = id
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, fmt.Errorf("commit: %w", err)
		}
		*c = truncate(stored)
		return UpsertResult{Created: true, Candidate: *c, AlertDue: alertDue(c.Decision, "")}, nil
	case err != nil:
		return UpsertResult{}, err
	}

	merged := mergeCandidate(*old, *c)
	merged.LastSeenAt = now
	if err := updateCandidate(ctx, tx, &merged); err != nil {
		return UpsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit: %w", err)
	}
	*c = truncate(merged)
	return UpsertResult{Candidate: *c, AlertDue: alertDue(c.Decision, c.AlertedDecision)}, nil
}

func insertCandidate(ctx context.Context, tx *sql.Tx, c *model.Candidate) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO candidates (hunt_id, criteria_version, canonical_id, identity_kind, run_id, source_url,
		   domain, source_name, source_tier, title, year, make, model, variant, odometer, asking_price, state,
		   confidence, is_listing, listing_kind, page_type, score, decision, reject_reason, reasons, tags,
		   gap_dollars, gap_pct, verified_fields, alert_emitted, alerted_decision, stale, first_seen_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '', 0, ?, ?)`,
		c.HuntID, c.CriteriaVersion, c.CanonicalID, string(c.IdentityKind), c.RunID, c.SourceURL,
		c.Domain, c.SourceName, c.SourceTier, c.Title, c.Year, c.Make, c.Model, c.Variant, c.Odometer,
		c.AskingPrice, c.State, string(c.Confidence), boolToInt(c.IsListing), string(c.ListingKind),
		string(c.PageType), c.Score, string(c.Decision), c.RejectReason, toJSON(c.Reasons), toJSON(c.Tags),
		c.GapDollars, c.GapPct, toJSON(c.VerifiedFields),
		c.FirstSeenAt.Format(timeLayout), c.LastSeenAt.Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert candidate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func updateCandidate(ctx context.Context, tx *sql.Tx, c *model.Candidate) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE candidates SET identity_kind = ?, run_id = ?, source_url = ?, domain = ?, source_name = ?,
		   source_tier = ?, title = ?, year = ?, make = ?, model = ?, variant = ?, odometer = ?,
		   asking_price = ?, state = ?, confidence = ?, is_listing = ?, listing_kind = ?, page_type = ?,
		   score = ?, decision = ?, reject_reason = ?, reasons = ?, tags = ?, gap_dollars = ?, gap_pct = ?,
		   verified_fields = ?, stale = 0, last_seen_at = ?
		 WHERE id = ?`,
		string(c.IdentityKind), c.RunID, c.SourceURL, c.Domain, c.SourceName, c.SourceTier, c.Title,
		c.Year, c.Make, c.Model, c.Variant, c.Odometer, c.AskingPrice, c.State, string(c.Confidence),
		boolToInt(c.IsListing), string(c.ListingKind), string(c.PageType), c.Score, string(c.Decision),
		c.RejectReason, toJSON(c.Reasons), toJSON(c.Tags), c.GapDollars, c.GapPct,
		toJSON(c.VerifiedFields), c.LastSeenAt.Format(timeLayout), c.ID,
	)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	return nil
}

// GetCandidate returns the candidate recorded under canonicalID for the
// given criteria version.
func (s *SQLite) GetCandidate(ctx context.Context, huntID int64, criteriaVersion int, canonicalID string) (*model.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE hunt_id = ? AND criteria_version = ? AND canonical_id = ?`,
		huntID, criteriaVersion, canonicalID,
	)
	return scanCandidate(row)
}

// ListCandidates returns the hunt's candidates, best first.
func (s *SQLite) ListCandidates(ctx context.Context, huntID int64, f CandidateFilter) ([]model.Candidate, error) {
	var (
		where = []string{"hunt_id = ?"}
		args  = []any{huntID}
	)
	if f.Decision != "" {
		where = append(where, "decision = ?")
		args = append(args, string(f.Decision))
	}
	if !f.IncludeStale {
		where = append(where, "stale = 0")
	}
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY score DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// MarkStale flags candidates recorded under an older criteria version.
func (s *SQLite) MarkStale(ctx context.Context, huntID int64, criteriaVersion int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET stale = 1 WHERE hunt_id = ? AND criteria_version < ? AND stale = 0`,
		huntID, criteriaVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}
	return res.RowsAffected()
}

// RecordAlert stores a and marks the candidate as alerted for a.Decision,
// unless an alert for that decision or a higher one was already emitted.
// It reports whether the alert was recorded.
func (s *SQLite) RecordAlert(ctx context.Context, a *model.Alert) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var alerted string
	err = tx.QueryRowContext(ctx, `SELECT alerted_decision FROM candidates WHERE id = ?`, a.CandidateID).Scan(&alerted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("read alert state: %w", err)
	}
	if !alertDue(a.Decision, model.Decision(alerted)) {
		return false, nil
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE candidates SET alert_emitted = 1, alerted_decision = ? WHERE id = ? AND alerted_decision = ?`,
		string(a.Decision), a.CandidateID, alerted,
	)
	if err != nil {
		return false, fmt.Errorf("set alert state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	now := time.Now().UTC().Format(timeLayout)
	res, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO alerts (candidate_id, hunt_id, decision, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.CandidateID, a.HuntID, string(a.Decision), a.Payload, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	a.ID = id
	a.CreatedAt, _ = time.Parse(timeLayout, now)
	return true, nil
}

// ListAlerts returns the hunt's most recent alerts.
func (s *SQLite) ListAlerts(ctx context.Context, huntID int64, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, hunt_id, decision, payload, created_at
		 FROM alerts WHERE hunt_id = ? ORDER BY id DESC LIMIT ?`, huntID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Alert
	for rows.Next() {
		var a model.Alert
		var decision, created string
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.HuntID, &decision, &a.Payload, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Decision = model.Decision(decision)
		a.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateRun inserts a run in the running state.
func (s *SQLite) CreateRun(ctx context.Context, r *model.Run) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	r.StartedAt = r.StartedAt.UTC().Truncate(time.Second)
	r.Status = model.RunRunning
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, hunt_id, status, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.HuntID, string(r.Status), r.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun writes the final counters. A run can be finished only once.
func (s *SQLite) FinishRun(ctx context.Context, r *model.Run) error {
	finished := time.Now().UTC().Truncate(time.Second)
	if r.FinishedAt != nil {
		finished = r.FinishedAt.UTC().Truncate(time.Second)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, queries_run = ?, results_seen = ?, listings = ?, articles = ?,
		   candidates_created = ?, candidates_updated = ?, candidates_rejected = ?, alerts_emitted = ?,
		   reject_reasons = ?, errors = ?, tier2_used = ?, finished_at = ?
		 WHERE id = ? AND finished_at IS NULL`,
		string(r.Status), r.QueriesRun, r.ResultsSeen, r.Listings, r.Articles, r.CandidatesCreated,
		r.CandidatesUpdated, r.CandidatesRejected, r.AlertsEmitted, toJSON(r.RejectReasons),
		toJSON(r.Errors), boolToInt(r.Tier2Used), finished.Format(timeLayout), r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, ErrRunFinalized)
	}
	r.FinishedAt = &finished
	return nil
}

// GetRun returns a run by ID.
func (s *SQLite) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, hunt_id, status, queries_run, results_seen, listings, articles, candidates_created,
		   candidates_updated, candidates_rejected, alerts_emitted, reject_reasons, errors, tier2_used,
		   started_at, finished_at
		 FROM runs WHERE id = ?`, id,
	)
	var (
		r        model.Run
		status   string
		reasons  string
		errs     string
		tier2    int
		started  string
		finished sql.NullString
	)
	err := row.Scan(&r.ID, &r.HuntID, &status, &r.QueriesRun, &r.ResultsSeen, &r.Listings, &r.Articles,
		&r.CandidatesCreated, &r.CandidatesUpdated, &r.CandidatesRejected, &r.AlertsEmitted,
		&reasons, &errs, &tier2, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.Status = model.RunStatus(status)
	r.Tier2Used = tier2 == 1
	fromJSON(reasons, &r.RejectReasons)
	fromJSON(errs, &r.Errors)
	r.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		t, _ := time.Parse(timeLayout, finished.String)
		r.FinishedAt = &t
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		switch v.(type) {
		case map[string]int:
			return "{}"
		default:
			return "[]"
		}
	}
	return string(b)
}

func fromJSON(s string, v any) {
	_ = json.Unmarshal([]byte(s), v)
}

// truncate drops sub-second precision so returned values match what a
// later read yields.
func truncate(c model.Candidate) model.Candidate {
	c.FirstSeenAt = c.FirstSeenAt.UTC().Truncate(time.Second)
	c.LastSeenAt = c.LastSeenAt.UTC().Truncate(time.Second)
	return c
}

type scannable interface {
	Scan(dest ...any) error
}

func scanHunt(row scannable) (*model.Hunt, error) {
	var (
		h        model.Hunt
		mustHave string
		exclude  string
		qs       string
		strict   int
		active   int
		created  string
	)
	err := row.Scan(&h.ID, &h.Name, &h.Make, &h.Model, &h.YearMin, &h.YearMax, &h.Series, &h.EngineFamily,
		&h.CabType, &h.BodyType, &mustHave, &strict, &exclude, &h.MinGapAbsBuy, &h.MinGapPctBuy,
		&h.ProvenExitValue, &h.CriteriaVersion, &qs, &active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan hunt: %w", err)
	}
	fromJSON(mustHave, &h.MustHave)
	fromJSON(exclude, &h.Exclude)
	fromJSON(qs, &h.Queries)
	h.StrictKeywords = strict == 1
	h.IsActive = active == 1
	h.CreatedAt, _ = time.Parse(timeLayout, created)
	return &h, nil
}

func scanCandidate(row scannable) (*model.Candidate, error) {
	var (
		c                              model.Candidate
		identity, confidence, kind     string
		page, dec, alerted             string
		reasons, tags, verified        string
		isListing, alertEmitted, stale int
		first, last                    string
	)
	err := row.Scan(&c.ID, &c.HuntID, &c.CriteriaVersion, &c.CanonicalID, &identity, &c.RunID, &c.SourceURL,
		&c.Domain, &c.SourceName, &c.SourceTier, &c.Title, &c.Year, &c.Make, &c.Model, &c.Variant,
		&c.Odometer, &c.AskingPrice, &c.State, &confidence, &isListing, &kind, &page, &c.Score, &dec,
		&c.RejectReason, &reasons, &tags, &c.GapDollars, &c.GapPct, &verified, &alertEmitted, &alerted,
		&stale, &first, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	c.IdentityKind = model.IdentityKind(identity)
	c.Confidence = model.Confidence(confidence)
	c.IsListing = isListing == 1
	c.ListingKind = model.ListingKind(kind)
	c.PageType = model.PageType(page)
	c.Decision = model.Decision(dec)
	c.AlertEmitted = alertEmitted == 1
	c.AlertedDecision = model.Decision(alerted)
	c.Stale = stale == 1
	fromJSON(reasons, &c.Reasons)
	fromJSON(tags, &c.Tags)
	fromJSON(verified, &c.VerifiedFields)
	c.FirstSeenAt, _ = time.Parse(timeLayout, first)
	c.LastSeenAt, _ = time.Parse(timeLayout, last)
	return &c, nil
}
