package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"dealer_hunt/internal/model"
	"dealer_hunt/migrations"
)

// Postgres implements Storage backed by a PostgreSQL pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Storage = (*Postgres)(nil)

// NewPostgres connects to databaseURL, verifies the connection and runs
// pending migrations.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrations.Run(db, migrations.DialectPostgres)
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// CreateHunt inserts a new hunt and populates its ID and CreatedAt.
func (p *Postgres) CreateHunt(ctx context.Context, h *model.Hunt) error {
	if h.CriteriaVersion == 0 {
		h.CriteriaVersion = 1
	}
	exclude, err := json.Marshal(nonNilRules(h.Exclude))
	if err != nil {
		return fmt.Errorf("marshal exclude rules: %w", err)
	}
	err = p.pool.QueryRow(ctx,
		`INSERT INTO hunts (name, make, model, year_min, year_max, series, engine_family, cab_type, body_type,
		   must_have, strict_keywords, exclude_rules, min_gap_abs_buy, min_gap_pct_buy, proven_exit_value,
		   criteria_version, queries, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING id, created_at`,
		h.Name, h.Make, h.Model, h.YearMin, h.YearMax, h.Series, h.EngineFamily, h.CabType, h.BodyType,
		nonNil(h.MustHave), h.StrictKeywords, string(exclude), h.MinGapAbsBuy, h.MinGapPctBuy,
		h.ProvenExitValue, h.CriteriaVersion, nonNil(h.Queries), h.IsActive,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert hunt: %w", err)
	}
	return nil
}

const pgHuntColumns = `id, name, make, model, year_min, year_max, series, engine_family, cab_type, body_type,
	must_have, strict_keywords, exclude_rules::text, min_gap_abs_buy, min_gap_pct_buy, proven_exit_value,
	criteria_version, queries, is_active, created_at`

// GetHunt returns a single hunt by its ID.
func (p *Postgres) GetHunt(ctx context.Context, id int64) (*model.Hunt, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgHuntColumns+` FROM hunts WHERE id = $1`, id)
	return pgScanHunt(row)
}

// ListActiveHunts returns all active hunts ordered by ID.
func (p *Postgres) ListActiveHunts(ctx context.Context) ([]model.Hunt, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgHuntColumns+` FROM hunts WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query hunts: %w", err)
	}
	defer rows.Close()

	var hunts []model.Hunt
	for rows.Next() {
		h, err := pgScanHunt(rows)
		if err != nil {
			return nil, err
		}
		hunts = append(hunts, *h)
	}
	return hunts, rows.Err()
}

// UpdateHunt persists changes to an existing hunt.
func (p *Postgres) UpdateHunt(ctx context.Context, h *model.Hunt) error {
	exclude, err := json.Marshal(nonNilRules(h.Exclude))
	if err != nil {
		return fmt.Errorf("marshal exclude rules: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE hunts SET name = $1, make = $2, model = $3, year_min = $4, year_max = $5, series = $6,
		   engine_family = $7, cab_type = $8, body_type = $9, must_have = $10, strict_keywords = $11,
		   exclude_rules = $12, min_gap_abs_buy = $13, min_gap_pct_buy = $14, proven_exit_value = $15,
		   criteria_version = $16, queries = $17, is_active = $18
		 WHERE id = $19`,
		h.Name, h.Make, h.Model, h.YearMin, h.YearMax, h.Series, h.EngineFamily, h.CabType, h.BodyType,
		nonNil(h.MustHave), h.StrictKeywords, string(exclude), h.MinGapAbsBuy, h.MinGapPctBuy,
		h.ProvenExitValue, h.CriteriaVersion, nonNil(h.Queries), h.IsActive, h.ID,
	)
	if err != nil {
		return fmt.Errorf("update hunt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const pgCandidateColumns = `id, hunt_id, criteria_version, canonical_id, identity_kind, run_id, source_url, domain,
	source_name, source_tier, title, year, make, model, variant, odometer, asking_price, state, confidence,
	is_listing, listing_kind, page_type, score, decision, reject_reason, reasons, tags, gap_dollars, gap_pct,
	verified_fields, alert_emitted, alerted_decision, stale, first_seen_at, last_seen_at`

// UpsertCandidate inserts c or folds it into the existing record with the
// same (hunt_id, criteria_version, canonical_id) in a single statement.
// Extracted fields keep their stored value when the new discovery lacks
// them, and verified fields are unioned.
func (p *Postgres) UpsertCandidate(ctx context.Context, c *model.Candidate) (UpsertResult, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO candidates (hunt_id, criteria_version, canonical_id, identity_kind, run_id, source_url,
		   domain, source_name, source_tier, title, year, make, model, variant, odometer, asking_price, state,
		   confidence, is_listing, listing_kind, page_type, score, decision, reject_reason, reasons, tags,
		   gap_dollars, gap_pct, verified_fields)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		   $21, $22, $23, $24, $25, $26, $27, $28,
		   ARRAY(SELECT DISTINCT f FROM unnest($29::text[]) AS f ORDER BY f))
		 ON CONFLICT (hunt_id, criteria_version, canonical_id) DO UPDATE SET
		   identity_kind = EXCLUDED.identity_kind,
		   run_id        = EXCLUDED.run_id,
		   source_url    = COALESCE(NULLIF(EXCLUDED.source_url, ''), candidates.source_url),
		   domain        = EXCLUDED.domain,
		   source_name   = EXCLUDED.source_name,
		   source_tier   = EXCLUDED.source_tier,
		   title         = COALESCE(NULLIF(EXCLUDED.title, ''), candidates.title),
		   year          = COALESCE(NULLIF(EXCLUDED.year, 0), candidates.year),
		   make          = COALESCE(NULLIF(EXCLUDED.make, ''), candidates.make),
		   model         = COALESCE(NULLIF(EXCLUDED.model, ''), candidates.model),
		   variant       = COALESCE(NULLIF(EXCLUDED.variant, ''), candidates.variant),
		   odometer      = COALESCE(NULLIF(EXCLUDED.odometer, 0), candidates.odometer),
		   asking_price  = COALESCE(NULLIF(EXCLUDED.asking_price, 0), candidates.asking_price),
		   state         = COALESCE(NULLIF(EXCLUDED.state, ''), candidates.state),
		   confidence    = EXCLUDED.confidence,
		   is_listing    = EXCLUDED.is_listing,
		   listing_kind  = EXCLUDED.listing_kind,
		   page_type     = EXCLUDED.page_type,
		   score         = EXCLUDED.score,
		   decision      = EXCLUDED.decision,
		   reject_reason = EXCLUDED.reject_reason,
		   reasons       = EXCLUDED.reasons,
		   tags          = EXCLUDED.tags,
		   gap_dollars   = EXCLUDED.gap_dollars,
		   gap_pct       = EXCLUDED.gap_pct,
		   verified_fields = ARRAY(
		     SELECT DISTINCT f FROM unnest(candidates.verified_fields || EXCLUDED.verified_fields) AS f ORDER BY f),
		   stale         = FALSE,
		   last_seen_at  = now()
		 RETURNING `+pgCandidateColumns+`, (xmax = 0) AS inserted`,
		c.HuntID, c.CriteriaVersion, c.CanonicalID, string(c.IdentityKind), c.RunID, c.SourceURL,
		c.Domain, c.SourceName, c.SourceTier, c.Title, c.Year, c.Make, c.Model, c.Variant, c.Odometer,
		c.AskingPrice, c.State, string(c.Confidence), c.IsListing, string(c.ListingKind),
		string(c.PageType), c.Score, string(c.Decision), c.RejectReason, nonNil(c.Reasons), nonNil(c.Tags),
		c.GapDollars, c.GapPct, nonNil(c.VerifiedFields),
	)

	var inserted bool
	stored, err := pgScanCandidate(row, &inserted)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert candidate: %w", err)
	}
	*c = *stored
	return UpsertResult{
		Created:   inserted,
		Candidate: *stored,
		AlertDue:  alertDue(stored.Decision, stored.AlertedDecision),
	}, nil
}

// GetCandidate returns the candidate recorded under canonicalID for the
// given criteria version.
func (p *Postgres) GetCandidate(ctx context.Context, huntID int64, criteriaVersion int, canonicalID string) (*model.Candidate, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+pgCandidateColumns+` FROM candidates
		 WHERE hunt_id = $1 AND criteria_version = $2 AND canonical_id = $3`,
		huntID, criteriaVersion, canonicalID,
	)
	return pgScanCandidate(row)
}

// ListCandidates returns the hunt's candidates, best first.
func (p *Postgres) ListCandidates(ctx context.Context, huntID int64, f CandidateFilter) ([]model.Candidate, error) {
	var (
		where = []string{"hunt_id = $1"}
		args  = []any{huntID}
	)
	if f.Decision != "" {
		args = append(args, string(f.Decision))
		where = append(where, fmt.Sprintf("decision = $%d", len(args)))
	}
	if !f.IncludeStale {
		where = append(where, "NOT stale")
	}
	query := `SELECT ` + pgCandidateColumns + ` FROM candidates WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY score DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c, err := pgScanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// MarkStale flags candidates recorded under an older criteria version.
func (p *Postgres) MarkStale(ctx context.Context, huntID int64, criteriaVersion int) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE candidates SET stale = TRUE WHERE hunt_id = $1 AND criteria_version < $2 AND NOT stale`,
		huntID, criteriaVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecordAlert stores a and marks the candidate as alerted for a.Decision,
// unless an alert for that decision or a higher one was already emitted.
func (p *Postgres) RecordAlert(ctx context.Context, a *model.Alert) (bool, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var alerted string
	err = tx.QueryRow(ctx,
		`SELECT alerted_decision FROM candidates WHERE id = $1 FOR UPDATE`, a.CandidateID,
	).Scan(&alerted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("read alert state: %w", err)
	}
	if !alertDue(a.Decision, model.Decision(alerted)) {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE candidates SET alert_emitted = TRUE, alerted_decision = $1 WHERE id = $2`,
		string(a.Decision), a.CandidateID,
	); err != nil {
		return false, fmt.Errorf("set alert state: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO alerts (candidate_id, hunt_id, decision, payload) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (candidate_id, decision) DO NOTHING
		 RETURNING id, created_at`,
		a.CandidateID, a.HuntID, string(a.Decision), a.Payload,
	).Scan(&a.ID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// ListAlerts returns the hunt's most recent alerts.
func (p *Postgres) ListAlerts(ctx context.Context, huntID int64, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, candidate_id, hunt_id, decision, payload::text, created_at
		 FROM alerts WHERE hunt_id = $1 ORDER BY id DESC LIMIT $2`, huntID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var a model.Alert
		var decision string
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.HuntID, &decision, &a.Payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Decision = model.Decision(decision)
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateRun inserts a run in the running state.
func (p *Postgres) CreateRun(ctx context.Context, r *model.Run) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	r.Status = model.RunRunning
	_, err := p.pool.Exec(ctx,
		`INSERT INTO runs (id, hunt_id, status, started_at) VALUES ($1, $2, $3, $4)`,
		r.ID, r.HuntID, string(r.Status), r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun writes the final counters. A run can be finished only once.
func (p *Postgres) FinishRun(ctx context.Context, r *model.Run) error {
	finished := time.Now().UTC()
	if r.FinishedAt != nil {
		finished = r.FinishedAt.UTC()
	}
	reasons, err := json.Marshal(nonNilMap(r.RejectReasons))
	if err != nil {
		return fmt.Errorf("marshal reject reasons: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE runs SET status = $1, queries_run = $2, results_seen = $3, listings = $4, articles = $5,
		   candidates_created = $6, candidates_updated = $7, candidates_rejected = $8, alerts_emitted = $9,
		   reject_reasons = $10, errors = $11, tier2_used = $12, finished_at = $13
		 WHERE id = $14 AND finished_at IS NULL`,
		string(r.Status), r.QueriesRun, r.ResultsSeen, r.Listings, r.Articles, r.CandidatesCreated,
		r.CandidatesUpdated, r.CandidatesRejected, r.AlertsEmitted, string(reasons), nonNil(r.Errors),
		r.Tier2Used, finished, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, ErrRunFinalized)
	}
	r.FinishedAt = &finished
	return nil
}

// GetRun returns a run by ID.
func (p *Postgres) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var (
		r       model.Run
		status  string
		reasons string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, hunt_id, status, queries_run, results_seen, listings, articles, candidates_created,
		   candidates_updated, candidates_rejected, alerts_emitted, reject_reasons::text, errors, tier2_used,
		   started_at, finished_at
		 FROM runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.HuntID, &status, &r.QueriesRun, &r.ResultsSeen, &r.Listings, &r.Articles,
		&r.CandidatesCreated, &r.CandidatesUpdated, &r.CandidatesRejected, &r.AlertsEmitted,
		&reasons, &r.Errors, &r.Tier2Used, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.Status = model.RunStatus(status)
	fromJSON(reasons, &r.RejectReasons)
	return &r, nil
}

func pgScanHunt(row pgx.Row) (*model.Hunt, error) {
	var (
		h       model.Hunt
		exclude string
	)
	err := row.Scan(&h.ID, &h.Name, &h.Make, &h.Model, &h.YearMin, &h.YearMax, &h.Series, &h.EngineFamily,
		&h.CabType, &h.BodyType, &h.MustHave, &h.StrictKeywords, &exclude, &h.MinGapAbsBuy, &h.MinGapPctBuy,
		&h.ProvenExitValue, &h.CriteriaVersion, &h.Queries, &h.IsActive, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan hunt: %w", err)
	}
	fromJSON(exclude, &h.Exclude)
	return &h, nil
}

// pgScanCandidate scans candidate columns and, when extra destinations are
// given, any trailing columns after them.
func pgScanCandidate(row pgx.Row, extra ...any) (*model.Candidate, error) {
	var (
		c                          model.Candidate
		identity, confidence, kind string
		page, dec, alerted         string
	)
	dest := []any{&c.ID, &c.HuntID, &c.CriteriaVersion, &c.CanonicalID, &identity, &c.RunID, &c.SourceURL,
		&c.Domain, &c.SourceName, &c.SourceTier, &c.Title, &c.Year, &c.Make, &c.Model, &c.Variant,
		&c.Odometer, &c.AskingPrice, &c.State, &confidence, &c.IsListing, &kind, &page, &c.Score, &dec,
		&c.RejectReason, &c.Reasons, &c.Tags, &c.GapDollars, &c.GapPct, &c.VerifiedFields, &c.AlertEmitted,
		&alerted, &c.Stale, &c.FirstSeenAt, &c.LastSeenAt}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	c.IdentityKind = model.IdentityKind(identity)
	c.Confidence = model.Confidence(confidence)
	c.ListingKind = model.ListingKind(kind)
	c.PageType = model.PageType(page)
	c.Decision = model.Decision(dec)
	c.AlertedDecision = model.Decision(alerted)
	return &c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRules(r []model.KeywordRule) []model.KeywordRule {
	if r == nil {
		return []model.KeywordRule{}
	}
	return r
}

func nonNilMap(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
