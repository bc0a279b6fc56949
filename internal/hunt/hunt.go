// Package hunt runs a hunt end to end: it plans queries, calls the search
// and scrape providers, turns results into candidates and records the run.
package hunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"dealer_hunt/internal/classify"
	"dealer_hunt/internal/extract"
	"dealer_hunt/internal/identity"
	"dealer_hunt/internal/lock"
	"dealer_hunt/internal/metrics"
	"dealer_hunt/internal/model"
	"dealer_hunt/internal/provider"
	"dealer_hunt/internal/source"
	"dealer_hunt/internal/storage"
)

// Errors that abort a run before it starts.
var (
	ErrHuntNotFound       = errors.New("hunt not found")
	ErrMissingCredentials = errors.New("search provider credentials are not configured")
	ErrInvalidHunt        = errors.New("invalid hunt")
	ErrRunInProgress      = errors.New("a run of this hunt is already in progress")
)

// Searcher runs free-text queries.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]provider.Result, error)
}

// Scraper fetches a single page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*provider.Page, error)
}

// FeedReader reads a saved-search feed.
type FeedReader interface {
	Read(ctx context.Context, url string) ([]provider.Result, error)
}

// Notifier delivers an alert for a candidate.
type Notifier interface {
	Notify(ctx context.Context, h *model.Hunt, c model.Candidate, a model.Alert) error
}

var (
	_ Searcher   = (*provider.Client)(nil)
	_ Scraper    = (*provider.Client)(nil)
	_ FeedReader = (*provider.FeedReader)(nil)
	_ Notifier   = LogNotifier{}
)

// State is a phase of a run.
type State string

// Run phases, in order.
const (
	StateBuildingQueries State = "building_queries"
	StateTier1           State = "tier1_priority_search"
	StateTier2           State = "tier2_fallback_search"
	StateFinalizing      State = "finalizing"
)

// Config tunes a Runner.
type Config struct {
	// ResultLimit is the per-query result count when the caller gives none.
	ResultLimit int
	// MinTier1Yield is the number of tier-1 created candidates below which
	// fallback sources are searched.
	MinTier1Yield int
	// MaxEnrich caps detail-page scrapes used to complete thin snippets.
	MaxEnrich int
	// CallTimeout bounds each provider call.
	CallTimeout time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		ResultLimit:   10,
		MinTier1Yield: 3,
		MaxEnrich:     5,
		CallTimeout:   60 * time.Second,
	}
}

// Deps are the collaborators of a Runner. Search may be nil when no
// credentials are configured; every run then fails with
// ErrMissingCredentials.
type Deps struct {
	Store    storage.Storage
	Search   Searcher
	Scrape   Scraper
	Feeds    FeedReader
	Catalog  *source.Catalog
	Throttle *provider.Throttle
	Locker   lock.Locker
	Notifier Notifier
	Logger   *slog.Logger
}

// Runner executes hunts.
type Runner struct {
	Deps
	cfg        Config
	classifier *classify.Classifier
}

// NewRunner creates a Runner.
func NewRunner(d Deps, cfg Config) *Runner {
	def := DefaultConfig()
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = def.ResultLimit
	}
	if cfg.MinTier1Yield < 0 {
		cfg.MinTier1Yield = def.MinTier1Yield
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if d.Catalog == nil {
		d.Catalog = source.Default()
	}
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Runner{Deps: d, cfg: cfg, classifier: classify.New(d.Catalog)}
}

// Run executes one run of the hunt and returns its summary. Provider
// failures do not abort the run; they are collected and reflected in the
// run status. Errors are returned only when the run cannot start or its
// record cannot be written.
func (r *Runner) Run(ctx context.Context, huntID int64, limit int) (*Summary, error) {
	if r.Search == nil {
		return nil, ErrMissingCredentials
	}

	h, err := r.Store.GetHunt(ctx, huntID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("hunt %d: %w", huntID, ErrHuntNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load hunt %d: %w", huntID, err)
	}
	if err := Validate(h); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = r.cfg.ResultLimit
	}

	release, err := r.Locker.Acquire(ctx, "hunt:"+strconv.FormatInt(h.ID, 10))
	if errors.Is(err, lock.ErrHeld) {
		return nil, fmt.Errorf("hunt %d: %w", h.ID, ErrRunInProgress)
	}
	if err != nil {
		return nil, fmt.Errorf("lock hunt %d: %w", h.ID, err)
	}
	defer release()

	if n, err := r.Store.MarkStale(ctx, h.ID, h.CriteriaVersion); err != nil {
		return nil, fmt.Errorf("mark stale: %w", err)
	} else if n > 0 {
		r.Logger.Info("marked candidates stale", "hunt_id", h.ID, "count", n)
	}

	run := &model.Run{ID: uuid.NewString(), HuntID: h.ID, RejectReasons: map[string]int{}}
	if err := r.Store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	started := time.Now()

	st := &runState{
		Runner:  r,
		hunt:    h,
		run:     run,
		limit:   limit,
		seen:    identity.NewSeen(),
		logger:  r.Logger.With("component", "hunt", "hunt_id", h.ID, "run_id", run.ID),
		enrichN: r.cfg.MaxEnrich,
		drafts:  map[string]extract.Draft{},
	}
	st.logger.Info("run started", "limit", limit)

	st.enter(StateBuildingQueries)
	tier1, tier2 := BuildQueries(h, r.Catalog)

	st.enter(StateTier1)
	st.execute(ctx, tier1)
	tier1Created := run.CandidatesCreated

	if tier1Created < r.cfg.MinTier1Yield && len(tier2) > 0 && ctx.Err() == nil {
		st.enter(StateTier2)
		run.Tier2Used = true
		st.execute(ctx, tier2)
	}

	st.enter(StateFinalizing)
	if err := ctx.Err(); err != nil {
		run.Errors = append(run.Errors, "run interrupted: "+err.Error())
	}
	run.Status = st.status()

	// The run record is written even when the caller's context is done.
	if err := r.Store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	metrics.ObserveRun(string(run.Status), time.Since(started))
	st.logger.Info("run finished",
		"status", run.Status,
		"queries", run.QueriesRun,
		"results", run.ResultsSeen,
		"created", run.CandidatesCreated,
		"updated", run.CandidatesUpdated,
		"rejected", run.CandidatesRejected,
		"alerts", run.AlertsEmitted,
		"tier2", run.Tier2Used,
	)
	return newSummary(run, st.states), nil
}
