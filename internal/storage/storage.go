// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"sort"

	"dealer_hunt/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrRunFinalized is returned when finishing a run that was already finished.
var ErrRunFinalized = errors.New("run already finalized")

// UpsertResult describes what an upsert did.
type UpsertResult struct {
	Created   bool
	Candidate model.Candidate
	// AlertDue is set when the stored decision is actionable and ranks above
	// the last decision an alert was emitted for.
	AlertDue bool
}

// CandidateFilter narrows ListCandidates.
type CandidateFilter struct {
	Decision     model.Decision
	IncludeStale bool
	Limit        int
}

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateHunt(ctx context.Context, h *model.Hunt) error
	GetHunt(ctx context.Context, id int64) (*model.Hunt, error)
	ListActiveHunts(ctx context.Context) ([]model.Hunt, error)
	UpdateHunt(ctx context.Context, h *model.Hunt) error

	GetCandidate(ctx context.Context, huntID int64, criteriaVersion int, canonicalID string) (*model.Candidate, error)
	UpsertCandidate(ctx context.Context, c *model.Candidate) (UpsertResult, error)
	ListCandidates(ctx context.Context, huntID int64, f CandidateFilter) ([]model.Candidate, error)
	MarkStale(ctx context.Context, huntID int64, criteriaVersion int) (int64, error)

	RecordAlert(ctx context.Context, a *model.Alert) (bool, error)
	ListAlerts(ctx context.Context, huntID int64, limit int) ([]model.Alert, error)

	CreateRun(ctx context.Context, r *model.Run) error
	FinishRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)

	Close() error
}

// alertDue reports whether decision d should alert given the decision an
// alert was last emitted for.
func alertDue(d, alerted model.Decision) bool {
	return d.Actionable() && d.Rank() > alerted.Rank()
}

// mergeCandidate folds a re-discovery into the stored record. Extracted
// fields keep their previous value when the new discovery did not find
// them; verdict fields always take the new value.
func mergeCandidate(old, upd model.Candidate) model.Candidate {
	m := upd
	m.ID = old.ID
	m.FirstSeenAt = old.FirstSeenAt
	m.AlertEmitted = old.AlertEmitted
	m.AlertedDecision = old.AlertedDecision
	m.Stale = false

	m.Title = keepString(old.Title, upd.Title)
	m.SourceURL = keepString(old.SourceURL, upd.SourceURL)
	m.Make = keepString(old.Make, upd.Make)
	m.Model = keepString(old.Model, upd.Model)
	m.Variant = keepString(old.Variant, upd.Variant)
	m.State = keepString(old.State, upd.State)
	m.Year = keepInt(old.Year, upd.Year)
	m.Odometer = keepInt(old.Odometer, upd.Odometer)
	m.AskingPrice = keepInt(old.AskingPrice, upd.AskingPrice)
	m.VerifiedFields = unionFields(old.VerifiedFields, upd.VerifiedFields)
	return m
}

func keepString(old, upd string) string {
	if upd == "" {
		return old
	}
	return upd
}

func keepInt(old, upd int) int {
	if upd == 0 {
		return old
	}
	return upd
}

func unionFields(a, b []string) []string {
	set := map[string]bool{}
	for _, f := range a {
		set[f] = true
	}
	for _, f := range b {
		set[f] = true
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
