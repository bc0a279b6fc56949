package server

import (
	"time"

	"dealer_hunt/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

type huntView struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Make            string   `json:"make"`
	Model           string   `json:"model"`
	YearMin         int      `json:"year_min"`
	YearMax         int      `json:"year_max"`
	Series          string   `json:"series,omitempty"`
	EngineFamily    string   `json:"engine_family,omitempty"`
	CabType         string   `json:"cab_type,omitempty"`
	BodyType        string   `json:"body_type,omitempty"`
	ProvenExitValue int      `json:"proven_exit_value"`
	CriteriaVersion int      `json:"criteria_version"`
	Queries         []string `json:"queries,omitempty"`
}

func newHuntView(h model.Hunt) huntView {
	return huntView{
		ID:              h.ID,
		Name:            h.Name,
		Make:            h.Make,
		Model:           h.Model,
		YearMin:         h.YearMin,
		YearMax:         h.YearMax,
		Series:          h.Series,
		EngineFamily:    h.EngineFamily,
		CabType:         h.CabType,
		BodyType:        h.BodyType,
		ProvenExitValue: h.ProvenExitValue,
		CriteriaVersion: h.CriteriaVersion,
		Queries:         h.Queries,
	}
}

type candidateView struct {
	ID             int64          `json:"id"`
	CanonicalID    string         `json:"canonical_id"`
	URL            string         `json:"url"`
	Source         string         `json:"source,omitempty"`
	Title          string         `json:"title"`
	Year           int            `json:"year,omitempty"`
	Variant        string         `json:"variant,omitempty"`
	Odometer       int            `json:"odometer,omitempty"`
	AskingPrice    int            `json:"asking_price,omitempty"`
	State          string         `json:"state,omitempty"`
	ListingKind    string         `json:"listing_kind"`
	Confidence     string         `json:"confidence"`
	Score          float64        `json:"score"`
	Decision       model.Decision `json:"decision"`
	RejectReason   string         `json:"reject_reason,omitempty"`
	Reasons        []string       `json:"reasons"`
	GapDollars     int            `json:"gap_dollars"`
	GapPct         float64        `json:"gap_pct"`
	VerifiedFields []string       `json:"verified_fields"`
	Stale          bool           `json:"stale"`
	FirstSeenAt    time.Time      `json:"first_seen_at"`
	LastSeenAt     time.Time      `json:"last_seen_at"`
}

func newCandidateView(c model.Candidate) candidateView {
	return candidateView{
		ID:             c.ID,
		CanonicalID:    c.CanonicalID,
		URL:            c.SourceURL,
		Source:         c.SourceName,
		Title:          c.Title,
		Year:           c.Year,
		Variant:        c.Variant,
		Odometer:       c.Odometer,
		AskingPrice:    c.AskingPrice,
		State:          c.State,
		ListingKind:    string(c.ListingKind),
		Confidence:     string(c.Confidence),
		Score:          c.Score,
		Decision:       c.Decision,
		RejectReason:   c.RejectReason,
		Reasons:        orEmpty(c.Reasons),
		GapDollars:     c.GapDollars,
		GapPct:         c.GapPct,
		VerifiedFields: orEmpty(c.VerifiedFields),
		Stale:          c.Stale,
		FirstSeenAt:    c.FirstSeenAt,
		LastSeenAt:     c.LastSeenAt,
	}
}

type alertView struct {
	ID          int64          `json:"id"`
	CandidateID int64          `json:"candidate_id"`
	Decision    model.Decision `json:"decision"`
	Payload     string         `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

type runView struct {
	ID                 string          `json:"id"`
	HuntID             int64           `json:"hunt_id"`
	Status             model.RunStatus `json:"status"`
	QueriesRun         int             `json:"queries_run"`
	ResultsSeen        int             `json:"results_seen"`
	Listings           int             `json:"listings"`
	Articles           int             `json:"articles"`
	CandidatesCreated  int             `json:"candidates_created"`
	CandidatesUpdated  int             `json:"candidates_updated"`
	CandidatesRejected int             `json:"candidates_rejected"`
	AlertsEmitted      int             `json:"alerts_emitted"`
	RejectReasons      map[string]int  `json:"reject_reasons"`
	Errors             []string        `json:"errors"`
	Tier2Used          bool            `json:"tier2_used"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         *time.Time      `json:"finished_at,omitempty"`
}

func newRunView(r *model.Run) runView {
	reasons := r.RejectReasons
	if reasons == nil {
		reasons = map[string]int{}
	}
	return runView{
		ID:                 r.ID,
		HuntID:             r.HuntID,
		Status:             r.Status,
		QueriesRun:         r.QueriesRun,
		ResultsSeen:        r.ResultsSeen,
		Listings:           r.Listings,
		Articles:           r.Articles,
		CandidatesCreated:  r.CandidatesCreated,
		CandidatesUpdated:  r.CandidatesUpdated,
		CandidatesRejected: r.CandidatesRejected,
		AlertsEmitted:      r.AlertsEmitted,
		RejectReasons:      reasons,
		Errors:             orEmpty(r.Errors),
		Tier2Used:          r.Tier2Used,
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
