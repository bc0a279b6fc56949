package hunt

import (
	"time"

	"dealer_hunt/internal/model"
)

// Summary is the structured result of a run.
type Summary struct {
	RunID              string          `json:"run_id"`
	HuntID             int64           `json:"hunt_id"`
	Status             model.RunStatus `json:"status"`
	States             []State         `json:"states"`
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

func newSummary(r *model.Run, states []State) *Summary {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return &Summary{
		RunID:              r.ID,
		HuntID:             r.HuntID,
		Status:             r.Status,
		States:             states,
		QueriesRun:         r.QueriesRun,
		ResultsSeen:        r.ResultsSeen,
		Listings:           r.Listings,
		Articles:           r.Articles,
		CandidatesCreated:  r.CandidatesCreated,
		CandidatesUpdated:  r.CandidatesUpdated,
		CandidatesRejected: r.CandidatesRejected,
		AlertsEmitted:      r.AlertsEmitted,
		RejectReasons:      r.RejectReasons,
		Errors:             errs,
		Tier2Used:          r.Tier2Used,
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
	}
}
