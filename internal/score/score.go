// Package score computes a candidate's match score and decides what to do
// with it.
package score

import (
	"math"

	"dealer_hunt/internal/model"
)

// Weights and thresholds.
const (
	Base = 3.0

	ExactYear    = 1.5
	AdjacentYear = 0.75
	MakeMatch    = 0.5
	ModelMatch   = 1.0
	SeriesMatch  = 1.0
	EngineMatch  = 0.5
	Auction      = 0.5
	Listing      = 0.5
	HighConf     = 0.5

	GapLarge   = 1.5  // gap >= 10%
	GapMedium  = 1.0  // gap >= 5%
	GapSmall   = 0.25 // gap >= 0%
	Overpriced = -1.5

	BuyScore   = 7.0
	WatchScore = 5.0
	MaxScore   = 10.0
)

// TagOverpriced marks candidates asking more than the proven exit value.
const TagOverpriced = "overpriced"

// Input is everything the scorer looks at.
type Input struct {
	Hunt        *model.Hunt
	Year        int
	MakeMatch   bool
	ModelMatch  bool
	SeriesMatch bool
	EngineMatch bool
	Kind        model.ListingKind
	IsListing   bool
	Confidence  model.Confidence
	Price       int
	// GateReasons holds every compatibility reason; HardReject is set when
	// any of them is hard.
	GateReasons []string
	HardReject  bool
}

// Result is the score, the decision and the gap economics behind it.
type Result struct {
	Score      float64
	Decision   model.Decision
	GapDollars int
	GapPct     float64
	GapKnown   bool
	Tags       []string
}

// Evaluate scores in and maps the score to a decision.
func Evaluate(in Input) Result {
	var (
		r   Result
		pct float64
	)
	s := Base
	h := in.Hunt

	switch {
	case in.Year == 0:
	case in.Year >= h.YearMin && in.Year <= h.YearMax:
		s += ExactYear
	case in.Year == h.YearMin-1 || in.Year == h.YearMax+1:
		s += AdjacentYear
	}
	if in.MakeMatch {
		s += MakeMatch
	}
	if in.ModelMatch {
		s += ModelMatch
	}
	if in.SeriesMatch {
		s += SeriesMatch
	}
	if in.EngineMatch {
		s += EngineMatch
	}
	if in.Kind == model.KindAuction {
		s += Auction
	}
	if in.IsListing {
		s += Listing
	}
	if in.Confidence == model.ConfidenceHigh {
		s += HighConf
	}

	if in.Price > 0 && h.ProvenExitValue > 0 {
		r.GapKnown = true
		r.GapDollars = h.ProvenExitValue - in.Price
		pct = float64(r.GapDollars) / float64(h.ProvenExitValue) * 100
		r.GapPct = math.Round(pct*100) / 100
		switch {
		case pct >= 10:
			s += GapLarge
		case pct >= 5:
			s += GapMedium
		case pct >= 0:
			s += GapSmall
		default:
			s += Overpriced
			r.Tags = append(r.Tags, TagOverpriced)
		}
	}

	r.Score = math.Max(0, math.Min(MaxScore, s))
	r.Decision = decide(in, r, pct)
	return r
}

// decide maps a score to a decision. pct is the unrounded gap percentage.
func decide(in Input, r Result, pct float64) model.Decision {
	if !in.IsListing || in.HardReject {
		return model.DecisionIgnore
	}
	if r.Score >= BuyScore && clearsEconomics(in, r, pct) &&
		in.Confidence != model.ConfidenceLow && len(in.GateReasons) == 0 {
		return model.DecisionBuy
	}
	if r.Score >= WatchScore {
		return model.DecisionWatch
	}
	return model.DecisionIgnore
}

// clearsEconomics requires a known gap that meets both hunt minimums.
func clearsEconomics(in Input, r Result, pct float64) bool {
	return r.GapKnown &&
		r.GapDollars >= in.Hunt.MinGapAbsBuy &&
		pct >= in.Hunt.MinGapPctBuy
}
