// Package gate applies compatibility rules between a hunt and a candidate.
//
// Absence of a positive signal is weak evidence and only ever produces a soft
// reason. A confidently detected conflicting signal is strong evidence and
// produces a hard reason, which keeps the candidate out of WATCH and BUY.
package gate

import (
	"regexp"
	"strings"

	"dealer_hunt/internal/filter"
	"dealer_hunt/internal/model"
)

// Reason codes.
const (
	ReasonSeriesMismatch   = "series_mismatch"
	ReasonSeriesUnverified = "series_unverified"
	ReasonSeriesAmbiguous  = "series_ambiguous"
	ReasonEngineMismatch   = "engine_mismatch"
	ReasonCabMismatch      = "cab_mismatch"
	ReasonBodyMismatch     = "body_mismatch"
	ReasonExcludedKeyword  = "excluded_keyword"
	ReasonMissingKeyword   = "missing_keyword"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lower-cases s, turns punctuation into spaces and pads the result
// with a space on each side so that signals match on word boundaries.
func Normalize(s string) string {
	return " " + strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " ")) + " "
}

// Detection is the outcome of matching text against a vocabulary.
type Detection struct {
	Family     string
	Hits       int
	Confidence model.Confidence
	Ambiguous  bool
}

// Confident reports whether the detection is strong enough to contradict a
// requirement.
func (d Detection) Confident() bool {
	return d.Family != "" && (d.Confidence == model.ConfidenceHigh || d.Confidence == model.ConfidenceMedium)
}

// Detect counts distinct signal hits per family in normalized text. Two or
// more hits is high confidence, one is medium. When several families share
// the top count the detection is ambiguous and names no family.
func (v Vocabulary) Detect(norm string) Detection {
	best, bestHits, tied := "", 0, false
	for _, f := range v {
		hits := 0
		for _, sig := range f.Signals {
			if strings.Contains(norm, " "+sig+" ") {
				hits++
			}
		}
		switch {
		case hits == 0:
		case hits > bestHits:
			best, bestHits, tied = f.Name, hits, false
		case hits == bestHits:
			tied = true
		}
	}

	switch {
	case bestHits == 0:
		return Detection{Confidence: model.ConfidenceLow}
	case tied:
		return Detection{Hits: bestHits, Confidence: model.ConfidenceLow, Ambiguous: true}
	case bestHits >= 2:
		return Detection{Family: best, Hits: bestHits, Confidence: model.ConfidenceHigh}
	default:
		return Detection{Family: best, Hits: bestHits, Confidence: model.ConfidenceMedium}
	}
}

// Resolve maps a hunt requirement such as "LC70", "lc-70" or "79 Series" to
// a family name, or "" if it names none.
func (v Vocabulary) Resolve(requirement string) string {
	want := strings.ReplaceAll(strings.TrimSpace(Normalize(requirement)), " ", "")
	if want == "" {
		return ""
	}
	for _, f := range v {
		if strings.ReplaceAll(strings.ToLower(f.Name), "_", "") == want {
			return f.Name
		}
	}
	return v.Detect(Normalize(requirement)).Family
}

// Input is the candidate evidence the gate inspects.
type Input struct {
	Title string
	Text  string
	URL   string
}

// Result is the gate verdict.
type Result struct {
	Reasons     []string
	Hard        bool
	AllowWatch  bool
	Series      Detection
	Engine      Detection
	Cab         Detection
	Body        Detection
	SeriesMatch bool
	EngineMatch bool
	Missing     []string
	Excluded    string
}

// Check evaluates every rule; all reasons are collected, not just the first.
func Check(h *model.Hunt, in Input) Result {
	norm := Normalize(in.Title + " " + in.Text + " " + in.URL)

	var r Result
	r.Series = SeriesVocab.Detect(norm)
	r.Engine = EngineVocab.Detect(norm)
	r.Cab = CabVocab.Detect(norm)
	r.Body = BodyVocab.Detect(norm)

	if h.Series != "" {
		want := SeriesVocab.Resolve(h.Series)
		switch {
		case r.Series.Ambiguous:
			r.soft(ReasonSeriesAmbiguous)
		case r.Series.Family == "":
			r.soft(ReasonSeriesUnverified)
		case r.Series.Family == want:
			r.SeriesMatch = true
		case r.Series.Confident():
			r.hard(ReasonSeriesMismatch)
		}
	}

	if h.EngineFamily != "" {
		want := EngineVocab.Resolve(h.EngineFamily)
		switch {
		case r.Engine.Family == want && want != "":
			r.EngineMatch = true
		case r.Engine.Confident():
			r.hard(ReasonEngineMismatch)
		}
	}

	if h.CabType != "" && r.Cab.Confident() && r.Cab.Family != h.CabType {
		r.hard(ReasonCabMismatch)
	}
	if h.BodyType != "" && r.Body.Confident() && r.Body.Family != h.BodyType {
		r.hard(ReasonBodyMismatch)
	}

	item := filter.Item{Title: in.Title, Content: in.Text + " " + in.URL}
	rules := filter.Apply(item, h.Exclude)
	if rules.Excluded != nil {
		r.Excluded = rules.Excluded.Value
		r.hard(ReasonExcludedKeyword)
	}
	if h.StrictKeywords {
		r.Missing = filter.MissingTokens(item, h.MustHave)
	}
	// Include rules are added explicitly per hunt and apply in lenient mode too.
	for _, rule := range rules.Unmatched {
		r.Missing = append(r.Missing, rule.Value)
	}
	if len(r.Missing) > 0 {
		r.soft(ReasonMissingKeyword)
	}

	r.AllowWatch = !r.Hard
	return r
}

func (r *Result) soft(reason string) {
	r.Reasons = append(r.Reasons, reason)
}

func (r *Result) hard(reason string) {
	r.Reasons = append(r.Reasons, reason)
	r.Hard = true
}
