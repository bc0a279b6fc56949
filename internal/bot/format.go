package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dealer_hunt/internal/hunt"
	"dealer_hunt/internal/model"
)

const (
	statusActive = "active"
	statusPaused = "paused"
)

// FormatAlert formats a BUY or WATCH alert.
func FormatAlert(h *model.Hunt, c model.Candidate, a model.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n\n", a.Decision, h.Name)
	b.WriteString(c.Title)
	b.WriteString("\n")
	if facts := candidateFacts(c); facts != "" {
		b.WriteString(facts)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Gap: %s (%.1f%%), score %.1f\n", money(c.GapDollars), c.GapPct, c.Score)
	if len(c.Reasons) > 0 {
		fmt.Fprintf(&b, "Notes: %s\n", strings.Join(c.Reasons, ", "))
	}
	if c.SourceURL != "" {
		b.WriteString("\n")
		b.WriteString(c.SourceURL)
	}
	return b.String()
}

// FormatHuntList formats the active hunts for display.
func FormatHuntList(hunts []model.Hunt) string {
	if len(hunts) == 0 {
		return "There are no active hunts."
	}
	var b strings.Builder
	b.WriteString("Active hunts:\n")
	for _, h := range hunts {
		fmt.Fprintf(&b, "\n#%d %s\n", h.ID, h.Name)
		fmt.Fprintf(&b, "   %s %s %s\n", yearRange(&h), h.Make, h.Model)
	}
	return b.String()
}

// FormatHuntInfo formats the criteria of a single hunt.
func FormatHuntInfo(h *model.Hunt) string {
	var b strings.Builder
	status := statusActive
	if !h.IsActive {
		status = statusPaused
	}
	fmt.Fprintf(&b, "#%d %s [%s]\n", h.ID, h.Name, status)
	fmt.Fprintf(&b, "Vehicle: %s %s %s\n", yearRange(h), h.Make, h.Model)

	var spec []string
	for _, s := range []string{h.Series, h.EngineFamily, h.CabType, h.BodyType} {
		if s != "" {
			spec = append(spec, s)
		}
	}
	if len(spec) > 0 {
		fmt.Fprintf(&b, "Spec: %s\n", strings.Join(spec, ", "))
	}
	if len(h.MustHave) > 0 {
		fmt.Fprintf(&b, "Must have: %s\n", strings.Join(h.MustHave, ", "))
	}
	if h.ProvenExitValue > 0 {
		fmt.Fprintf(&b, "Exit value: %s\n", money(h.ProvenExitValue))
	}
	fmt.Fprintf(&b, "Buy gap: %s or %.1f%%\n", money(h.MinGapAbsBuy), h.MinGapPctBuy)
	fmt.Fprintf(&b, "Criteria version: %d\n", h.CriteriaVersion)
	b.WriteString("\n")
	b.WriteString(FormatRuleList(h))
	return b.String()
}

// FormatRuleList formats the keyword rules of a hunt, numbered for /rmrule.
func FormatRuleList(h *model.Hunt) string {
	if len(h.Exclude) == 0 {
		return fmt.Sprintf("No rules for #%d \"%s\".\nUse /include, /exclude, /include_re, /exclude_re to add rules.", h.ID, h.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Rules for #%d \"%s\":\n", h.ID, h.Name)
	for i, r := range h.Exclude {
		fmt.Fprintf(&b, "  R%d: %s %s (%s)\n", i+1, r.Kind, r.Value, scopeLabel(r.Scope))
	}
	return b.String()
}

// FormatCandidateList formats stored candidates of a hunt.
func FormatCandidateList(h *model.Hunt, cands []model.Candidate) string {
	if len(cands) == 0 {
		return fmt.Sprintf("No candidates for #%d \"%s\" yet.", h.ID, h.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Candidates for #%d \"%s\":\n", h.ID, h.Name)
	for _, c := range cands {
		fmt.Fprintf(&b, "\n[%s] %.1f %s\n", c.Decision, c.Score, c.Title)
		if facts := candidateFacts(c); facts != "" {
			fmt.Fprintf(&b, "   %s\n", facts)
		}
		if c.RejectReason != "" {
			fmt.Fprintf(&b, "   rejected: %s\n", c.RejectReason)
		}
		fmt.Fprintf(&b, "   %s\n", c.SourceURL)
	}
	return b.String()
}

// FormatAlertList formats the alert history of a hunt.
func FormatAlertList(h *model.Hunt, alerts []model.Alert) string {
	if len(alerts) == 0 {
		return fmt.Sprintf("No alerts for #%d \"%s\" yet.", h.ID, h.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Alerts for #%d \"%s\":\n", h.ID, h.Name)
	for _, a := range alerts {
		fmt.Fprintf(&b, "  %s %s candidate %d\n", a.CreatedAt.Format("2006-01-02 15:04 UTC"), a.Decision, a.CandidateID)
	}
	return b.String()
}

// FormatSummary formats the result of a run.
func FormatSummary(s *hunt.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s of #%d: %s\n", s.RunID, s.HuntID, s.Status)
	fmt.Fprintf(&b, "Queries: %d, results: %d, listings: %d, articles: %d\n",
		s.QueriesRun, s.ResultsSeen, s.Listings, s.Articles)
	fmt.Fprintf(&b, "Candidates: %d new, %d updated, %d rejected\n",
		s.CandidatesCreated, s.CandidatesUpdated, s.CandidatesRejected)
	fmt.Fprintf(&b, "Alerts: %d\n", s.AlertsEmitted)
	if s.Tier2Used {
		b.WriteString("Fallback sources searched.\n")
	}
	if len(s.RejectReasons) > 0 {
		reasons := make([]string, 0, len(s.RejectReasons))
		for r := range s.RejectReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		b.WriteString("Rejections:")
		for _, r := range reasons {
			fmt.Fprintf(&b, " %s=%d", r, s.RejectReasons[r])
		}
		b.WriteString("\n")
	}
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, "Errors: %d (first: %s)\n", len(s.Errors), s.Errors[0])
	}
	return b.String()
}

func candidateFacts(c model.Candidate) string {
	var facts []string
	if c.AskingPrice > 0 {
		facts = append(facts, money(c.AskingPrice))
	}
	if c.Odometer > 0 {
		facts = append(facts, thousands(c.Odometer)+" km")
	}
	if c.State != "" {
		facts = append(facts, c.State)
	}
	if c.SourceName != "" {
		facts = append(facts, c.SourceName)
	}
	return strings.Join(facts, ", ")
}

func yearRange(h *model.Hunt) string {
	if h.YearMin == h.YearMax {
		return strconv.Itoa(h.YearMin)
	}
	return fmt.Sprintf("%d-%d", h.YearMin, h.YearMax)
}

func money(n int) string {
	if n < 0 {
		return "-$" + thousands(-n)
	}
	return "$" + thousands(n)
}

// thousands renders n with comma separators: 78000 -> "78,000".
func thousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func scopeLabel(s model.RuleScope) string {
	switch s {
	case model.ScopeTitle:
		return "title only"
	case model.ScopeContent:
		return "content only"
	default:
		return "title+content"
	}
}
