package hunt

import (
	"fmt"
	"strings"

	"dealer_hunt/internal/model"
	"dealer_hunt/internal/source"
)

// QueryKind says how a query was derived.
type QueryKind string

// Supported query kinds.
const (
	QueryBroad  QueryKind = "broad"
	QueryNarrow QueryKind = "narrow"
	QueryFeed   QueryKind = "feed"
	QueryCaller QueryKind = "caller"
)

// Query is one provider call planned for a run.
type Query struct {
	Text   string
	Tier   int
	Kind   QueryKind
	Source string
}

// BuildQueries returns the tier-1 and tier-2 plans for h.
//
// Tier 1 opens with a broad make+model query per priority source, then the
// narrowed queries for the same sources, then their saved-search feeds and
// finally the hunt's own queries. Tier 2 holds one narrowed query per
// fallback source.
func BuildQueries(h *model.Hunt, catalog *source.Catalog) (tier1, tier2 []Query) {
	base := strings.TrimSpace(h.Make + " " + h.Model)
	narrow := narrowTerms(h)
	priority := catalog.ByTier(source.TierPriority)

	for _, s := range priority {
		tier1 = append(tier1, Query{
			Text:   siteQuery(s, base),
			Tier:   source.TierPriority,
			Kind:   QueryBroad,
			Source: s.Name,
		})
	}
	if narrow != "" {
		for _, s := range priority {
			tier1 = append(tier1, Query{
				Text:   siteQuery(s, base+" "+narrow),
				Tier:   source.TierPriority,
				Kind:   QueryNarrow,
				Source: s.Name,
			})
		}
	}
	for _, s := range priority {
		for _, f := range s.Feeds {
			tier1 = append(tier1, Query{Text: f, Tier: source.TierPriority, Kind: QueryFeed, Source: s.Name})
		}
	}
	for _, q := range h.Queries {
		if q = strings.TrimSpace(q); q != "" {
			tier1 = append(tier1, Query{Text: q, Tier: source.TierPriority, Kind: QueryCaller})
		}
	}

	for _, s := range catalog.ByTier(source.TierFallback) {
		tier2 = append(tier2, Query{
			Text:   strings.TrimSpace(siteQuery(s, base+" "+narrow)),
			Tier:   source.TierFallback,
			Kind:   QueryNarrow,
			Source: s.Name,
		})
	}
	return tier1, tier2
}

func siteQuery(s *source.Source, terms string) string {
	return fmt.Sprintf("site:%s %s", s.Domains[0], terms)
}

// narrowTerms renders the optional hunt constraints as search words.
func narrowTerms(h *model.Hunt) string {
	var parts []string
	if h.Series != "" {
		parts = append(parts, h.Series)
	}
	if h.EngineFamily != "" {
		parts = append(parts, h.EngineFamily)
	}
	if h.CabType != "" {
		parts = append(parts, h.CabType+" cab")
	}
	if h.BodyType != "" {
		parts = append(parts, strings.ReplaceAll(h.BodyType, "_", " "))
	}
	switch {
	case h.YearMin > 0 && h.YearMin == h.YearMax:
		parts = append(parts, fmt.Sprint(h.YearMin))
	case h.YearMin > 0 && h.YearMax > h.YearMin:
		parts = append(parts, fmt.Sprintf("%d-%d", h.YearMin, h.YearMax))
	}
	return strings.Join(parts, " ")
}
