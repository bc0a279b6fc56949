// Package classify decides what kind of page a search result points at.
//
// URL shape is the primary signal; titles are a secondary check. Rules are
// evaluated in a fixed order and the first match wins, so every verdict can
// be traced back to a single named rule.
package classify

import (
	"net/url"
	"strings"

	"dealer_hunt/internal/model"
	"dealer_hunt/internal/source"
)

// Result is the classifier verdict for a single URL.
type Result struct {
	PageType    model.PageType
	IsListing   bool
	ListingKind model.ListingKind
	Rule        string
	Reason      string // empty for listings
	Domain      string
	Source      *source.Source
	NativeID    string
}

// Classifier applies an ordered rule set to URLs.
type Classifier struct {
	catalog *source.Catalog
	rules   []Rule
}

// New creates a classifier with the default rule set.
func New(catalog *source.Catalog) *Classifier {
	return &Classifier{catalog: catalog, rules: DefaultRules()}
}

// Classify evaluates rawURL and title against the rules.
func (c *Classifier) Classify(rawURL, title string) Result {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Result{PageType: model.PageOther, ListingKind: model.KindUnknown, Rule: "invalid_url", Reason: "invalid_url"}
	}

	domain := source.NormalizeDomain(rawURL)
	p := Page{
		URL:    u,
		Domain: domain,
		Path:   strings.ToLower(u.EscapedPath()),
		Title:  " " + strings.ToLower(strings.Join(strings.Fields(title), " ")) + " ",
		Source: c.catalog.Lookup(domain),
	}

	res := Result{Domain: domain, Source: p.Source, ListingKind: model.KindUnknown}
	for _, r := range c.rules {
		if !r.Match(p) {
			continue
		}
		res.PageType = r.Verdict
		res.Rule = r.Name
		res.Reason = r.Reason
		if r.Verdict == model.PageListing {
			res.IsListing = true
			res.ListingKind = p.Source.ListingKind()
			if p.Source != nil {
				res.NativeID, _ = p.Source.MatchDetail(u)
			}
		}
		return res
	}

	res.PageType = model.PageOther
	res.Rule = "fallback"
	res.Reason = "no_listing_shape"
	return res
}

// IsResultsPage reports whether rawURL is a results page of a known source
// that is worth a dedicated card scrape.
func (c *Classifier) IsResultsPage(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	s := c.catalog.Lookup(source.NormalizeDomain(rawURL))
	return s != nil && s.IsResultsPage(u)
}

// SourceTier returns the tier of the domain behind rawURL.
func (c *Classifier) SourceTier(rawURL string) int {
	return c.catalog.Tier(source.NormalizeDomain(rawURL))
}

var (
	auctionSignals = []string{"auction", " lot ", "lot #", "lot no", "bids", "bidding", "reserve", "buyer's premium", "buyers premium"}
	dealerSignals  = []string{"dealer", "stock no", "stock #", "stock number", "drive away", "driveaway", "dealer used"}
	retailSignals  = []string{"for sale", "private seller", "private sale", "asking", "ono", "negotiable"}
)

// ListingIntent decides whether a result looks like an individual offer and
// what kind of offer it is. Known sources answer from the catalog; unknown
// domains fall back to wording in the title and snippet.
func (c *Classifier) ListingIntent(rawURL, title, snippet string) (bool, model.ListingKind) {
	res := c.Classify(rawURL, title)
	if !res.IsListing {
		return false, model.KindUnknown
	}
	if res.Source != nil {
		return true, res.ListingKind
	}

	text := " " + strings.ToLower(title+" "+snippet) + " "
	switch {
	case containsAny(text, auctionSignals):
		return true, model.KindAuction
	case containsAny(text, dealerSignals):
		return true, model.KindDealer
	case containsAny(text, retailSignals):
		return true, model.KindRetail
	}
	return true, model.KindUnknown
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
