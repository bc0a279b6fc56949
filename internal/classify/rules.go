package classify

import (
	"net/url"
	"regexp"
	"strings"

	"dealer_hunt/internal/model"
	"dealer_hunt/internal/source"
)

// Page is the input to the rule set.
type Page struct {
	URL    *url.URL
	Domain string
	Path   string // lower-cased
	Title  string // lower-cased, space padded
	Source *source.Source
}

// Rule is one named classification step.
type Rule struct {
	Name    string
	Match   func(p Page) bool
	Verdict model.PageType
	Reason  string
}

var blockedDomains = []string{
	"youtube.com", "youtu.be", "facebook.com", "instagram.com", "tiktok.com",
	"twitter.com", "x.com", "reddit.com", "pinterest.com", "wikipedia.org",
	"whichcar.com.au", "carexpert.com.au", "redbook.com.au", "caradvice.com.au",
	"4x4australia.com.au", "practicalmotoring.com.au",
	"arb.com.au", "ironman4x4.com", "4wdsupacentre.com.au", "tjm.com.au",
	"ebay.com.au",
}

var loginSegments = []string{
	"login", "log-in", "signin", "sign-in", "signup", "sign-up", "register",
	"account", "my-account", "auth", "oauth", "password",
}

var editorialTokens = []string{
	"news", "blog", "blogs", "guide", "guides", "review", "reviews", "compare",
	"comparison", "advice", "article", "articles", "editorial", "terms",
	"privacy", "legal", "about", "help", "contact", "faq", "faqs", "careers",
}

var editorialPhrases = []string{
	"review:", " review ", "vs.", " vs ", "versus", "buying guide", "comparison",
	"road test", "first drive", "price and specs", "pricing and specs",
	"how to ", "explained", "top 10", "owner review", "long-term",
}

var searchParams = []string{
	"make", "model", "page", "q", "query", "keyword", "keywords", "sort",
	"search", "sortby", "offset",
}

var (
	genericDetail = regexp.MustCompile(`(?i)/(?:lot|lots|details|detail|car|cars|listing|listings|vehicle|vehicles|item|items|stock|s-ad|ad)/(?:[^/?#]+/)*[^/?#]*\d{5,}[^/?#]*/?$`)
	searchPath    = regexp.MustCompile(`(?:^|/)(?:search|results|find|browse|s-cars[^/]*)(?:/|$|-)`)
)

// DefaultRules returns the rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "blocked_domain", Match: isBlocked, Verdict: model.PageOther, Reason: "blocked_domain"},
		{Name: "login_path", Match: isLogin, Verdict: model.PageLogin, Reason: "login_page"},
		{Name: "editorial_path", Match: isEditorialPath, Verdict: model.PageArticle, Reason: "editorial_path"},
		{Name: "editorial_title", Match: isEditorialTitle, Verdict: model.PageArticle, Reason: "editorial_title"},
		{Name: "detail_path", Match: isDetail, Verdict: model.PageListing},
		{Name: "search_path", Match: isSearch, Verdict: model.PageSearch, Reason: "search_results"},
		{Name: "category_path", Match: isCategory, Verdict: model.PageCategory, Reason: "category_page"},
	}
}

func isBlocked(p Page) bool {
	for _, d := range blockedDomains {
		if p.Domain == d || strings.HasSuffix(p.Domain, "."+d) {
			return true
		}
	}
	return false
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isLogin(p Page) bool {
	for _, seg := range segments(p.Path) {
		for _, l := range loginSegments {
			if seg == l || strings.HasPrefix(seg, l+".") || strings.HasPrefix(seg, l+"?") {
				return true
			}
		}
	}
	return false
}

// isEditorialPath looks at the first two segments only; listing slugs deeper
// in the path routinely contain words like "guide" or "help".
func isEditorialPath(p Page) bool {
	segs := segments(p.Path)
	if len(segs) > 2 {
		segs = segs[:2]
	}
	for _, seg := range segs {
		for _, tok := range strings.Split(seg, "-") {
			for _, e := range editorialTokens {
				if tok == e {
					return true
				}
			}
		}
	}
	return false
}

func isEditorialTitle(p Page) bool {
	for _, phrase := range editorialPhrases {
		if strings.Contains(p.Title, phrase) {
			return true
		}
	}
	return false
}

func isDetail(p Page) bool {
	if p.Source != nil && len(p.Source.DetailPatterns) > 0 {
		_, ok := p.Source.MatchDetail(p.URL)
		return ok
	}
	return genericDetail.MatchString(p.URL.EscapedPath())
}

func isSearch(p Page) bool {
	if searchPath.MatchString(p.Path) {
		return true
	}
	if p.Source != nil && p.Source.IsResultsPage(p.URL) {
		return true
	}
	q := p.URL.Query()
	for _, k := range searchParams {
		if q.Has(k) {
			return true
		}
	}
	return false
}

func isCategory(p Page) bool {
	return p.Source != nil
}
