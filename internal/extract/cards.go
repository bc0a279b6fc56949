package extract

import (
	"net/url"
	"regexp"
	"strings"

	"dealer_hunt/internal/model"
)

var (
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	bareURLRe  = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)
	headingRe  = regexp.MustCompile(`^(19[5-9]\d|20\d{2})\s+[A-Za-z]`)
	decoration = strings.NewReplacer("**", "", "__", "", "`", "")
)

const maxHeadingLen = 140

// CardOptions configures results-page extraction.
type CardOptions struct {
	Target Target
	// Base resolves relative links.
	Base *url.URL
	// IsDetail reports whether an absolute URL is an individual-record page.
	IsDetail func(rawURL string) bool
}

type link struct {
	label string
	href  string
}

// Cards splits a results-page document into one draft per vehicle card.
//
// A line that starts with a model year followed by a word opens a card. The
// following lines contribute price, odometer, state and detail link until the
// next heading; the first value seen for each field wins. A second pass adds
// detail links not claimed by any card as link-only drafts. Cards without a
// detail link are capped at medium confidence since their boundaries are a
// line-shape heuristic.
func Cards(doc string, opts CardOptions) []Draft {
	var (
		out     []Draft
		cur     *Draft
		claimed = map[string]bool{}
	)

	closeCard := func() {
		if cur == nil {
			return
		}
		fillVehicle(cur, opts.Target)
		cur.Confidence = confidence(*cur)
		if cur.URL == "" && cur.Confidence == model.ConfidenceHigh {
			cur.Confidence = model.ConfidenceMedium
		}
		if cur.URL != "" {
			claimed[cur.URL] = true
		}
		out = append(out, *cur)
		cur = nil
	}

	for _, raw := range strings.Split(doc, "\n") {
		text, links := cleanLine(raw)
		if text == "" && len(links) == 0 {
			continue
		}

		if len(text) <= maxHeadingLen && headingRe.MatchString(text) {
			closeCard()
			cur = &Draft{Title: text, Text: text, Boundary: BoundaryCard, Year: Year(text)}
			if p := Price(text); p > 0 {
				cur.Price = p
			}
			cur.URL = firstDetail(links, opts)
			continue
		}
		if cur == nil {
			continue
		}

		cur.Text += "\n" + text
		if cur.Price == 0 {
			cur.Price = Price(text)
		}
		if cur.Odometer == 0 {
			cur.Odometer = Odometer(text)
			if cur.Odometer == 0 {
				cur.Odometer = bareOdometer(text)
			}
		}
		if cur.State == "" {
			cur.State = State(text)
		}
		if cur.URL == "" {
			cur.URL = firstDetail(links, opts)
		}
	}
	closeCard()

	seen := map[string]bool{}
	for _, l := range allLinks(doc) {
		abs := resolve(l.href, opts.Base)
		if abs == "" || claimed[abs] || seen[abs] || !isDetail(abs, opts) {
			continue
		}
		seen[abs] = true
		title := strings.TrimSpace(decoration.Replace(l.label))
		d := Draft{URL: abs, Title: title, Text: title, Boundary: BoundaryLink, Year: Year(title)}
		fillVehicle(&d, opts.Target)
		d.Confidence = model.ConfidenceLow
		out = append(out, d)
	}
	return out
}

// cleanLine strips markdown decoration, replaces links with their labels and
// returns the links separately.
func cleanLine(raw string) (string, []link) {
	var links []link
	text := mdLinkRe.ReplaceAllStringFunc(raw, func(m string) string {
		sub := mdLinkRe.FindStringSubmatch(m)
		links = append(links, link{label: sub[1], href: sub[2]})
		return sub[1]
	})
	for _, u := range bareURLRe.FindAllString(text, -1) {
		links = append(links, link{href: u})
	}
	text = strings.TrimSpace(text)
	text = strings.TrimLeft(text, "#*->|! \t")
	text = decoration.Replace(text)
	text = strings.TrimSpace(strings.Trim(text, "|"))
	return text, links
}

func allLinks(doc string) []link {
	var out []link
	for _, line := range strings.Split(doc, "\n") {
		_, links := cleanLine(line)
		out = append(out, links...)
	}
	return out
}

func firstDetail(links []link, opts CardOptions) string {
	for _, l := range links {
		abs := resolve(l.href, opts.Base)
		if abs != "" && isDetail(abs, opts) {
			return abs
		}
	}
	return ""
}

func isDetail(abs string, opts CardOptions) bool {
	if opts.IsDetail == nil {
		return false
	}
	return opts.IsDetail(abs)
}

func resolve(href string, base *url.URL) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}
