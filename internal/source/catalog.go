// Package source describes the listing sources the pipeline knows about:
// their tiers, what kind of offers they carry and what their URLs look like.
package source

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"dealer_hunt/internal/model"
)

// Kind is the commercial type of a source.
type Kind string

// Supported source kinds.
const (
	KindAuction Kind = "auction"
	KindRetail  Kind = "retail"
	KindDealer  Kind = "dealer"
)

// Tiers used by the orchestrator.
const (
	TierPriority = 1
	TierFallback = 2
)

// Source is a single known site.
type Source struct {
	Name            string   `yaml:"name" validate:"required"`
	Domains         []string `yaml:"domains" validate:"required,min=1,dive,required"`
	Tier            int      `yaml:"tier" validate:"oneof=1 2"`
	Kind            Kind     `yaml:"kind" validate:"oneof=auction retail dealer"`
	DetailPatterns  []string `yaml:"detailPatterns"`
	ResultsPatterns []string `yaml:"resultsPatterns"`
	Feeds           []string `yaml:"feeds" validate:"dive,url"`

	detail  []*regexp.Regexp
	results []*regexp.Regexp
}

func (s *Source) compile() error {
	s.detail = s.detail[:0]
	for _, p := range s.DetailPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("source %s: detail pattern %q: %w", s.Name, p, err)
		}
		s.detail = append(s.detail, re)
	}
	s.results = s.results[:0]
	for _, p := range s.ResultsPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("source %s: results pattern %q: %w", s.Name, p, err)
		}
		s.results = append(s.results, re)
	}
	return nil
}

// MatchDetail reports whether u is an individual-record page of this source
// and returns the source-native id captured by the pattern, if any.
func (s *Source) MatchDetail(u *url.URL) (string, bool) {
	target := u.RequestURI()
	for _, re := range s.detail {
		m := re.FindStringSubmatch(target)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return m[1], true
		}
		return "", true
	}
	return "", false
}

// IsResultsPage reports whether u is a results page worth a card scrape.
func (s *Source) IsResultsPage(u *url.URL) bool {
	if _, ok := s.MatchDetail(u); ok {
		return false
	}
	target := u.RequestURI()
	for _, re := range s.results {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

// ListingKind maps the source kind onto the candidate listing kind.
func (s *Source) ListingKind() model.ListingKind {
	if s == nil {
		return model.KindUnknown
	}
	switch s.Kind {
	case KindAuction:
		return model.KindAuction
	case KindRetail:
		return model.KindRetail
	case KindDealer:
		return model.KindDealer
	}
	return model.KindUnknown
}

// Catalog indexes sources by domain.
type Catalog struct {
	sources  []*Source
	byDomain map[string]*Source
}

var validate = validator.New()

// NewCatalog validates and compiles the given sources.
func NewCatalog(sources []Source) (*Catalog, error) {
	c := &Catalog{byDomain: map[string]*Source{}}
	for i := range sources {
		s := sources[i]
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("source %q: %w", s.Name, err)
		}
		if err := s.compile(); err != nil {
			return nil, err
		}
		c.sources = append(c.sources, &s)
		for _, d := range s.Domains {
			c.byDomain[strings.ToLower(strings.TrimPrefix(d, "www."))] = &s
		}
	}
	return c, nil
}

type catalogFile struct {
	Sources []Source `yaml:"sources"`
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s declares no sources", path)
	}
	return NewCatalog(f.Sources)
}

// Lookup returns the source serving domain, walking up subdomains.
func (c *Catalog) Lookup(domain string) *Source {
	if c == nil {
		return nil
	}
	d := strings.ToLower(domain)
	for d != "" {
		if s, ok := c.byDomain[d]; ok {
			return s
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	return nil
}

// Tier returns the tier of domain; unknown domains are fallback sources.
func (c *Catalog) Tier(domain string) int {
	if s := c.Lookup(domain); s != nil {
		return s.Tier
	}
	return TierFallback
}

// ByTier returns the sources of a tier in catalog order.
func (c *Catalog) ByTier(tier int) []*Source {
	var out []*Source
	for _, s := range c.sources {
		if s.Tier == tier {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeDomain returns the lower-cased host of raw without "www." or "m."
// prefixes and without a port. It returns "" for unparseable input.
func NormalizeDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host
}
