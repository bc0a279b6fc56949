package source

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dealer_hunt/internal/model"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "https://www.Pickles.com.au/used/details/123456", want: "pickles.com.au"},
		{raw: "https://m.gumtree.com.au/s-ad/x/12345678", want: "gumtree.com.au"},
		{raw: "http://carsales.com.au:8080/cars", want: "carsales.com.au"},
		{raw: "not a url", want: ""},
		{raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NormalizeDomain(tt.raw)); diff != "" {
				t.Errorf("NormalizeDomain() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookupAndTier(t *testing.T) {
	c := Default()

	tests := []struct {
		domain   string
		wantName string
		wantTier int
	}{
		{domain: "pickles.com.au", wantName: "pickles", wantTier: TierPriority},
		{domain: "auctions.grays.com", wantName: "grays", wantTier: TierPriority},
		{domain: "carsales.com.au", wantName: "carsales", wantTier: TierFallback},
		{domain: "example.org", wantName: "", wantTier: TierFallback},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			name := ""
			if s := c.Lookup(tt.domain); s != nil {
				name = s.Name
			}
			if diff := cmp.Diff(tt.wantName, name); diff != "" {
				t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantTier, c.Tier(tt.domain)); diff != "" {
				t.Errorf("Tier() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchDetail(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		raw     string
		wantID  string
		wantHit bool
		results bool
	}{
		{
			name:    "pickles detail",
			raw:     "https://www.pickles.com.au/used/details/cars/2022-toyota-landcruiser/61234567",
			wantID:  "61234567",
			wantHit: true,
		},
		{
			name:    "pickles search page",
			raw:     "https://www.pickles.com.au/used/search/lob/cars?make=toyota",
			results: true,
		},
		{
			name:    "grays lot",
			raw:     "https://www.grays.com/lot/0012-3456789/motor-vehicles",
			wantID:  "0012-3456789",
			wantHit: true,
		},
		{
			name:    "carsales detail",
			raw:     "https://www.carsales.com.au/cars/details/2022-toyota-landcruiser/OAG-AD-21234567/",
			wantID:  "OAG-AD-21234567",
			wantHit: true,
		},
		{
			name: "carsales category",
			raw:  "https://www.carsales.com.au/cars/toyota/landcruiser/",
		},
		{
			name:    "gumtree ad",
			raw:     "https://www.gumtree.com.au/s-ad/perth/cars-vans-utes/lc79-gxl/1312345678",
			wantID:  "1312345678",
			wantHit: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mustParse(t, tt.raw)
			s := c.Lookup(NormalizeDomain(tt.raw))
			if s == nil {
				t.Fatalf("no source for %s", tt.raw)
			}
			id, ok := s.MatchDetail(u)
			if ok != tt.wantHit {
				t.Fatalf("MatchDetail() hit = %v, want %v", ok, tt.wantHit)
			}
			if diff := cmp.Diff(tt.wantID, id); diff != "" {
				t.Errorf("MatchDetail() id mismatch (-want +got):\n%s", diff)
			}
			if got := s.IsResultsPage(u); got != tt.results {
				t.Errorf("IsResultsPage() = %v, want %v", got, tt.results)
			}
		})
	}
}

func TestListingKind(t *testing.T) {
	c := Default()
	got := []model.ListingKind{
		c.Lookup("pickles.com.au").ListingKind(),
		c.Lookup("carsales.com.au").ListingKind(),
		c.Lookup("drive.com.au").ListingKind(),
		c.Lookup("example.org").ListingKind(),
	}
	want := []model.ListingKind{model.KindAuction, model.KindRetail, model.KindDealer, model.KindUnknown}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListingKind() mismatch (-want +got):\n%s", diff)
	}
}

func TestByTier(t *testing.T) {
	c := Default()
	var names []string
	for _, s := range c.ByTier(TierPriority) {
		names = append(names, s.Name)
	}
	want := []string{"pickles", "manheim", "grays", "lloyds"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("ByTier() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{name: "missing name", src: Source{Domains: []string{"a.com"}, Tier: 1, Kind: KindAuction}},
		{name: "bad tier", src: Source{Name: "x", Domains: []string{"a.com"}, Tier: 3, Kind: KindAuction}},
		{name: "bad kind", src: Source{Name: "x", Domains: []string{"a.com"}, Tier: 1, Kind: "forum"}},
		{name: "bad regex", src: Source{Name: "x", Domains: []string{"a.com"}, Tier: 1, Kind: KindRetail, DetailPatterns: []string{"(["}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog([]Source{tt.src}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	body := `sources:
  - name: example
    domains: [example.com.au]
    tier: 1
    kind: auction
    detailPatterns: ['^/lot/(\d+)']
    feeds: ['https://example.com.au/feed.xml']
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := c.Lookup("example.com.au")
	if s == nil {
		t.Fatal("expected example source")
	}
	id, ok := s.MatchDetail(mustParse(t, "https://example.com.au/lot/991"))
	if !ok || id != "991" {
		t.Errorf("MatchDetail() = %q, %v", id, ok)
	}
	if diff := cmp.Diff([]string{"https://example.com.au/feed.xml"}, s.Feeds); diff != "" {
		t.Errorf("Feeds mismatch (-want +got):\n%s", diff)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("sources: []\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(empty); err == nil {
		t.Error("expected error for empty catalog")
	}
}
