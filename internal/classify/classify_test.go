package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dealer_hunt/internal/model"
	"dealer_hunt/internal/source"
)

func TestClassify(t *testing.T) {
	c := New(source.Default())

	type verdict struct {
		PageType    model.PageType
		IsListing   bool
		ListingKind model.ListingKind
		Rule        string
		Reason      string
		NativeID    string
	}

	tests := []struct {
		name  string
		url   string
		title string
		want  verdict
	}{
		{
			name: "blocked video domain with listing shape",
			url:  "https://www.youtube.com/watch?v=lot12345",
			want: verdict{PageType: model.PageOther, ListingKind: model.KindUnknown, Rule: "blocked_domain", Reason: "blocked_domain"},
		},
		{
			name: "accessory subdomain blocked",
			url:  "https://shop.arb.com.au/products/bullbar-lc79/12345678",
			want: verdict{PageType: model.PageOther, ListingKind: model.KindUnknown, Rule: "blocked_domain", Reason: "blocked_domain"},
		},
		{
			name: "login page",
			url:  "https://www.pickles.com.au/login?returnUrl=/used/details/123456",
			want: verdict{PageType: model.PageLogin, ListingKind: model.KindUnknown, Rule: "login_path", Reason: "login_page"},
		},
		{
			name: "news path",
			url:  "https://www.carsales.com.au/editorial/details/toyota-landcruiser-79-review-123456/",
			want: verdict{PageType: model.PageArticle, ListingKind: model.KindUnknown, Rule: "editorial_path", Reason: "editorial_path"},
		},
		{
			name:  "editorial title on a detail url",
			url:   "https://www.gumtree.com.au/s-ad/perth/cars/lc79/1312345678",
			title: "LC79 vs. Hilux: which ute?",
			want:  verdict{PageType: model.PageArticle, ListingKind: model.KindUnknown, Rule: "editorial_title", Reason: "editorial_title"},
		},
		{
			name:  "auction detail",
			url:   "https://www.pickles.com.au/used/details/cars/2022-toyota-landcruiser/61234567",
			title: "2022 Toyota LandCruiser GXL",
			want:  verdict{PageType: model.PageListing, IsListing: true, ListingKind: model.KindAuction, Rule: "detail_path", NativeID: "61234567"},
		},
		{
			name: "retail detail",
			url:  "https://www.carsales.com.au/cars/details/2022-toyota-landcruiser/OAG-AD-21234567/",
			want: verdict{PageType: model.PageListing, IsListing: true, ListingKind: model.KindRetail, Rule: "detail_path", NativeID: "OAG-AD-21234567"},
		},
		{
			name: "unknown domain generic detail shape",
			url:  "https://www.examplemotors.com.au/vehicle/2021-landcruiser/987654",
			want: verdict{PageType: model.PageListing, IsListing: true, ListingKind: model.KindUnknown, Rule: "detail_path"},
		},
		{
			name: "search page of known source",
			url:  "https://www.pickles.com.au/used/search/lob/cars?make=toyota",
			want: verdict{PageType: model.PageSearch, ListingKind: model.KindUnknown, Rule: "search_path", Reason: "search_results"},
		},
		{
			name: "query params without detail shape",
			url:  "https://www.examplemotors.com.au/stock?make=toyota&page=2",
			want: verdict{PageType: model.PageSearch, ListingKind: model.KindUnknown, Rule: "search_path", Reason: "search_results"},
		},
		{
			name: "bare category of known source",
			url:  "https://www.carsales.com.au/cars/toyota/landcruiser/",
			want: verdict{PageType: model.PageCategory, ListingKind: model.KindUnknown, Rule: "category_path", Reason: "category_page"},
		},
		{
			name: "year in slug is not an id",
			url:  "https://www.examplemotors.com.au/cars/toyota-landcruiser-2022",
			want: verdict{PageType: model.PageOther, ListingKind: model.KindUnknown, Rule: "fallback", Reason: "no_listing_shape"},
		},
		{
			name: "not a url",
			url:  "::",
			want: verdict{PageType: model.PageOther, ListingKind: model.KindUnknown, Rule: "invalid_url", Reason: "invalid_url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(tt.url, tt.title)
			got := verdict{
				PageType:    res.PageType,
				IsListing:   res.IsListing,
				ListingKind: res.ListingKind,
				Rule:        res.Rule,
				Reason:      res.Reason,
				NativeID:    res.NativeID,
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRuleOrder(t *testing.T) {
	var names []string
	for _, r := range DefaultRules() {
		names = append(names, r.Name)
	}
	want := []string{
		"blocked_domain", "login_path", "editorial_path", "editorial_title",
		"detail_path", "search_path", "category_path",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("rule order mismatch (-want +got):\n%s", diff)
	}
}

func TestListingIntent(t *testing.T) {
	c := New(source.Default())

	tests := []struct {
		name     string
		url      string
		title    string
		snippet  string
		wantList bool
		wantKind model.ListingKind
	}{
		{
			name:     "catalog source decides kind",
			url:      "https://www.grays.com/lot/0012-3456789/motor-vehicles",
			title:    "2016 Toyota LandCruiser",
			wantList: true,
			wantKind: model.KindAuction,
		},
		{
			name:     "unknown domain auction wording",
			url:      "https://www.regionalauctions.com.au/lot/5551234",
			title:    "2019 Toyota LandCruiser 79",
			snippet:  "Bidding closes Friday, no reserve",
			wantList: true,
			wantKind: model.KindAuction,
		},
		{
			name:     "unknown domain dealer wording",
			url:      "https://www.examplemotors.com.au/vehicle/7654321",
			title:    "2021 Toyota LandCruiser GXL",
			snippet:  "Stock No 7654321, drive away price",
			wantList: true,
			wantKind: model.KindDealer,
		},
		{
			name:     "article is not a listing",
			url:      "https://www.drive.com.au/news/new-landcruiser-70-123456/",
			title:    "New LandCruiser 70 revealed",
			wantList: false,
			wantKind: model.KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isListing, kind := c.ListingIntent(tt.url, tt.title, tt.snippet)
			if isListing != tt.wantList {
				t.Errorf("isListing = %v, want %v", isListing, tt.wantList)
			}
			if diff := cmp.Diff(tt.wantKind, kind); diff != "" {
				t.Errorf("kind mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSourceTierAndResultsPage(t *testing.T) {
	c := New(source.Default())
	if got := c.SourceTier("https://www.manheim.com.au/passenger-vehicles/1234567"); got != source.TierPriority {
		t.Errorf("SourceTier(manheim) = %d", got)
	}
	if got := c.SourceTier("https://unknown.example/x"); got != source.TierFallback {
		t.Errorf("SourceTier(unknown) = %d", got)
	}
	if !c.IsResultsPage("https://www.pickles.com.au/used/search/lob/cars") {
		t.Error("expected pickles search to be a results page")
	}
	if c.IsResultsPage("https://www.pickles.com.au/used/details/cars/x/61234567") {
		t.Error("detail page must not be a results page")
	}
}
