package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"dealer_hunt/internal/model"
)

var ignoreText = cmpopts.IgnoreFields(Draft{}, "Text")

var lc = Target{Make: "Toyota", Model: "LandCruiser", YearMin: 2020, YearMax: 2022}

func TestListing(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		title string
		text  string
		want  Draft
	}{
		{
			name:  "complete detail page",
			url:   "https://www.pickles.com.au/used/details/cars/2022-toyota-landcruiser/61234567",
			title: "2022 Toyota LandCruiser GXL",
			text:  "Asking $78,000. 45,000 km. Located Brisbane QLD.",
			want: Draft{
				URL:        "https://www.pickles.com.au/used/details/cars/2022-toyota-landcruiser/61234567",
				Title:      "2022 Toyota LandCruiser GXL",
				Year:       2022,
				Make:       "Toyota",
				Model:      "LandCruiser",
				Variant:    "GXL",
				Odometer:   45000,
				Price:      78000,
				State:      "QLD",
				MakeMatch:  true,
				ModelMatch: true,
				Confidence: model.ConfidenceHigh,
				Boundary:   BoundaryPage,
			},
		},
		{
			name:  "snippet without make",
			url:   "https://www.examplemotors.com.au/vehicle/987654",
			title: "2020 LandCruiser wagon",
			text:  "Now $60,000",
			want: Draft{
				URL:        "https://www.examplemotors.com.au/vehicle/987654",
				Title:      "2020 LandCruiser wagon",
				Year:       2020,
				Model:      "LandCruiser",
				Variant:    "WAGON",
				Price:      60000,
				ModelMatch: true,
				Confidence: model.ConfidenceMedium,
				Boundary:   BoundaryPage,
			},
		},
		{
			name:  "nothing parseable",
			url:   "https://www.examplemotors.com.au/vehicle/987655",
			title: "Toyota",
			text:  "Call for price",
			want: Draft{
				URL:        "https://www.examplemotors.com.au/vehicle/987655",
				Title:      "Toyota",
				Make:       "Toyota",
				MakeMatch:  true,
				Confidence: model.ConfidenceLow,
				Boundary:   BoundaryPage,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Listing(tt.url, tt.title, tt.text, lc)
			if diff := cmp.Diff(tt.want, got, ignoreText); diff != "" {
				t.Errorf("Listing() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReject(t *testing.T) {
	target := Target{Make: "Toyota", Model: "LandCruiser", YearMin: 2022, YearMax: 2022}

	tests := []struct {
		name string
		year int
		kind model.ListingKind
		want string
	}{
		{name: "retail max+1 accepted", year: 2023, kind: model.KindRetail, want: ""},
		{name: "retail max+2 rejected", year: 2024, kind: model.KindRetail, want: "year_out_of_range"},
		{name: "retail min-1 accepted", year: 2021, kind: model.KindRetail, want: ""},
		{name: "dealer min-2 rejected", year: 2020, kind: model.KindDealer, want: "year_out_of_range"},
		{name: "auction max+3 accepted", year: 2025, kind: model.KindAuction, want: ""},
		{name: "auction max+4 rejected", year: 2026, kind: model.KindAuction, want: "year_out_of_range"},
		{name: "unknown kind uses narrow window", year: 2024, kind: model.KindUnknown, want: "year_out_of_range"},
		{name: "unknown year is not rejected", year: 0, kind: model.KindRetail, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Draft{Year: tt.year, ModelMatch: true}
			if diff := cmp.Diff(tt.want, Reject(d, target, tt.kind)); diff != "" {
				t.Errorf("Reject() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := Reject(Draft{Year: 2022}, target, model.KindRetail); got != "model_mismatch" {
		t.Errorf("Reject() = %q, want model_mismatch", got)
	}
}

func TestFill(t *testing.T) {
	snippet := Draft{Title: "2021 Toyota LandCruiser", Year: 2021, MakeMatch: true, Make: "Toyota", Confidence: model.ConfidenceLow}
	page := Draft{Year: 2020, Price: 78000, Odometer: 82000, State: "QLD", ModelMatch: true, Model: "LandCruiser"}

	got := Fill(snippet, page)
	want := Draft{
		Title:      "2021 Toyota LandCruiser",
		Year:       2021,
		Make:       "Toyota",
		Model:      "LandCruiser",
		Price:      78000,
		Odometer:   82000,
		State:      "QLD",
		MakeMatch:  true,
		ModelMatch: true,
		Confidence: model.ConfidenceHigh,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fill() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"year", "price", "odometer", "state"}, Fields(got)); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}
}
