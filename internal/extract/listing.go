// Package extract turns page text into candidate listing drafts.
package extract

import (
	"strings"

	"dealer_hunt/internal/model"
)

// Boundary records how a draft's fields were delimited within the page.
type Boundary string

// Supported boundaries.
const (
	BoundaryPage Boundary = "page" // whole document is one listing
	BoundaryCard Boundary = "card" // heading-delimited block on a results page
	BoundaryLink Boundary = "link" // bare detail link, no fields
)

// Target is the subset of hunt criteria the extractor needs.
type Target struct {
	Make    string
	Model   string
	YearMin int
	YearMax int
}

// Draft is a candidate listing before identity, gating and scoring.
type Draft struct {
	URL        string
	Title      string
	Text       string
	Year       int
	Make       string
	Model      string
	Variant    string
	Odometer   int
	Price      int
	State      string
	MakeMatch  bool
	ModelMatch bool
	Confidence model.Confidence
	Boundary   Boundary
}

// Listing extracts a single draft from a detail page or search snippet.
func Listing(rawURL, title, text string, t Target) Draft {
	d := Draft{URL: rawURL, Title: strings.TrimSpace(title), Text: text, Boundary: BoundaryPage}
	d.Year = Year(title)
	if d.Year == 0 {
		d.Year = Year(text)
	}
	d.Price = Price(title)
	if d.Price == 0 {
		d.Price = Price(text)
	}
	d.Odometer = Odometer(title + "\n" + text)
	d.State = State(title + "\n" + text)
	fillVehicle(&d, t)
	d.Confidence = confidence(d)
	return d
}

// Fill copies the fields d lacks from other and regrades confidence. It is
// used to fold a scraped detail page into a search-snippet draft.
func Fill(d, other Draft) Draft {
	if d.Title == "" {
		d.Title = other.Title
	}
	if d.Year == 0 {
		d.Year = other.Year
	}
	if d.Price == 0 {
		d.Price = other.Price
	}
	if d.Odometer == 0 {
		d.Odometer = other.Odometer
	}
	if d.State == "" {
		d.State = other.State
	}
	if d.Variant == "" {
		d.Variant = other.Variant
	}
	if !d.MakeMatch && other.MakeMatch {
		d.MakeMatch, d.Make = true, other.Make
	}
	if !d.ModelMatch && other.ModelMatch {
		d.ModelMatch, d.Model = true, other.Model
	}
	d.Confidence = confidence(d)
	return d
}

// Fields lists the extracted fields d carries a value for.
func Fields(d Draft) []string {
	var out []string
	if d.Year > 0 {
		out = append(out, "year")
	}
	if d.Price > 0 {
		out = append(out, "price")
	}
	if d.Odometer > 0 {
		out = append(out, "odometer")
	}
	if d.State != "" {
		out = append(out, "state")
	}
	return out
}

func fillVehicle(d *Draft, t Target) {
	haystack := d.Title + " " + d.Text + " " + strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(d.URL)
	d.MakeMatch = MatchMake(haystack, t.Make)
	d.ModelMatch = MatchModel(haystack, t.Model)
	if d.MakeMatch {
		d.Make = t.Make
	}
	if d.ModelMatch {
		d.Model = t.Model
		d.Variant = Variant(d.Title, t.Model)
	}
}

func confidence(d Draft) model.Confidence {
	switch {
	case d.Year > 0 && d.Price > 0 && (d.Odometer > 0 || d.State != "") && d.MakeMatch && d.ModelMatch:
		return model.ConfidenceHigh
	case d.Year > 0 && (d.Price > 0 || d.Odometer > 0):
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// YearTolerance is the number of years either side of the hunt range that a
// source kind may still match. Auction catalogs are noisier.
func YearTolerance(kind model.ListingKind) int {
	if kind == model.KindAuction {
		return 3
	}
	return 1
}

// Reject reports why a draft falls outside the target, or "" if it does not.
// An unknown year is not a rejection.
func Reject(d Draft, t Target, kind model.ListingKind) string {
	if d.Year > 0 {
		tol := YearTolerance(kind)
		if d.Year < t.YearMin-tol || d.Year > t.YearMax+tol {
			return "year_out_of_range"
		}
	}
	if !d.ModelMatch {
		return "model_mismatch"
	}
	return ""
}
