package extract

import "testing"

func TestMatchModel(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		model string
		want  bool
	}{
		{name: "split words", text: "2019 Toyota Land Cruiser 79 Series", model: "LandCruiser", want: true},
		{name: "url slug", text: "toyota-landcruiser-gxl", model: "LandCruiser", want: true},
		{name: "child model blocks parent", text: "2019 Toyota LandCruiser Prado GXL", model: "LandCruiser", want: false},
		{name: "child model targeted", text: "2019 Toyota LandCruiser Prado GXL", model: "LandCruiser Prado", want: true},
		{name: "parent elsewhere in text", text: "Prado traded, LandCruiser 200 wanted", model: "LandCruiser", want: true},
		{name: "colorado 7", text: "Holden Colorado 7 LTZ", model: "Colorado", want: false},
		{name: "colorado", text: "Holden Colorado LTZ", model: "Colorado", want: true},
		{name: "range rover sport", text: "Range Rover Sport HSE", model: "Range Rover", want: false},
		{name: "range rover vogue", text: "Range Rover Vogue", model: "Range Rover", want: true},
		{name: "pajero sport", text: "Mitsubishi Pajero Sport GLS", model: "Pajero", want: false},
		{name: "no partial token", text: "LandCruisers wanted", model: "LandCruiser", want: false},
		{name: "empty model", text: "anything", model: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchModel(tt.text, tt.model); got != tt.want {
				t.Errorf("MatchModel(%q, %q) = %v, want %v", tt.text, tt.model, got, tt.want)
			}
		})
	}
}

func TestMatchMake(t *testing.T) {
	if !MatchMake("2019 TOYOTA LandCruiser", "Toyota") {
		t.Error("expected make match")
	}
	if !MatchMake("land-rover-defender-110", "Land Rover") {
		t.Error("expected make match across hyphen")
	}
	if MatchMake("Nissan Patrol", "Toyota") {
		t.Error("unexpected make match")
	}
}

func TestVariant(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "2022 Toyota LandCruiser 79 Series GXL Double Cab", want: "79 SERIES GXL"},
		{title: "Toyota LandCruiser 2021", want: ""},
		{title: "Nissan Patrol Ti", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := Variant(tt.title, "LandCruiser"); got != tt.want {
				t.Errorf("Variant() = %q, want %q", got, tt.want)
			}
		})
	}
}
