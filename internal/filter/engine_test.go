package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dealer_hunt/internal/model"
)

func TestApply(t *testing.T) {
	gxl := model.KeywordRule{Kind: model.RuleInclude, Scope: model.ScopeAll, Value: "gxl"}
	workmate := model.KeywordRule{Kind: model.RuleIncludeRe, Scope: model.ScopeTitle, Value: `work\s*mate`}
	hail := model.KeywordRule{Kind: model.RuleExclude, Scope: model.ScopeAll, Value: "hail"}
	wrecking := model.KeywordRule{Kind: model.RuleExcludeRe, Scope: model.ScopeAll, Value: `wreck(ing|ed)`}
	repairable := model.KeywordRule{Kind: model.RuleExclude, Scope: model.ScopeContent, Value: "repairable"}

	tests := []struct {
		name  string
		item  Item
		rules []model.KeywordRule
		want  Verdict
	}{
		{
			name: "no rules passes everything",
			item: Item{Title: "anything", Content: "whatever"},
		},
		{
			name:  "include word matches",
			item:  Item{Title: "2021 Toyota LandCruiser GXL", Content: "One owner"},
			rules: []model.KeywordRule{gxl},
		},
		{
			name:  "include word no match",
			item:  Item{Title: "2021 Toyota LandCruiser Workmate", Content: "One owner"},
			rules: []model.KeywordRule{gxl},
			want:  Verdict{Unmatched: []model.KeywordRule{gxl}},
		},
		{
			name:  "one include hit satisfies the others",
			item:  Item{Title: "2021 Toyota LandCruiser Workmate", Content: "One owner"},
			rules: []model.KeywordRule{gxl, workmate},
		},
		{
			name:  "include and exclude both hit",
			item:  Item{Title: "LandCruiser GXL hail damaged"},
			rules: []model.KeywordRule{gxl, hail},
			want:  Verdict{Excluded: &hail},
		},
		{
			name:  "first exclude hit is reported",
			item:  Item{Title: "Wrecking 2015 LandCruiser", Content: "hail on the roof"},
			rules: []model.KeywordRule{wrecking, hail},
			want:  Verdict{Excluded: &wrecking},
		},
		{
			name: "invalid regex never matches",
			item: Item{Title: "anything"},
			rules: []model.KeywordRule{
				{Kind: model.RuleIncludeRe, Scope: model.ScopeAll, Value: "[invalid"},
			},
			want: Verdict{Unmatched: []model.KeywordRule{
				{Kind: model.RuleIncludeRe, Scope: model.ScopeAll, Value: "[invalid"},
			}},
		},
		{
			name:  "exclude scope content: word in title is not excluded",
			item:  Item{Title: "Repairable listing guide", Content: "Clean example"},
			rules: []model.KeywordRule{repairable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.item, tt.rules)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
			if got.Passed() != (tt.want.Excluded == nil && tt.want.Unmatched == nil) {
				t.Errorf("Passed() = %v", got.Passed())
			}
		})
	}
}

func TestMissingTokens(t *testing.T) {
	item := Item{Title: "2022 LandCruiser 79 Series GXL", Content: "Dual cab, diff locks, snorkel"}

	got := MissingTokens(item, []string{"gxl", "diff locks", "winch", " ", "Snorkel"})
	want := []string{"winch"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MissingTokens() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateRegex(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{name: "valid simple", pattern: "salvage", wantErr: false},
		{name: "valid alternation", pattern: "wovr|write.?off", wantErr: false},
		{name: "invalid unclosed bracket", pattern: "[invalid", wantErr: true},
		{name: "invalid bad repetition", pattern: "*bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegex(tt.pattern)
			gotErr := err != nil
			if diff := cmp.Diff(tt.wantErr, gotErr); diff != "" {
				t.Errorf("ValidateRegex() error mismatch (-want +got):\n%s\nerr: %v", diff, err)
			}
		})
	}
}
