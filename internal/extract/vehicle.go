package extract

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// childModels lists model names that share a prefix with a different,
// longer-named model. "LandCruiser Prado" must not count as a "LandCruiser".
var childModels = map[string][]string{
	"landcruiser": {"prado"},
	"pajero":      {"sport"},
	"colorado":    {"7"},
	"discovery":   {"sport"},
	"rangerover":  {"sport", "evoque", "velar"},
	"everest":     {"sport"},
}

func tokens(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

func collapse(s string) string {
	return strings.Join(tokens(s), "")
}

// phraseSpans returns [start, end) token spans where consecutive tokens of
// text concatenate to phrase, so "Land Cruiser", "LandCruiser" and
// "land-cruiser" all match "LandCruiser".
func phraseSpans(text []string, phrase string) [][2]int {
	if phrase == "" {
		return nil
	}
	var spans [][2]int
	for i := range text {
		acc := ""
		for j := i; j < len(text); j++ {
			acc += text[j]
			if !strings.HasPrefix(phrase, acc) {
				break
			}
			if acc == phrase {
				spans = append(spans, [2]int{i, j + 1})
				break
			}
		}
	}
	return spans
}

// MatchMake reports whether text names the make.
func MatchMake(text, name string) bool {
	return len(phraseSpans(tokens(text), collapse(name))) > 0
}

// MatchModel reports whether text names the model and not one of its
// longer-named siblings.
func MatchModel(text, model string) bool {
	_, ok := modelSpan(tokens(text), collapse(model))
	return ok
}

func modelSpan(text []string, model string) ([2]int, bool) {
	children := childModels[model]
	for _, span := range phraseSpans(text, model) {
		if span[1] < len(text) && contains(children, text[span[1]]) {
			continue
		}
		return span, true
	}
	return [2]int{}, false
}

// Variant returns up to three words following the model name in title.
func Variant(title, model string) string {
	toks := tokens(title)
	span, ok := modelSpan(toks, collapse(model))
	if !ok {
		return ""
	}
	var out []string
	for _, t := range toks[span[1]:] {
		if len(out) == 3 {
			break
		}
		if yearRe.MatchString(t) && len(t) == 4 {
			break
		}
		out = append(out, t)
	}
	return strings.ToUpper(strings.Join(out, " "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
