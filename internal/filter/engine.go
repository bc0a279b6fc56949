// Package filter implements the keyword rule matching engine.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"dealer_hunt/internal/model"
)

// Item represents a candidate listing to be matched against rules.
type Item struct {
	Title   string
	Content string
}

// Verdict is the outcome of applying a hunt's keyword rules to an item.
type Verdict struct {
	// Excluded is the first exclude rule the item hit, if any.
	Excluded *model.KeywordRule
	// Unmatched holds the include rules when none of them hit. Include
	// rules are alternatives, so a single hit satisfies all of them.
	Unmatched []model.KeywordRule
}

// Passed reports whether the item cleared every rule.
func (v Verdict) Passed() bool {
	return v.Excluded == nil && len(v.Unmatched) == 0
}

// Apply evaluates rules against item in order.
func Apply(item Item, rules []model.KeywordRule) Verdict {
	var (
		v        Verdict
		includes []model.KeywordRule
		included bool
	)
	for i, r := range rules {
		switch r.Kind {
		case model.RuleInclude, model.RuleIncludeRe:
			includes = append(includes, r)
			if !included && Matches(item, r) {
				included = true
			}
		case model.RuleExclude, model.RuleExcludeRe:
			if v.Excluded == nil && Matches(item, r) {
				v.Excluded = &rules[i]
			}
		}
	}
	if len(includes) > 0 && !included {
		v.Unmatched = includes
	}
	return v
}

// Matches reports whether a single rule's value occurs in the item,
// regardless of whether the rule includes or excludes.
func Matches(item Item, r model.KeywordRule) bool {
	text := textForScope(item, r.Scope)
	switch r.Kind {
	case model.RuleInclude, model.RuleExclude:
		return strings.Contains(text, strings.ToLower(r.Value))
	case model.RuleIncludeRe, model.RuleExcludeRe:
		re, err := regexp.Compile("(?i)" + r.Value)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return false
}

// MissingTokens returns the must-have tokens that do not occur in the item.
func MissingTokens(item Item, tokens []string) []string {
	var missing []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !Matches(item, model.KeywordRule{Kind: model.RuleInclude, Scope: model.ScopeAll, Value: tok}) {
			missing = append(missing, tok)
		}
	}
	return missing
}

func textForScope(item Item, scope model.RuleScope) string {
	switch scope {
	case model.ScopeTitle:
		return strings.ToLower(item.Title)
	case model.ScopeContent:
		return strings.ToLower(item.Content)
	default:
		return strings.ToLower(item.Title + " " + item.Content)
	}
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
