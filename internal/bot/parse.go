package bot

import (
	"fmt"
	"strconv"
	"strings"

	"dealer_hunt/internal/model"
)

// RuleArgs holds the parsed arguments of a rule command.
type RuleArgs struct {
	HuntID int64
	Scope  model.RuleScope
	Value  string
}

// ParseRuleCommand parses arguments for /include, /exclude, etc.
// Format: <hunt_id> [-s title|content|all] <value...>
func ParseRuleCommand(args string) (RuleArgs, error) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return RuleArgs{}, fmt.Errorf("usage: <hunt_id> [-s title|content|all] <value>")
	}

	huntID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RuleArgs{}, fmt.Errorf("invalid hunt ID %q", parts[0])
	}

	scope := model.ScopeAll
	rest := parts[1:]

	if len(rest) >= 2 && rest[0] == "-s" {
		switch rest[1] {
		case "title":
			scope = model.ScopeTitle
		case "content":
			scope = model.ScopeContent
		case "all":
			scope = model.ScopeAll
		default:
			return RuleArgs{}, fmt.Errorf("invalid scope %q, use: title, content, all", rest[1])
		}
		rest = rest[2:]
	}

	if len(rest) == 0 {
		return RuleArgs{}, fmt.Errorf("rule value is required")
	}

	return RuleArgs{
		HuntID: huntID,
		Scope:  scope,
		Value:  strings.Join(rest, " "),
	}, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("hunt ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hunt ID %q", s)
	}
	return id, nil
}

// ParseRunArgs extracts a hunt ID and an optional per-query result limit.
func ParseRunArgs(args string) (int64, int, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return 0, 0, fmt.Errorf("usage: /run <id> [limit]")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hunt ID %q", parts[0])
	}
	if len(parts) == 1 {
		return id, 0, nil
	}
	limit, err := strconv.Atoi(parts[1])
	if err != nil || limit < 1 || limit > 50 {
		return 0, 0, fmt.Errorf("limit must be between 1 and 50")
	}
	return id, limit, nil
}

// ParseCandidatesArgs extracts a hunt ID and an optional decision filter.
func ParseCandidatesArgs(args string) (int64, model.Decision, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return 0, "", fmt.Errorf("usage: /candidates <id> [buy|watch|ignore]")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid hunt ID %q", parts[0])
	}
	if len(parts) == 1 {
		return id, "", nil
	}
	d := model.Decision(strings.ToUpper(parts[1]))
	switch d {
	case model.DecisionBuy, model.DecisionWatch, model.DecisionIgnore:
		return id, d, nil
	}
	return 0, "", fmt.Errorf("invalid decision %q, use: buy, watch, ignore", parts[1])
}

// ParseRmRuleArgs extracts a hunt ID and a 1-based rule number.
func ParseRmRuleArgs(args string) (int64, int, error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("usage: /rmrule <id> <rule_number>")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hunt ID %q", parts[0])
	}
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(parts[1]), "R"))
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid rule number %q", parts[1])
	}
	return id, n, nil
}
