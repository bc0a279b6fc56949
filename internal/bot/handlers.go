package bot

import (
	"context"
	"errors"
	"fmt"

	"dealer_hunt/internal/filter"
	"dealer_hunt/internal/hunt"
	"dealer_hunt/internal/model"
	"dealer_hunt/internal/storage"
)

const listLimit = 10

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Dealer Hunt!

Hunts search auction and dealer sites for vehicles that match a profile and alert on BUY and WATCH candidates.

Quick start:
1. /hunts — list active hunts
2. /run <id> — run a hunt now
3. /candidates <id> — see what it found

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Hunts:
/hunts — list active hunts
/hunt <id> — hunt criteria and rules
/run <id> [limit] — run a hunt now
/candidates <id> [buy|watch|ignore] — latest candidates
/alerts <id> — alert history
/pause <id> — stop scheduled runs
/resume <id> — resume scheduled runs

Keyword rules:
/rules <id> — show rules for a hunt
/include <id> [-s scope] <word> — require word/phrase
/exclude <id> [-s scope] <word> — reject word/phrase
/include_re <id> [-s scope] <regex> — require regex
/exclude_re <id> [-s scope] <regex> — reject regex
/rmrule <id> <rule_number> — remove a rule

Scope flag: -s title | content | all (default: all)
Changing rules starts a new criteria version.`)
}

func (b *Bot) handleHunts(ctx context.Context, chatID int64) {
	hunts, err := b.store.ListActiveHunts(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatHuntList(hunts))
}

// loadHunt returns the hunt, or replies and returns nil when it cannot be read.
func (b *Bot) loadHunt(ctx context.Context, chatID int64, id int64) *model.Hunt {
	h, err := b.store.GetHunt(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("Hunt #%d not found.", id))
		return nil
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return nil
	}
	return h
}

func (b *Bot) handleHunt(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /hunt <id>")
		return
	}
	h := b.loadHunt(ctx, chatID, id)
	if h == nil {
		return
	}
	b.reply(chatID, FormatHuntInfo(h))
}

func (b *Bot) handleCandidates(ctx context.Context, chatID int64, args string) {
	id, decision, err := ParseCandidatesArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	h := b.loadHunt(ctx, chatID, id)
	if h == nil {
		return
	}

	cands, err := b.store.ListCandidates(ctx, id, storage.CandidateFilter{Decision: decision, Limit: listLimit})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatCandidateList(h, cands))
}

func (b *Bot) handleAlerts(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /alerts <id>")
		return
	}
	h := b.loadHunt(ctx, chatID, id)
	if h == nil {
		return
	}

	alerts, err := b.store.ListAlerts(ctx, id, listLimit)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatAlertList(h, alerts))
}

func (b *Bot) handleRun(ctx context.Context, chatID int64, args string) {
	id, limit, err := ParseRunArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	b.reply(chatID, fmt.Sprintf("Running hunt #%d...", id))
	sum, err := b.runner.Run(ctx, id, limit)
	switch {
	case errors.Is(err, hunt.ErrHuntNotFound):
		b.reply(chatID, fmt.Sprintf("Hunt #%d not found.", id))
	case errors.Is(err, hunt.ErrRunInProgress):
		b.reply(chatID, fmt.Sprintf("Hunt #%d is already running.", id))
	case errors.Is(err, hunt.ErrMissingCredentials):
		b.reply(chatID, "Search provider is not configured.")
	case err != nil:
		b.log.Error("run hunt", "hunt_id", id, "error", err)
		b.reply(chatID, fmt.Sprintf("Run failed: %v", err))
	default:
		b.reply(chatID, FormatSummary(sum))
	}
}

func (b *Bot) handleSetActive(ctx context.Context, chatID int64, args string, active bool) {
	verb, usage := "resumed", "Usage: /resume <id>"
	if !active {
		verb, usage = "paused", "Usage: /pause <id>"
	}

	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, usage)
		return
	}
	h := b.loadHunt(ctx, chatID, id)
	if h == nil {
		return
	}

	h.IsActive = active
	if err := b.store.UpdateHunt(ctx, h); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Hunt #%d \"%s\" %s.", id, h.Name, verb))
}

func (b *Bot) handleRules(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /rules <id>")
		return
	}
	h := b.loadHunt(ctx, chatID, id)
	if h == nil {
		return
	}
	b.reply(chatID, FormatRuleList(h))
}

func (b *Bot) handleAddRule(ctx context.Context, chatID int64, args string, kind model.RuleKind) {
	parsed, err := ParseRuleCommand(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if kind == model.RuleIncludeRe || kind == model.RuleExcludeRe {
		if err := filter.ValidateRegex(parsed.Value); err != nil {
			b.reply(chatID, fmt.Sprintf("Invalid regex: %v", err))
			return
		}
	}

	h := b.loadHunt(ctx, chatID, parsed.HuntID)
	if h == nil {
		return
	}

	h.Exclude = append(h.Exclude, model.KeywordRule{Kind: kind, Scope: parsed.Scope, Value: parsed.Value})
	h.CriteriaVersion++
	if err := b.store.UpdateHunt(ctx, h); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf("Rule R%d added to #%d \"%s\": %s %s (%s). Criteria version %d.",
		len(h.Exclude), h.ID, h.Name, kind, parsed.Value, scopeLabel(parsed.Scope), h.CriteriaVersion))
}

func (b *Bot) handleRmRule(ctx context.Context, chatID int64, args string) {
	id, n, err := ParseRmRuleArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	h := b.loadHunt(ctx, chatID, id)
	if h == nil {
		return
	}
	if n > len(h.Exclude) {
		b.reply(chatID, fmt.Sprintf("Rule R%d not found on #%d.", n, id))
		return
	}

	removed := h.Exclude[n-1]
	h.Exclude = append(h.Exclude[:n-1:n-1], h.Exclude[n:]...)
	h.CriteriaVersion++
	if err := b.store.UpdateHunt(ctx, h); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Rule R%d (%s %s) removed from #%d \"%s\".", n, removed.Kind, removed.Value, id, h.Name))
}
