package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdCandidates = "candidates"
	cmdAlerts     = "alerts"
	cmdRun        = "run"
	cmdRules      = "rules"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return
	}

	action := parts[0]
	idStr := parts[1]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}

	b.log.Info("callback",
		"action", action,
		"hunt_id", id,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdCandidates:
		b.handleCandidates(ctx, chatID, idStr)
	case cmdAlerts:
		b.handleAlerts(ctx, chatID, idStr)
	case cmdRules:
		b.handleRules(ctx, chatID, idStr)
	case cmdRun:
		go b.handleRun(ctx, chatID, idStr)
	}
}
