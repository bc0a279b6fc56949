package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealer_hunt/internal/config"
	"dealer_hunt/internal/hunt"
	"dealer_hunt/internal/model"
	"dealer_hunt/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ hunt.Notifier = (*Bot)(nil)

// Runner executes a hunt on demand.
type Runner interface {
	Run(ctx context.Context, huntID int64, limit int) (*hunt.Summary, error)
}

// Bot is the Telegram bot that answers hunt commands and delivers alerts.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	runner Runner
	cfg    *config.Config
	log    *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, runner, and config.
func New(token string, store storage.Storage, runner Runner, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:    api,
		store:  store,
		runner: runner,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// Notify sends an alert to the configured alert chat.
func (b *Bot) Notify(_ context.Context, h *model.Hunt, c model.Candidate, a model.Alert) error {
	msg := tgbotapi.NewMessage(b.cfg.AlertChatID, FormatAlert(h, c, a))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Candidates", fmt.Sprintf("%s:%d", cmdCandidates, h.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Alerts", fmt.Sprintf("%s:%d", cmdAlerts, h.ID)),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "hunts":
		b.handleHunts(ctx, chatID)
	case "hunt":
		b.handleHunt(ctx, chatID, args)
	case cmdCandidates:
		b.handleCandidates(ctx, chatID, args)
	case cmdAlerts:
		b.handleAlerts(ctx, chatID, args)
	case cmdRun:
		go b.handleRun(ctx, chatID, args)
	case "pause":
		b.handleSetActive(ctx, chatID, args, false)
	case "resume":
		b.handleSetActive(ctx, chatID, args, true)
	case cmdRules:
		b.handleRules(ctx, chatID, args)
	case "include":
		b.handleAddRule(ctx, chatID, args, model.RuleInclude)
	case "exclude":
		b.handleAddRule(ctx, chatID, args, model.RuleExclude)
	case "include_re":
		b.handleAddRule(ctx, chatID, args, model.RuleIncludeRe)
	case "exclude_re":
		b.handleAddRule(ctx, chatID, args, model.RuleExcludeRe)
	case "rmrule":
		b.handleRmRule(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
