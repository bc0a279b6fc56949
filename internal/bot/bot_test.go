package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"dealer_hunt/internal/config"
	"dealer_hunt/internal/hunt"
	"dealer_hunt/internal/model"
	"dealer_hunt/internal/storage"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Text   string
	Markup any
	Ack    bool
}

type mockAPI struct {
	mu      sync.Mutex
	sent    []sentMsg
	sendErr error
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	switch msg := c.(type) {
	case tgbotapi.MessageConfig:
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text, Markup: msg.ReplyMarkup})
	case tgbotapi.CallbackConfig:
		m.sent = append(m.sent, sentMsg{Ack: true})
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if !m.sent[i].Ack {
			return m.sent[i].Text
		}
	}
	return ""
}

func (m *mockAPI) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if !s.Ack {
			out = append(out, s.Text)
		}
	}
	return out
}

type mockRunner struct {
	sum   *hunt.Summary
	err   error
	calls []int
}

func (m *mockRunner) Run(_ context.Context, huntID int64, limit int) (*hunt.Summary, error) {
	m.calls = append(m.calls, limit)
	if m.err != nil {
		return nil, m.err
	}
	s := *m.sum
	s.HuntID = huntID
	return &s, nil
}

// --- helpers ---

func newTestBot(t *testing.T) (*Bot, *mockAPI, *storage.SQLite, *mockRunner) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	api := &mockAPI{}
	runner := &mockRunner{sum: &hunt.Summary{RunID: "run-1", Status: model.RunSuccess, CandidatesCreated: 2}}
	b := &Bot{
		api:    api,
		store:  store,
		runner: runner,
		cfg:    &config.Config{AlertChatID: -100},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, api, store, runner
}

func seedHunt(t *testing.T, store *storage.SQLite, name string) *model.Hunt {
	t.Helper()
	h := &model.Hunt{
		Name: name, Make: "Toyota", Model: "LandCruiser", YearMin: 2020, YearMax: 2022,
		Series: "LC70", ProvenExitValue: 90000, IsActive: true,
	}
	if err := store.CreateHunt(context.Background(), h); err != nil {
		t.Fatalf("seed hunt: %v", err)
	}
	return h
}

func seedCandidate(t *testing.T, store *storage.SQLite, h *model.Hunt, canonical string, d model.Decision) model.Candidate {
	t.Helper()
	c := &model.Candidate{
		HuntID:          h.ID,
		CriteriaVersion: h.CriteriaVersion,
		CanonicalID:     canonical,
		IdentityKind:    model.IdentitySource,
		RunID:           "run-0",
		SourceURL:       "https://www.pickles.com.au/used/details/cars/" + strings.TrimPrefix(canonical, "pickles:"),
		SourceName:      "pickles",
		Title:           "2021 Toyota LandCruiser 79 GXL",
		AskingPrice:     78000,
		Decision:        d,
		Confidence:      model.ConfidenceHigh,
		ListingKind:     model.KindAuction,
		PageType:        model.PageListing,
	}
	res, err := store.UpsertCandidate(context.Background(), c)
	if err != nil {
		t.Fatalf("seed candidate: %v", err)
	}
	return res.Candidate
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("reply missing %q, got:\n%s", want, got)
	}
}

// --- handler tests ---

func TestHandleStartAndHelp(t *testing.T) {
	b, api, _, _ := newTestBot(t)
	b.handleStart(100)
	requireContains(t, api.lastText(), "Welcome to Dealer Hunt")
	b.handleHelp(100)
	requireContains(t, api.lastText(), "/run <id>")
	requireContains(t, api.lastText(), "/exclude_re")
}

func TestHandleHunts(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		b, api, _, _ := newTestBot(t)
		b.handleHunts(ctx, 100)
		requireContains(t, api.lastText(), "no active hunts")
	})

	t.Run("lists active only", func(t *testing.T) {
		b, api, store, _ := newTestBot(t)
		seedHunt(t, store, "LC79 GXL")
		paused := seedHunt(t, store, "Old hunt")
		paused.IsActive = false
		if err := store.UpdateHunt(ctx, paused); err != nil {
			t.Fatalf("update: %v", err)
		}

		b.handleHunts(ctx, 100)
		reply := api.lastText()
		requireContains(t, reply, "#1 LC79 GXL")
		if strings.Contains(reply, "Old hunt") {
			t.Errorf("paused hunt listed:\n%s", reply)
		}
	})
}

func TestHandleHunt(t *testing.T) {
	ctx := context.Background()
	b, api, store, _ := newTestBot(t)

	b.handleHunt(ctx, 100, "")
	requireContains(t, api.lastText(), "Usage: /hunt")

	b.handleHunt(ctx, 100, "999")
	requireContains(t, api.lastText(), "Hunt #999 not found")

	seedHunt(t, store, "LC79 GXL")
	b.handleHunt(ctx, 100, "1")
	reply := api.lastText()
	requireContains(t, reply, "#1 LC79 GXL [active]")
	requireContains(t, reply, "Spec: LC70")
	requireContains(t, reply, "Exit value: $90,000")
}

func TestHandleCandidates(t *testing.T) {
	ctx := context.Background()
	b, api, store, _ := newTestBot(t)

	b.handleCandidates(ctx, 100, "1 maybe")
	requireContains(t, api.lastText(), "invalid decision")

	h := seedHunt(t, store, "LC79 GXL")
	b.handleCandidates(ctx, 100, "1")
	requireContains(t, api.lastText(), "No candidates")

	seedCandidate(t, store, h, "pickles:61234567", model.DecisionBuy)
	seedCandidate(t, store, h, "pickles:61230001", model.DecisionIgnore)

	b.handleCandidates(ctx, 100, "1 buy")
	reply := api.lastText()
	requireContains(t, reply, "[BUY]")
	requireContains(t, reply, "61234567")
	if strings.Contains(reply, "61230001") {
		t.Errorf("decision filter ignored:\n%s", reply)
	}
}

func TestHandleAlerts(t *testing.T) {
	ctx := context.Background()
	b, api, store, _ := newTestBot(t)
	h := seedHunt(t, store, "LC79 GXL")

	b.handleAlerts(ctx, 100, "1")
	requireContains(t, api.lastText(), "No alerts")

	c := seedCandidate(t, store, h, "pickles:61234567", model.DecisionBuy)
	if _, err := store.RecordAlert(ctx, &model.Alert{CandidateID: c.ID, HuntID: h.ID, Decision: model.DecisionBuy, Payload: "{}"}); err != nil {
		t.Fatalf("record alert: %v", err)
	}
	b.handleAlerts(ctx, 100, "1")
	requireContains(t, api.lastText(), "BUY candidate 1")
}

func TestHandleRun(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		args string
		err  error
		want string
	}{
		{"bad args", "", nil, "usage: /run"},
		{"success", "1 5", nil, "Run run-1 of #1: success"},
		{"unknown hunt", "9", hunt.ErrHuntNotFound, "Hunt #9 not found"},
		{"in progress", "1", hunt.ErrRunInProgress, "already running"},
		{"no credentials", "1", hunt.ErrMissingCredentials, "not configured"},
		{"other error", "1", errors.New("database is locked"), "Run failed: database is locked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api, _, runner := newTestBot(t)
			runner.err = tt.err
			b.handleRun(ctx, 100, tt.args)
			requireContains(t, api.lastText(), tt.want)
		})
	}

	b, _, _, runner := newTestBot(t)
	b.handleRun(ctx, 100, "1 5")
	if diff := cmp.Diff([]int{5}, runner.calls); diff != "" {
		t.Errorf("runner limits mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlePauseResume(t *testing.T) {
	ctx := context.Background()
	b, api, store, _ := newTestBot(t)
	seedHunt(t, store, "LC79 GXL")

	b.handleSetActive(ctx, 100, "", false)
	requireContains(t, api.lastText(), "Usage: /pause")

	b.handleSetActive(ctx, 100, "1", false)
	requireContains(t, api.lastText(), "paused")
	active, _ := store.ListActiveHunts(ctx)
	if len(active) != 0 {
		t.Errorf("active hunts after pause = %d, want 0", len(active))
	}

	b.handleSetActive(ctx, 100, "1", true)
	requireContains(t, api.lastText(), "resumed")
	active, _ = store.ListActiveHunts(ctx)
	if len(active) != 1 {
		t.Errorf("active hunts after resume = %d, want 1", len(active))
	}
}

func TestHandleRules(t *testing.T) {
	ctx := context.Background()
	b, api, store, _ := newTestBot(t)
	seedHunt(t, store, "LC79 GXL")

	b.handleAddRule(ctx, 100, "1 wrecking", model.RuleExclude)
	requireContains(t, api.lastText(), "Rule R1 added")
	requireContains(t, api.lastText(), "Criteria version 2")

	b.handleAddRule(ctx, 100, "1 -s title gxl|workmate", model.RuleIncludeRe)
	requireContains(t, api.lastText(), "Rule R2 added")

	b.handleAddRule(ctx, 100, "1 (unclosed", model.RuleExcludeRe)
	requireContains(t, api.lastText(), "Invalid regex")

	b.handleAddRule(ctx, 100, "7 wrecking", model.RuleExclude)
	requireContains(t, api.lastText(), "Hunt #7 not found")

	h, err := store.GetHunt(ctx, 1)
	if err != nil {
		t.Fatalf("get hunt: %v", err)
	}
	want := []model.KeywordRule{
		{Kind: model.RuleExclude, Scope: model.ScopeAll, Value: "wrecking"},
		{Kind: model.RuleIncludeRe, Scope: model.ScopeTitle, Value: "gxl|workmate"},
	}
	if diff := cmp.Diff(want, h.Exclude); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	if h.CriteriaVersion != 3 {
		t.Errorf("CriteriaVersion = %d, want 3", h.CriteriaVersion)
	}

	b.handleRules(ctx, 100, "1")
	requireContains(t, api.lastText(), "R2: include_re gxl|workmate (title only)")

	b.handleRmRule(ctx, 100, "1 R5")
	requireContains(t, api.lastText(), "Rule R5 not found")

	b.handleRmRule(ctx, 100, "1 1")
	requireContains(t, api.lastText(), "Rule R1 (exclude wrecking) removed")

	h, _ = store.GetHunt(ctx, 1)
	if diff := cmp.Diff(want[1:], h.Exclude); diff != "" {
		t.Errorf("rules after remove mismatch (-want +got):\n%s", diff)
	}
}

func TestNotify(t *testing.T) {
	b, api, _, _ := newTestBot(t)
	h := &model.Hunt{ID: 4, Name: "LC79 GXL"}
	c := model.Candidate{Title: "2021 Toyota LandCruiser 79 GXL", SourceURL: "https://www.pickles.com.au/used/details/cars/61234567"}

	if err := b.Notify(context.Background(), h, c, model.Alert{Decision: model.DecisionWatch}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	api.mu.Lock()
	got := api.sent[len(api.sent)-1]
	api.mu.Unlock()
	if got.ChatID != -100 {
		t.Errorf("alert chat = %d, want -100", got.ChatID)
	}
	requireContains(t, got.Text, "[WATCH] LC79 GXL")
	markup, ok := got.Markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 || *markup.InlineKeyboard[0][0].CallbackData != "candidates:4" {
		t.Errorf("alert keyboard = %#v", got.Markup)
	}

	api.sendErr = errors.New("blocked by user")
	if err := b.Notify(context.Background(), h, c, model.Alert{Decision: model.DecisionBuy}); err == nil {
		t.Error("Notify() expected error when send fails")
	}
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()
	b, api, store, _ := newTestBot(t)
	seedHunt(t, store, "LC79 GXL")

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1, UserName: "dealer"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		Data:    "rules:1",
	}
	b.handleCallback(ctx, cb)
	requireContains(t, api.lastText(), "No rules for #1")

	cb.Data = "candidates:1"
	b.handleCallback(ctx, cb)
	requireContains(t, api.lastText(), "No candidates")

	before := len(api.texts())
	cb.Data = "garbage"
	b.handleCallback(ctx, cb)
	if len(api.texts()) != before {
		t.Errorf("malformed callback produced a reply: %q", api.lastText())
	}
}

func TestHandleCommandUnknown(t *testing.T) {
	b, api, _, _ := newTestBot(t)
	msg := &tgbotapi.Message{
		Text:     "/frobnicate",
		Chat:     &tgbotapi.Chat{ID: 100},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 11}},
	}
	b.handleCommand(context.Background(), msg)
	requireContains(t, api.lastText(), "Unknown command")
}
