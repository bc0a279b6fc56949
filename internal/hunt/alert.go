package hunt

import (
	"context"
	"encoding/json"
	"log/slog"

	"dealer_hunt/internal/model"
)

// AlertPayload is the JSON body stored with every alert.
type AlertPayload struct {
	Hunt       string         `json:"hunt"`
	Decision   model.Decision `json:"decision"`
	Title      string         `json:"title"`
	URL        string         `json:"url"`
	Source     string         `json:"source,omitempty"`
	Year       int            `json:"year,omitempty"`
	Odometer   int            `json:"odometer,omitempty"`
	Price      int            `json:"price,omitempty"`
	State      string         `json:"state,omitempty"`
	Score      float64        `json:"score"`
	GapDollars int            `json:"gap_dollars"`
	GapPct     float64        `json:"gap_pct"`
	Reasons    []string       `json:"reasons,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
}

func alertPayload(h *model.Hunt, c model.Candidate) (string, error) {
	b, err := json.Marshal(AlertPayload{
		Hunt:       h.Name,
		Decision:   c.Decision,
		Title:      c.Title,
		URL:        c.SourceURL,
		Source:     c.SourceName,
		Year:       c.Year,
		Odometer:   c.Odometer,
		Price:      c.AskingPrice,
		State:      c.State,
		Score:      c.Score,
		GapDollars: c.GapDollars,
		GapPct:     c.GapPct,
		Reasons:    c.Reasons,
		Tags:       c.Tags,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// LogNotifier writes alerts to the log. It is used when no chat sink is
// configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the alert.
func (n LogNotifier) Notify(_ context.Context, h *model.Hunt, c model.Candidate, a model.Alert) error {
	n.Logger.Info("alert",
		"hunt_id", h.ID,
		"decision", a.Decision,
		"title", c.Title,
		"url", c.SourceURL,
		"price", c.AskingPrice,
		"score", c.Score,
	)
	return nil
}
