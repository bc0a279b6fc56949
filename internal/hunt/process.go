package hunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"dealer_hunt/internal/extract"
	"dealer_hunt/internal/gate"
	"dealer_hunt/internal/identity"
	"dealer_hunt/internal/metrics"
	"dealer_hunt/internal/model"
	"dealer_hunt/internal/provider"
	"dealer_hunt/internal/score"
	"dealer_hunt/internal/source"
	"dealer_hunt/internal/storage"
)

// runState carries everything that belongs to a single run. It is never
// shared between runs.
type runState struct {
	*Runner
	hunt    *model.Hunt
	run     *model.Run
	limit   int
	seen    *identity.Seen
	logger  *slog.Logger
	states  []State
	queryOK int
	enrichN int
	// drafts holds the merged draft of every candidate evaluated so far.
	drafts map[string]extract.Draft
}

func (st *runState) enter(s State) {
	st.states = append(st.states, s)
	st.logger.Debug("state", "state", s)
}

func (st *runState) target() extract.Target {
	return extract.Target{
		Make:    st.hunt.Make,
		Model:   st.hunt.Model,
		YearMin: st.hunt.YearMin,
		YearMax: st.hunt.YearMax,
	}
}

// status maps collected errors onto the final run status.
func (st *runState) status() model.RunStatus {
	switch {
	case len(st.run.Errors) == 0:
		return model.RunSuccess
	case st.queryOK == 0:
		return model.RunFailed
	default:
		return model.RunPartial
	}
}

func (st *runState) fail(msg string, err error) {
	st.run.Errors = append(st.run.Errors, fmt.Sprintf("%s: %v", msg, err))
}

func (st *runState) reject(reason string) {
	st.run.RejectReasons[reason]++
	metrics.ObserveRejection(reason)
}

// execute runs the queries of one tier in order.
func (st *runState) execute(ctx context.Context, queries []Query) {
	for _, q := range queries {
		if ctx.Err() != nil {
			return
		}
		results, err := st.call(ctx, q)
		st.run.QueriesRun++
		metrics.ObserveQuery(q.Tier, err)
		if err != nil {
			st.logger.Warn("query failed", "query", q.Text, "error", err)
			st.fail("query "+q.Text, err)
			continue
		}
		st.queryOK++
		st.logger.Debug("query done", "query", q.Text, "results", len(results))
		for _, res := range results {
			st.process(ctx, res)
		}
	}
}

func (st *runState) call(ctx context.Context, q Query) ([]provider.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, st.cfg.CallTimeout)
	defer cancel()

	if q.Kind == QueryFeed {
		if st.Feeds == nil {
			return nil, nil
		}
		if err := st.Throttle.Wait(ctx, q.Text); err != nil {
			return nil, err
		}
		return st.Feeds.Read(ctx, q.Text)
	}
	return st.Search.Search(ctx, q.Text, st.limit)
}

// process handles a single search result.
func (st *runState) process(ctx context.Context, res provider.Result) {
	st.run.ResultsSeen++
	if !st.seen.AddURL(res.URL) {
		return
	}

	if st.Scrape != nil && st.classifier.IsResultsPage(res.URL) {
		st.scrapeResults(ctx, res.URL)
		return
	}

	cls := st.classifier.Classify(res.URL, res.Title)
	if !cls.IsListing {
		if cls.PageType == model.PageArticle {
			st.run.Articles++
		}
		st.reject(cls.Reason)
		return
	}
	st.run.Listings++

	_, kind := st.classifier.ListingIntent(res.URL, res.Title, res.Snippet)
	text := res.Snippet
	if res.Markdown != "" {
		text = res.Markdown + "\n" + res.Snippet
	}
	d := extract.Listing(res.URL, res.Title, text, st.target())

	var verified []string
	if d.Confidence != model.ConfidenceHigh && d.ModelMatch {
		d, verified = st.enrich(ctx, d)
	}

	st.evaluate(ctx, finding{
		draft:    d,
		source:   cls.Source,
		nativeID: cls.NativeID,
		kind:     kind,
		page:     model.PageListing,
		verified: verified,
	})
}

// enrich scrapes a detail page to complete a thin draft. The fields the
// page yields are reported as verified.
func (st *runState) enrich(ctx context.Context, d extract.Draft) (extract.Draft, []string) {
	if st.Scrape == nil || st.enrichN <= 0 {
		return d, nil
	}
	st.enrichN--

	page, err := st.scrape(ctx, d.URL)
	if err != nil {
		st.logger.Warn("enrich scrape failed", "url", d.URL, "error", err)
		st.fail("scrape "+d.URL, err)
		return d, nil
	}
	title := page.Title
	if title == "" {
		title = d.Title
	}
	scraped := extract.Listing(d.URL, title, pageText(page), st.target())
	return extract.Fill(d, scraped), extract.Fields(scraped)
}

// scrapeResults extracts every card of a results page.
func (st *runState) scrapeResults(ctx context.Context, pageURL string) {
	page, err := st.scrape(ctx, pageURL)
	if err != nil {
		st.logger.Warn("results scrape failed", "url", pageURL, "error", err)
		st.fail("scrape "+pageURL, err)
		return
	}
	base, _ := url.Parse(pageURL)
	pageSource := st.Catalog.Lookup(source.NormalizeDomain(pageURL))

	drafts := extract.Cards(pageText(page), extract.CardOptions{
		Target: st.target(),
		Base:   base,
		IsDetail: func(raw string) bool {
			return st.classifier.Classify(raw, "").IsListing
		},
	})
	st.logger.Debug("results page", "url", pageURL, "cards", len(drafts))

	for _, d := range drafts {
		st.run.ResultsSeen++
		f := finding{draft: d, source: pageSource, kind: pageSource.ListingKind(), page: model.PageListing}
		if d.URL != "" {
			if !st.seen.AddURL(d.URL) && d.Boundary == extract.BoundaryLink {
				continue
			}
			cls := st.classifier.Classify(d.URL, d.Title)
			if cls.Source != nil {
				f.source = cls.Source
				f.kind = cls.ListingKind
			}
			f.nativeID = cls.NativeID
		}
		st.run.Listings++
		st.evaluate(ctx, f)
	}
}

func (st *runState) scrape(ctx context.Context, pageURL string) (*provider.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, st.cfg.CallTimeout)
	defer cancel()
	if err := st.Throttle.Wait(ctx, pageURL); err != nil {
		return nil, err
	}
	return st.Scrape.Scrape(ctx, pageURL)
}

// pageText prefers the provider's markdown and falls back to converting the
// HTML body.
func pageText(p *provider.Page) string {
	if strings.TrimSpace(p.Markdown) != "" {
		return p.Markdown
	}
	base, _ := url.Parse(p.URL)
	md, err := extract.HTMLToMarkdown(p.HTML, base)
	if err != nil {
		return ""
	}
	return md
}

// finding is a draft with everything known about where it came from.
type finding struct {
	draft    extract.Draft
	source   *source.Source
	nativeID string
	kind     model.ListingKind
	page     model.PageType
	verified []string
}

// evaluate gates, scores and persists one finding. The verdict is computed
// over everything known about the candidate, so a thin re-discovery cannot
// undo what an earlier, richer one established.
func (st *runState) evaluate(ctx context.Context, f finding) {
	sourceName, tier := "", source.TierFallback
	if f.source != nil {
		sourceName, tier = f.source.Name, f.source.Tier
	}
	raw := f.draft
	id := identity.Canonical(sourceName, f.nativeID, raw.Title, raw.Price, raw.Odometer, raw.State)
	firstInRun := st.seen.Add(id.Value)

	d := st.recall(ctx, id.Value, raw)
	if reason := extract.Reject(d, st.target(), f.kind); reason != "" {
		if firstInRun {
			st.run.CandidatesRejected++
		}
		st.reject(reason)
		return
	}

	g := gate.Check(st.hunt, gate.Input{Title: d.Title, Text: d.Text, URL: d.URL})
	sc := score.Evaluate(score.Input{
		Hunt:        st.hunt,
		Year:        d.Year,
		MakeMatch:   d.MakeMatch,
		ModelMatch:  d.ModelMatch,
		SeriesMatch: g.SeriesMatch,
		EngineMatch: g.EngineMatch,
		Kind:        f.kind,
		IsListing:   f.page == model.PageListing,
		Confidence:  d.Confidence,
		Price:       d.Price,
		GateReasons: g.Reasons,
		HardReject:  g.Hard,
	})

	c := &model.Candidate{
		HuntID:          st.hunt.ID,
		CriteriaVersion: st.hunt.CriteriaVersion,
		CanonicalID:     id.Value,
		IdentityKind:    id.Kind,
		RunID:           st.run.ID,
		SourceURL:       d.URL,
		Domain:          source.NormalizeDomain(d.URL),
		SourceName:      sourceName,
		SourceTier:      tier,
		Title:           d.Title,
		Year:            d.Year,
		Make:            d.Make,
		Model:           d.Model,
		Variant:         d.Variant,
		Odometer:        d.Odometer,
		AskingPrice:     d.Price,
		State:           d.State,
		Confidence:      d.Confidence,
		IsListing:       f.page == model.PageListing,
		ListingKind:     f.kind,
		PageType:        f.page,
		Score:           sc.Score,
		Decision:        sc.Decision,
		Reasons:         g.Reasons,
		Tags:            sc.Tags,
		GapDollars:      sc.GapDollars,
		GapPct:          sc.GapPct,
		VerifiedFields:  f.verified,
	}
	if g.Hard {
		c.RejectReason = strings.Join(g.Reasons, ",")
		if firstInRun {
			st.run.CandidatesRejected++
			for _, reason := range g.Reasons {
				st.reject(reason)
			}
		}
	}

	up, err := st.Store.UpsertCandidate(ctx, c)
	if err != nil {
		st.logger.Error("upsert candidate failed", "canonical_id", c.CanonicalID, "error", err)
		st.fail("store "+c.CanonicalID, err)
		return
	}
	switch {
	case up.Created:
		st.run.CandidatesCreated++
		metrics.ObserveCandidate(string(c.Decision))
	case firstInRun:
		st.run.CandidatesUpdated++
	}
	st.logger.Debug("candidate",
		"canonical_id", c.CanonicalID,
		"url", c.SourceURL,
		"decision", c.Decision,
		"score", c.Score,
		"created", up.Created,
	)

	if up.AlertDue {
		st.alert(ctx, up.Candidate)
	}
}

// recall folds earlier discoveries of the same candidate into d: drafts
// seen earlier in this run first, then the stored record. Fields d already
// carries win.
func (st *runState) recall(ctx context.Context, canonicalID string, d extract.Draft) extract.Draft {
	if prev, ok := st.drafts[canonicalID]; ok {
		text := d.Text
		d = extract.Fill(d, prev)
		d.Text = joinText(text, prev.Text)
	}

	stored, err := st.Store.GetCandidate(ctx, st.hunt.ID, st.hunt.CriteriaVersion, canonicalID)
	switch {
	case err == nil:
		d = extract.Fill(d, storedDraft(stored))
	case !errors.Is(err, storage.ErrNotFound):
		st.logger.Warn("load stored candidate failed", "canonical_id", canonicalID, "error", err)
	}

	st.drafts[canonicalID] = d
	return d
}

// storedDraft rebuilds the extracted fields of a persisted candidate.
func storedDraft(c *model.Candidate) extract.Draft {
	return extract.Draft{
		URL:        c.SourceURL,
		Title:      c.Title,
		Year:       c.Year,
		Make:       c.Make,
		Model:      c.Model,
		Variant:    c.Variant,
		Odometer:   c.Odometer,
		Price:      c.AskingPrice,
		State:      c.State,
		MakeMatch:  c.Make != "",
		ModelMatch: c.Model != "",
	}
}

func joinText(a, b string) string {
	switch {
	case a == "" || a == b:
		return b
	case b == "" || strings.Contains(a, b):
		return a
	}
	return a + "\n" + b
}

// alert records and delivers an alert for c. Delivery failures are logged;
// the alert stays recorded so it is not sent twice.
func (st *runState) alert(ctx context.Context, c model.Candidate) {
	payload, err := alertPayload(st.hunt, c)
	if err != nil {
		st.fail("alert payload "+c.CanonicalID, err)
		return
	}
	a := &model.Alert{CandidateID: c.ID, HuntID: st.hunt.ID, Decision: c.Decision, Payload: payload}
	ok, err := st.Store.RecordAlert(ctx, a)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return
		}
		st.fail("record alert "+c.CanonicalID, err)
		return
	}
	if !ok {
		return
	}
	st.run.AlertsEmitted++
	metrics.ObserveAlert(string(a.Decision))

	if st.Notifier == nil {
		return
	}
	if err := st.Notifier.Notify(ctx, st.hunt, c, *a); err != nil {
		st.logger.Warn("alert delivery failed", "canonical_id", c.CanonicalID, "error", err)
	}
}
