// Package scheduler triggers runs of every active hunt on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"dealer_hunt/internal/hunt"
	"dealer_hunt/internal/model"
)

// Runner executes a single hunt.
type Runner interface {
	Run(ctx context.Context, huntID int64, limit int) (*hunt.Summary, error)
}

// HuntLister lists the hunts to run.
type HuntLister interface {
	ListActiveHunts(ctx context.Context) ([]model.Hunt, error)
}

// Scheduler runs all active hunts on a cron spec.
type Scheduler struct {
	hunts       HuntLister
	runner      Runner
	log         *slog.Logger
	spec        string
	concurrency int
	limit       int
}

// New creates a Scheduler. spec is a robfig/cron expression such as
// "@every 6h" or "0 */4 * * *".
func New(hunts HuntLister, runner Runner, log *slog.Logger, spec string, concurrency, limit int) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		hunts:       hunts,
		runner:      runner,
		log:         log,
		spec:        spec,
		concurrency: concurrency,
		limit:       limit,
	}
}

// Run starts the cron loop, blocking until ctx is cancelled. One cycle runs
// immediately so results do not wait for the first tick.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.spec, func() { s.RunAll(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}

	c.Start()
	s.log.Info("scheduler started", "spec", s.spec, "concurrency", s.concurrency)

	s.RunAll(ctx)

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// RunAll runs every active hunt, at most concurrency at a time. Failures are
// logged per hunt and never stop the others.
func (s *Scheduler) RunAll(ctx context.Context) {
	hunts, err := s.hunts.ListActiveHunts(ctx)
	if err != nil {
		s.log.Error("list active hunts", "error", err)
		return
	}
	if len(hunts) == 0 {
		s.log.Debug("no active hunts")
		return
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, h := range hunts {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			sum, err := s.runner.Run(ctx, h.ID, s.limit)
			switch {
			case errors.Is(err, hunt.ErrRunInProgress):
				s.log.Info("hunt already running", "hunt_id", h.ID)
			case err != nil:
				s.log.Error("hunt run", "hunt_id", h.ID, "name", h.Name, "error", err)
			default:
				s.log.Info("hunt run finished",
					"hunt_id", h.ID,
					"run_id", sum.RunID,
					"status", sum.Status,
					"created", sum.CandidatesCreated,
					"alerts", sum.AlertsEmitted,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}
