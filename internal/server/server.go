// Package server exposes the HTTP trigger and read endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"dealer_hunt/internal/hunt"
	"dealer_hunt/internal/metrics"
	"dealer_hunt/internal/model"
	"dealer_hunt/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Runner executes a hunt on demand.
type Runner interface {
	Run(ctx context.Context, huntID int64, limit int) (*hunt.Summary, error)
}

// Server wraps the fiber app.
type Server struct {
	app    *fiber.App
	store  storage.Storage
	runner Runner
	log    *slog.Logger
}

// New creates a Server with all routes registered.
func New(store storage.Storage, runner Runner, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		runner: runner,
		log:    log,
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "dealer_hunt",
		ErrorHandler: s.errorHandler,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	s.app.Use(requestMetrics())
	s.app.Use(requestLogger(log))

	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	s.app.Get("/hunts", s.listHunts)
	s.app.Post("/hunts/:id/run", s.runHunt)
	s.app.Get("/hunts/:id/candidates", s.listCandidates)
	s.app.Get("/hunts/:id/alerts", s.listAlerts)
	s.app.Get("/runs/:id", s.getRun)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listHunts(c fiber.Ctx) error {
	hunts, err := s.store.ListActiveHunts(c.Context())
	if err != nil {
		return err
	}
	out := make([]huntView, 0, len(hunts))
	for _, h := range hunts {
		out = append(out, newHuntView(h))
	}
	return c.JSON(out)
}

func (s *Server) runHunt(c fiber.Ctx) error {
	id, err := huntID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}

	sum, err := s.runner.Run(c.Context(), id, limit)
	switch {
	case errors.Is(err, hunt.ErrHuntNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, hunt.ErrRunInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, hunt.ErrMissingCredentials):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, hunt.ErrInvalidHunt):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(sum)
}

func (s *Server) listCandidates(c fiber.Ctx) error {
	id, err := huntID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil {
		return err
	}
	f := storage.CandidateFilter{
		Limit:        limit,
		IncludeStale: c.Query("stale") == "true",
	}
	if d := strings.ToUpper(c.Query("decision")); d != "" {
		f.Decision = model.Decision(d)
		switch f.Decision {
		case model.DecisionBuy, model.DecisionWatch, model.DecisionIgnore:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "decision must be BUY, WATCH or IGNORE")
		}
	}

	cands, err := s.store.ListCandidates(c.Context(), id, f)
	if err != nil {
		return err
	}
	out := make([]candidateView, 0, len(cands))
	for _, cand := range cands {
		out = append(out, newCandidateView(cand))
	}
	return c.JSON(out)
}

func (s *Server) listAlerts(c fiber.Ctx) error {
	id, err := huntID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil {
		return err
	}
	alerts, err := s.store.ListAlerts(c.Context(), id, limit)
	if err != nil {
		return err
	}
	out := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertView{
			ID:          a.ID,
			CandidateID: a.CandidateID,
			Decision:    a.Decision,
			Payload:     a.Payload,
			CreatedAt:   a.CreatedAt,
		})
	}
	return c.JSON(out)
}

func (s *Server) getRun(c fiber.Ctx) error {
	r, err := s.store.GetRun(c.Context(), c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "run not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(newRunView(r))
}

func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(errorResponse{Error: msg})
}

func huntID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid hunt id")
	}
	return id, nil
}

func queryInt(c fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	if n == 0 {
		return def, nil
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
