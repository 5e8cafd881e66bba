// Package server exposes graph validation over HTTP for hosts that cannot
// link the stream package directly.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

// Server wraps a fiber app serving the validation API.
type Server struct {
	app       *fiber.App
	validator *stream.Validator
}

// New builds the app and registers its routes.
func New(v *stream.Validator) *Server {
	if v == nil {
		v = &stream.Validator{}
	}
	s := &Server{app: fiber.New(), validator: v}

	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ── Validation ────────────────────────────────────────────────────
	s.app.Post("/v1/validate", s.handleValidate)
	s.app.Post("/v1/links/validate", s.handleValidateLink)
	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		errc <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		slog.Info("server shutting down")
		return s.app.Shutdown()
	}
}

type validateResponse struct {
	Markers  stream.Markers `json:"markers"`
	Errors   int            `json:"errors"`
	Warnings int            `json:"warnings"`
}

func (s *Server) handleValidate(c fiber.Ctx) error {
	g, err := stream.ParseDOT(string(c.Body()))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	markers, err := s.validator.Validate(c.Context(), g)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	resp := validateResponse{
		Markers:  markers,
		Errors:   markers.Count(stream.SeverityError),
		Warnings: markers.Count(stream.SeverityWarning),
	}
	validationsTotal.Inc()
	recordMarkers(resp.Errors, stream.SeverityError.String())
	recordMarkers(resp.Warnings, stream.SeverityWarning.String())
	slog.Debug("validate request", "graph", g.Name, "errors", resp.Errors, "warnings", resp.Warnings)
	return c.JSON(resp)
}

type linkRequest struct {
	DOT    string     `json:"dot"`
	Source stream.End `json:"source"`
	Target stream.End `json:"target"`
	LinkID string     `json:"link_id,omitempty"`
}

func (s *Server) handleValidateLink(c fiber.Ctx) error {
	var req linkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	g, err := stream.ParseDOT(req.DOT)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if err := checkCandidate(g, req); err != nil {
		if errors.Is(err, stream.ErrNodeNotFound) || errors.Is(err, stream.ErrLinkNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	valid := stream.ValidateLink(g, stream.LinkCandidate{
		Source: req.Source,
		Target: req.Target,
		LinkID: req.LinkID,
	})
	recordLinkCheck(valid)
	return c.JSON(fiber.Map{"valid": valid})
}

// checkCandidate rejects requests naming nodes or links the graph lacks.
func checkCandidate(g stream.Graph, req linkRequest) error {
	for _, id := range []string{req.Source.ID, req.Target.ID} {
		if _, ok := g.Node(id); !ok {
			return fmt.Errorf("%w: %q", stream.ErrNodeNotFound, id)
		}
	}
	if req.LinkID != "" {
		if _, ok := g.Link(req.LinkID); !ok {
			return fmt.Errorf("%w: %q", stream.ErrLinkNotFound, req.LinkID)
		}
	}
	return nil
}
