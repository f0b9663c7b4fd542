// Package api maps the engine's control surface onto HTTP routes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/roach88/rollcall/internal/engine"
	"github.com/roach88/rollcall/internal/fault"
	"github.com/roach88/rollcall/internal/reader"
)

// Server is the HTTP front end.
type Server struct {
	app      *fiber.App
	engine   *engine.Engine
	sim      *reader.Simulated
	validate *validator.Validate
}

// Option configures a Server.
type Option func(*Server)

// WithSimulator exposes /api/sim/place and /api/sim/remove for sim.
func WithSimulator(sim *reader.Simulated) Option {
	return func(s *Server) { s.sim = sim }
}

// New builds the fiber app and registers every route.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:   e,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "rollcall",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(logRequests)

	s.routes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	slog.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	r := s.app.Group("/api")

	r.Get("/status", s.status)
	r.Post("/start-detection", s.startDetection)
	r.Post("/stop-detection", s.stopDetection)
	r.Get("/poll-status", s.pollStatus)
	r.Post("/get-uid", s.getUID)
	r.Post("/get-info", s.getInfo)
	r.Get("/mode", s.getMode)
	r.Post("/mode", s.setMode)

	r.Post("/save-card-name", s.saveCardName)
	r.Get("/get-card-name", s.getCardName)
	r.Get("/get-all-card-names", s.getAllCardNames)

	r.Post("/record-sign-in", s.recordSignIn)
	r.Post("/record-sign-out", s.recordSignOut)
	r.Get("/attendance-status", s.attendanceStatus)
	r.Get("/person-profile", s.personProfile)
	r.Post("/sync", s.syncNow)

	if s.sim != nil {
		r.Post("/sim/place", s.simPlace)
		r.Post("/sim/remove", s.simRemove)
	}
}

func logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			status = statusFor(err)
		}
	}
	slog.Debug("http request",
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)
	return err
}

// errorHandler renders every error as {"success": false, "error": ...}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	msg := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	var f *fault.Error
	if errors.As(err, &f) && f.Message != "" && f.Kind == fault.KindValidation {
		msg = f.Message
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": msg})
}

func statusFor(err error) int {
	switch {
	case fault.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrSyncDisabled):
		return fiber.StatusConflict
	case fault.IsHardwareUnavailable(err):
		return fiber.StatusServiceUnavailable
	case fault.IsRemoteSync(err):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// bind parses the JSON body into req and runs its validate tags.
func (s *Server) bind(c *fiber.Ctx, op string, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fault.Validation(op, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fault.Validation(op, verrs[0].Field()+" is required")
		}
		return fault.Validation(op, err.Error())
	}
	return nil
}
