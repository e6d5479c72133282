// Package api exposes the comparison workspace over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/notes"
	"github.com/TFMV/vantage/pkg/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Addr         string
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Prefork      bool
}

// Server holds the Fiber app instance and the workspace it serves.
type Server struct {
	app    *fiber.App
	opts   ServerOptions
	store  *store.Store
	notes  *notes.Store
	logger *zap.Logger
}

// NewServer builds the app and registers every route. A nil note store gets
// an empty one.
func NewServer(opts ServerOptions, st *store.Store, n *notes.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if n == nil {
		n = notes.New()
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8080"
	}

	app := fiber.New(fiber.Config{
		AppName:               "vantage",
		IdleTimeout:           10 * time.Second,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		BodyLimit:             opts.BodyLimit,
		Prefork:               opts.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Output: zap.NewStdLog(log.Named("http")).Writer(),
		Format: "${status} ${method} ${path} ${latency}\n",
	}))

	s := &Server{app: app, opts: opts, store: st, notes: n, logger: log}
	s.routes()
	return s
}

// GetApp returns the underlying Fiber app.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

// Start listens until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("vantage API listening", zap.String("addr", s.opts.Addr))
		errCh <- s.app.Listen(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("received shutdown signal, stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server shutdown successfully")
	return nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler maps domain errors onto status codes and answers with
// {"error": message}.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case errors.Is(err, core.ErrMalformedInput):
			code = fiber.StatusBadRequest
		case errors.Is(err, core.ErrUnknownDataset),
			errors.Is(err, core.ErrUnknownField),
			errors.Is(err, notes.ErrUnknownNote):
			code = fiber.StatusNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			code = fiber.StatusServiceUnavailable
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
