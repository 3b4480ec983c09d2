package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"govassist/app/config"
	"govassist/app/service/catalog"
	"govassist/app/service/linker"
	"govassist/app/service/session"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const shutdownTimeout = 10 * time.Second

// Service exposes the session boundary over HTTP.
type Service struct {
	cfg      config.HTTP
	sessions *session.Service
	linker   *linker.Linker
	validate *validator.Validate
	app      *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di).HTTP,
		do.MustInvoke[*session.Service](di),
		do.MustInvoke[*linker.Linker](di),
	), nil
}

func NewService(cfg config.HTTP, sessions *session.Service, lnk *linker.Linker) *Service {
	s := &Service{
		cfg:      cfg,
		sessions: sessions,
		linker:   lnk,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "govassist",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(fiberrecover.New())

	s.routes()

	return s
}

func (s *Service) routes() {
	s.app.Get("/healthz", s.health)

	v1 := s.app.Group("/api/v1")

	v1.Post("/sessions", s.createSession)
	v1.Post("/sessions/:id/messages", s.postMessage)
	v1.Get("/sessions/:id/messages", s.listMessages)
	v1.Get("/sessions/:id/summary", s.summary)
	v1.Delete("/sessions/:id", s.deleteSession)

	v1.Get("/services/:id/chain", s.serviceChain)
	v1.Get("/services/:id/related", s.relatedServices)
}

// App returns the underlying fiber app.
func (s *Service) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *Service) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("HTTP server listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return oops.In("api").With("addr", s.cfg.Addr).Wrapf(err, "failed to listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return oops.In("api").Wrapf(err, "failed to shut down")
	}

	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	case errors.Is(err, session.ErrNotFound), errors.Is(err, catalog.ErrUnknownService):
		code = fiber.StatusNotFound
		message = err.Error()
	case errors.Is(err, session.ErrCapacity):
		code = fiber.StatusServiceUnavailable
		message = err.Error()
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", code,
			"error", err,
		)
	}

	return c.Status(code).JSON(errorResponse{Error: message})
}
