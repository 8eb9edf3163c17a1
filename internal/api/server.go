package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/config"
	"github.com/chaininsights/validator/internal/protocol"
	"github.com/chaininsights/validator/internal/validator"
)

type Server struct {
	App     *fiber.App
	cfg     *config.ServerEnvConfig
	querier Querier
	timeout time.Duration
}

// NewServer builds the API. limiter may be nil; timeout bounds each query.
func NewServer(cfg *config.ServerEnvConfig, q Querier, limiter *RateLimiter, timeout time.Duration) *Server {
	app := fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		ErrorHandler:          errHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             cfg.BodySizeLimit,
	})
	app.Use(recover.New())

	s := &Server{App: app, cfg: cfg, querier: q, timeout: timeout}

	app.Get("/health", s.health)
	app.Post(QueryRoute, limiter.Middleware(), s.query)

	return s
}

func errHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	log.Error().Err(err).Int("status_code", code).Str("path", c.Path()).Str("method", c.Method()).Msg("api error")
	return c.Status(code).JSON(newResponse[any](nil, err))
}

func (s *Server) health(c *fiber.Ctx) error {
	status := HealthStatus{Status: "ok"}
	last, err := s.querier.LastRound(c.UserContext())
	if err != nil {
		log.Warn().Err(err).Msg("failed to read last round summary")
	}
	status.LastRound = last
	return c.JSON(status)
}

func (s *Server) query(c *fiber.Ctx) error {
	var req protocol.LlmQueryRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(newResponse[any](nil, fmt.Errorf("invalid body: %w", err)))
	}

	ctx := c.UserContext()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.querier.QueryMiner(ctx, req)
	if err != nil {
		if errors.Is(err, validator.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(newResponse[any](nil, err))
		}
		return err
	}
	return c.JSON(resp)
}

// Serve accepts connections on ln until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	return s.App.Listener(ln)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	log.Info().Str("addr", addr).Msg("api server listening")
	return s.App.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}
