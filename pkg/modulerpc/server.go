package modulerpc

import (
	"errors"
	"fmt"
	"net"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/pkg/signature"
)

// NewServer creates a module server that verifies request signatures with verifier.
func NewServer(serverConfig *ServerConfig, verifier signature.SignatureVerifier) *Server {
	if serverConfig == nil {
		serverConfig = &ServerConfig{}
	}
	if serverConfig.Host == "" {
		serverConfig.Host = DefaultServerHost
	}
	if serverConfig.Port == 0 {
		serverConfig.Port = DefaultServerPort
	}
	if serverConfig.BodyLimit == 0 {
		serverConfig.BodyLimit = DefaultBodyLimit
	}
	if verifier == nil {
		verifier = signature.NewVerifier()
	}

	app := fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             serverConfig.BodyLimit,
	})

	app.Use(recover.New())

	whitelistedRoutes := []string{"/health"}
	app.Use(ZstdMiddleware(whitelistedRoutes))
	app.Use(SignatureMiddleware(verifier, whitelistedRoutes))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(createResponse(map[string]string{"status": "ok"}, nil))
	})

	return &Server{
		App:    app,
		config: serverConfig,
	}
}

func fiberErrHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	log.Error().
		Err(err).
		Int("status_code", code).
		Str("path", ctx.Path()).
		Str("method", ctx.Method()).
		Msg("module server error")

	return ctx.Status(code).JSON(createResponse(map[string]any{}, err))
}

// ServeMethod registers handler under POST /<method>.
func ServeMethod[Req, Resp any](s *Server, method string, handler RouterHandler[Req, Resp]) {
	route := "/" + method
	s.App.Post(route, func(c *fiber.Ctx) error {
		var req Request[Req]
		if err := sonic.Unmarshal(c.Body(), &req); err != nil {
			log.Error().Err(err).Str("route", route).Msg("Failed to parse request body")
			return c.Status(fiber.StatusBadRequest).JSON(createResponse(map[string]any{}, err))
		}

		if s.config.OwnKey != "" && req.TargetKey != s.config.OwnKey {
			err := fmt.Errorf("request addressed to %s, this module is %s", req.TargetKey, s.config.OwnKey)
			return c.Status(fiber.StatusForbidden).JSON(createResponse(map[string]any{}, err))
		}

		resp, err := handler(c, req.Params)
		if err != nil {
			log.Error().Err(err).Str("route", route).Msg("Handler returned error")
			var zero Resp
			return c.Status(fiber.StatusInternalServerError).JSON(createResponse(zero, err))
		}

		return c.JSON(createResponse(resp, nil))
	})
}

// Serve accepts connections on ln until the listener is closed.
func (s *Server) Serve(ln net.Listener) error {
	return s.App.Listener(ln)
}

func (s *Server) Start() error {
	return s.App.Listen(fmt.Sprintf("%s:%d", s.config.Host, s.config.Port))
}

func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}
