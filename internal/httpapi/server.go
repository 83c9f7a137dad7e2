// Package httpapi exposes the search service over HTTP.
package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/park285/gaia-game-search/internal/search"
	"github.com/park285/gaia-game-search/pkg/searchdto"
)

const defaultIngestRateLimit = 20 // req/sec

type Options struct {
	DevMode bool
	// StoreName is reported by the health endpoint.
	StoreName string
	// IngestRateLimit caps ingests per client IP per second; 0 means the default.
	IngestRateLimit int
	// ProxyHeader names the header carrying the client IP. It is read only
	// for requests whose peer address is in TrustedProxies.
	ProxyHeader    string
	TrustedProxies []string
}

type Handler struct {
	svc    *search.Service
	opts   Options
	logger *zap.Logger
}

// NewApp builds the fiber application with every route registered.
func NewApp(svc *search.Service, opts Options, logger *zap.Logger) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{svc: svc, opts: opts, logger: logger}

	cfg := fiber.Config{
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
	}
	if len(opts.TrustedProxies) > 0 {
		cfg.ProxyHeader = opts.ProxyHeader
		if cfg.ProxyHeader == "" {
			cfg.ProxyHeader = fiber.HeaderXForwardedFor
		}
		cfg.EnableTrustedProxyCheck = true
		cfg.TrustedProxies = opts.TrustedProxies
	}
	app := fiber.New(cfg)

	app.Use(recover.New())
	app.Use(requestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", h.Health)

	api := app.Group("/api/v1")
	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Get("/search", h.Search)
	api.Get("/players", h.Players)
	api.Get("/games/:tableId", h.GetGame)

	maxReq := opts.IngestRateLimit
	if maxReq <= 0 {
		maxReq = defaultIngestRateLimit
		if opts.DevMode {
			maxReq *= 10
		}
	}
	// Keyed on c.IP(), which honours ProxyHeader only behind a trusted proxy.
	api.Post("/games", limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(searchdto.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    searchdto.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d ingests per second allowed", maxReq),
			})
		},
	}), h.Ingest)

	return app
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("http_request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)))
		return err
	}
}

func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(searchdto.ErrorResponse{
				Error:   "unsupported media type",
				Code:    searchdto.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := searchdto.ErrorResponse{
		Error: "internal server error",
		Code:  searchdto.ErrInternalError,
	}
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message
		switch code {
		case fiber.StatusNotFound:
			response.Code = searchdto.ErrNotFound
		case fiber.StatusBadRequest:
			response.Code = searchdto.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = searchdto.ErrRateLimitExceeded
		}
	}
	return c.Status(code).JSON(response)
}
