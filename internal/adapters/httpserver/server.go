// Package httpserver serves health, status and Prometheus endpoints for the
// live loop.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
)

const (
	defaultIntentLimit = 20
	maxIntentLimit     = 500
)

// PriceSource returns the latest streamed price.
type PriceSource interface {
	Latest() (price float64, at time.Time, ok bool)
}

// Config holds the server dependencies. Journal, Prices and Gatherer are optional.
type Config struct {
	Addr     string
	Symbol   string
	Paper    bool
	Logger   ports.Logger
	Journal  ports.OrderJournal
	Prices   PriceSource
	Gatherer prometheus.Gatherer // Defaults to prometheus.DefaultGatherer
}

// Server wraps an Echo instance.
type Server struct {
	echo *echo.Echo
	cfg  Config
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Symbol          string     `json:"symbol"`
	Paper           bool       `json:"paper"`
	LatestPrice     *float64   `json:"latestPrice,omitempty"`
	PriceTime       *time.Time `json:"priceTime,omitempty"`
	LastBarOpenTime *time.Time `json:"lastBarOpenTime,omitempty"`
}

// IntentResponse is one journaled order intent.
type IntentResponse struct {
	ID            int64     `json:"id"`
	ClientOrderID string    `json:"clientOrderId"`
	Side          string    `json:"side"`
	Notional      float64   `json:"notional"`
	BarOpenTime   time.Time `json:"barOpenTime"`
	CreatedAt     time.Time `json:"createdAt"`
	Paper         bool      `json:"paper"`
	Status        string    `json:"status"`
}

// New creates a server with its routes registered.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for HTTP server", ports.ErrConfigurationError)
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: listen address is required", ports.ErrConfigurationError)
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogging(cfg.Logger))

	s := &Server{echo: e, cfg: cfg}
	e.GET("/healthz", s.health)
	e.GET("/status", s.status)
	e.GET("/intents", s.intents)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	return s, nil
}

// Start listens in the background until Stop is called.
func (s *Server) Start() {
	go func() {
		s.cfg.Logger.Info(context.Background(), "HTTP server listening", map[string]interface{}{"addr": s.cfg.Addr})
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.cfg.Logger.Error(context.Background(), err, "HTTP server failed")
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.cfg.Logger.Info(ctx, "HTTP server stopped")
	return nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(c echo.Context) error {
	ctx := c.Request().Context()
	resp := StatusResponse{Symbol: s.cfg.Symbol, Paper: s.cfg.Paper}

	if s.cfg.Prices != nil {
		if price, at, ok := s.cfg.Prices.Latest(); ok {
			resp.LatestPrice = &price
			resp.PriceTime = &at
		}
	}
	if s.cfg.Journal != nil {
		last, err := s.cfg.Journal.LastBarOpenTime(ctx, s.cfg.Symbol)
		if err != nil {
			s.cfg.Logger.Error(ctx, err, "Status lookup failed", map[string]interface{}{"symbol": s.cfg.Symbol})
			return echo.NewHTTPError(http.StatusInternalServerError, "journal unavailable")
		}
		if !last.IsZero() {
			resp.LastBarOpenTime = &last
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) intents(c echo.Context) error {
	if s.cfg.Journal == nil {
		return echo.NewHTTPError(http.StatusNotFound, "order journal disabled")
	}
	limit := defaultIntentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxIntentLimit {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxIntentLimit))
		}
		limit = n
	}

	ctx := c.Request().Context()
	found, err := s.cfg.Journal.FindBySymbol(ctx, s.cfg.Symbol, limit)
	if err != nil {
		s.cfg.Logger.Error(ctx, err, "Intent lookup failed", map[string]interface{}{"symbol": s.cfg.Symbol})
		return echo.NewHTTPError(http.StatusInternalServerError, "journal unavailable")
	}
	out := make([]IntentResponse, 0, len(found))
	for _, in := range found {
		out = append(out, toIntentResponse(in))
	}
	return c.JSON(http.StatusOK, out)
}

func toIntentResponse(in *domain.OrderIntent) IntentResponse {
	return IntentResponse{
		ID:            in.ID,
		ClientOrderID: in.ClientOrderID,
		Side:          string(in.Side),
		Notional:      in.NotionalAmount,
		BarOpenTime:   in.BarOpenTime,
		CreatedAt:     in.CreatedAt,
		Paper:         in.Paper,
		Status:        in.Status,
	}
}

func requestLogging(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Debug(c.Request().Context(), "HTTP request", map[string]interface{}{
				"method":   c.Request().Method,
				"path":     c.Path(),
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
			})
			return nil
		}
	}
}
