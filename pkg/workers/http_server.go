package workers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dskvich/pmc-assistant/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type Route interface {
	Register(e *echo.Echo)
}

type httpServer struct {
	addr string
	echo *echo.Echo
}

// NewHTTPServer serves the chat API, the web widget from staticDir and
// operational endpoints.
func NewHTTPServer(addr, staticDir string, routes ...Route) *httpServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))
	e.Use(requestID)

	e.GET("/", func(c echo.Context) error {
		return c.File(filepath.Join(staticDir, "index.html"))
	})
	e.Static("/static", staticDir)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	for _, r := range routes {
		r.Register(e)
	}

	return &httpServer{addr: addr, echo: e}
}

func (s *httpServer) Name() string { return "http_server" }

func (s *httpServer) Handler() http.Handler { return s.echo }

func (s *httpServer) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", s.Name(), "addr", s.addr)
	defer slog.Info("Worker stopped", "name", s.Name())

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down http server", logger.Err(err))
	}
	return nil
}

// requestID tags the request context so every log line of a request carries the same id.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)

		req := c.Request()
		c.SetRequest(req.WithContext(logger.ContextWithRequestID(req.Context(), id)))
		return next(c)
	}
}
