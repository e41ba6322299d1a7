// Package dashboard serves the read-only JSON dashboard over collected products and runs.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// NewRouter registers the dashboard routes under /api.
func NewRouter(log *slog.Logger, reader repository.Reader) *gin.Engine {
	h := NewHandler(log, reader)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	api := r.Group("/api")
	{
		api.GET("/categories", h.ListCategories)
		api.GET("/categories/:category/products", h.ListProducts)
		api.GET("/categories/:category/report", h.CategoryReport)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/history", h.PriceHistory)
		api.GET("/products/:id/stats", h.ProductStats)
		api.GET("/runs", h.RecentRuns)
	}

	return r
}

type Server struct {
	log *slog.Logger
	srv *http.Server
}

func NewServer(log *slog.Logger, addr string, reader repository.Reader) *Server {
	return &Server{
		log: log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(log, reader),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Run serves until ctx is canceled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	const opn = "dashboard.Run"
	log := s.log.With("op", opn, "addr", s.srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "dashboard listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s: %w", opn, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: failed to shut down: %w", opn, err)
	}

	return nil
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.DebugContext(
			c.Request.Context(),
			"request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
