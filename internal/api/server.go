package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Server serves the snapshot API.
type Server struct {
	router *gin.Engine
	srv    *http.Server
}

// NewServer creates a server on addr with routes bound to handlers.
func NewServer(addr string, handlers *Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router: router,
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.SetupRoutes(handlers)
	return s
}

// SetupRoutes registers all routes.
func (s *Server) SetupRoutes(h *Handlers) {
	s.router.GET("/health", h.HealthCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/stocks", h.GetStocks)
		v1.GET("/snapshot", h.GetSnapshot)
		v1.POST("/refresh", h.Refresh)

		v1.GET("/market", h.GetMarket)
		v1.PUT("/market", h.UpdateMarket)

		v1.PUT("/polling/interval", h.SetInterval)
		v1.POST("/polling/start", h.StartPolling)
		v1.POST("/polling/stop", h.StopPolling)

		v1.GET("/history", h.GetHistory)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] api server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[INFO] shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}
