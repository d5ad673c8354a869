package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server is the HTTP listener for the presentation API.
type Server struct {
	httpServer *http.Server
	hub        *Hub
	logger     *zap.Logger
}

func New(addr string, h *Handler, hub *Hub, logger *zap.Logger) *Server {
	router := http.NewServeMux()
	SetRoutes(router, h)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           logRequests(router, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		hub:    hub,
		logger: logger,
	}
}

// Start listens on the configured address and serves in the background.
// It returns the bound address, useful when addr uses port 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown closes websocket subscribers and drains HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func logRequests(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}
