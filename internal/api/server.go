package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/ffrank/pkg/config"
	"github.com/wonny/ffrank/pkg/logger"
)

// Server serves the ranking API until its context is cancelled
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer      *http.Server
	logger          *logger.Logger
	env             string
	shutdownTimeout time.Duration
	listener        net.Listener
}

// New creates an API server; timeouts come from cfg.Server
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout, // lazy 학습 요청 포함
			IdleTimeout:       cfg.Server.IdleTimeout,
		},
		logger:          log,
		env:             cfg.Env,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Listen binds the listen address without serving yet
// Port "0" picks a free port; Addr reports the bound address afterwards.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address after Listen, the configured one before
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Serve handles requests until ctx is cancelled, then drains in-flight
// requests for at most the configured shutdown timeout
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"addr": s.Addr(),
		"env":  s.env,
	}).Info("Starting API server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.WithField("timeout", s.shutdownTimeout.String()).Info("Shutting down API server")

	// 종료 대기는 취소된 ctx 와 분리
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	<-errCh

	return nil
}
