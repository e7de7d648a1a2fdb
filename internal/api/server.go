// Package api exposes backtests over HTTP (JSON) and gRPC: listing
// strategies, running a backtest, and reading stored runs.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/config"
)

// Server hosts the HTTP and gRPC listeners for a Service.
type Server struct {
	svc      *Service
	httpAddr string
	grpcAddr string
	log      *slog.Logger
}

// NewServer creates a Server listening on the addresses in cfg. A zero gRPC
// port disables the gRPC listener.
func NewServer(cfg config.Server, svc *Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		svc:      svc,
		httpAddr: net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		log:      log.With("component", "server"),
	}
	if cfg.GRPCPort > 0 {
		s.grpcAddr = net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.GRPCPort))
	}
	return s
}

// ListenAndServe starts the listeners and blocks until ctx is cancelled or
// a listener fails. On cancellation both servers are shut down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpAddr, err)
	}
	var grpcLn net.Listener
	if s.grpcAddr != "" {
		grpcLn, err = net.Listen("tcp", s.grpcAddr)
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve runs on already open listeners. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	hs := &http.Server{
		Handler:           s.svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	gs := grpc.NewServer()
	NewGRPCServer(s.svc).Register(gs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http listening", "addr", httpLn.Addr().String())
		if err := hs.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if grpcLn != nil {
		g.Go(func() error {
			s.log.Info("grpc listening", "addr", grpcLn.Addr().String())
			if err := gs.Serve(grpcLn); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := hs.Shutdown(shutdownCtx)
		gs.GracefulStop()
		s.log.Info("server stopped")
		return err
	})
	return g.Wait()
}
