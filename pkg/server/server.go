// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package server exposes the demo's one HTTP surface: POST /api/call
// places an outbound phone call through the provisioned communication
// service. The connection string is read from the vault on every
// request, so a re-provisioned secret takes effect without a restart.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/platform-engineering-labs/dialtone/pkg/provision"
)

// Config configures a Server.
type Config struct {
	// Address is the TCP listen address, e.g. ":8080". Required.
	Address string

	// Secrets reads the connection string from the vault. Required.
	Secrets provision.SecretStore

	// VaultURI and SecretName locate the connection string, normally
	// taken from the provisioning outputs document. Required.
	VaultURI   string
	SecretName string

	// SourceNumber is the default caller id, an E.164 number owned by
	// the communication service. A request may override it.
	SourceNumber string

	// CallbackURI receives mid-call events from the platform.
	CallbackURI string

	// HTTPClient is used for outbound platform requests. If nil,
	// http.DefaultClient is used.
	HTTPClient *http.Client

	// ShutdownTimeout bounds the graceful drain after the context is
	// cancelled. Defaults to 10 seconds if zero.
	ShutdownTimeout time.Duration

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Server serves the calling endpoint on a TCP listener. Serve blocks
// until the context is cancelled and in-flight requests drain.
type Server struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed once the listener is bound and the server is
	// accepting connections.
	ready chan struct{}

	// addr is the resolved listen address, valid after ready closes.
	// It carries the actual port when Address uses port 0.
	addr net.Addr
}

// NewServer creates a server for the calling endpoint. Call Serve to
// start accepting connections.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Address == "" {
		return nil, errors.New("listen address is required")
	}
	if cfg.Secrets == nil {
		return nil, errors.New("secret store is required")
	}
	if cfg.VaultURI == "" || cfg.SecretName == "" {
		return nil, errors.New("vault URI and secret name are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	handler := &Handler{
		secrets:      cfg.Secrets,
		vaultURI:     cfg.VaultURI,
		secretName:   cfg.SecretName,
		sourceNumber: cfg.SourceNumber,
		callbackURI:  cfg.CallbackURI,
		httpClient:   cfg.HTTPClient,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/call", handler.HandleCall)
	mux.HandleFunc("GET /healthz", handler.HandleHealth)

	return &Server{
		address:         cfg.Address,
		handler:         mux,
		logger:          logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}, nil
}

// Ready returns a channel that is closed once the server is accepting
// connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the resolved listen address. Only valid after Ready()
// is closed.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Serve accepts connections until ctx is cancelled, then stops
// accepting and waits up to ShutdownTimeout for active requests.
func (s *Server) Serve(ctx context.Context) error {
	// Bind before entering the serve loop so Addr carries the
	// resolved port when readiness is signalled.
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("calling endpoint listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("calling endpoint shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	s.logger.Info("calling endpoint stopped")
	return nil
}
