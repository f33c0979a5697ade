// Package runner drives one session of the backup service: it applies the
// active workspace's settings, serves the optional HTTP API and takes the
// exit backup on shutdown.
package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/services/backup"
	"github.com/rs/zerolog"
)

// DefaultShutdownTimeout bounds the HTTP shutdown, the exit backup and the
// wait for an in-flight capture.
const DefaultShutdownTimeout = 2 * time.Minute

// Service defines the interface for the session runner.
type Service interface {
	Run(ctx context.Context) error
}

// Impl implements the runner Service interface.
type Impl struct {
	backupSvc       backup.Service
	handler         http.Handler
	listen          string
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// New creates a runner. An empty listen address disables the HTTP server.
func New(logger zerolog.Logger, backupSvc backup.Service, handler http.Handler, listen string) *Impl {
	return NewWithTimeout(logger, backupSvc, handler, listen, DefaultShutdownTimeout)
}

// NewWithTimeout creates a runner with a custom shutdown timeout (for testing).
func NewWithTimeout(
	logger zerolog.Logger,
	backupSvc backup.Service,
	handler http.Handler,
	listen string,
	shutdownTimeout time.Duration,
) *Impl {
	return &Impl{
		backupSvc:       backupSvc,
		handler:         handler,
		listen:          listen,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Run blocks until ctx is cancelled or the HTTP server fails.
func (s *Impl) Run(ctx context.Context) error {
	startTime := time.Now()

	if err := s.backupSvc.OnWorkspaceOpened(ctx); err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}

	st := s.backupSvc.Status()
	s.logger.Info().
		Bool("auto_backup", st.Running).
		Dur("interval", st.Interval).
		Str("next_backup_in", s.backupSvc.FormatTimeUntilNextBackup()).
		Msg("backup service started")

	var srv *http.Server
	serveErr := make(chan error, 1)
	if s.listen != "" && s.handler != nil {
		ln, err := net.Listen("tcp", s.listen)
		if err != nil {
			s.backupSvc.StopAutoBackup()
			return fmt.Errorf("listening on %s: %w", s.listen, err)
		}
		srv = &http.Server{
			Handler:           s.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("http api listening")
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http api: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("http api shutdown incomplete")
		}
	}

	s.backupSvc.StopAutoBackup()
	s.backupSvc.BackupOnWorkspaceExitIfNeeded(shutdownCtx)
	if err := s.backupSvc.WaitForIdle(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("capture still in flight at shutdown")
	}

	s.logger.Info().
		Dur("uptime", time.Since(startTime)).
		Msg("backup service stopped")

	return runErr
}
