// Package server runs the battle server's long-lived services: it starts them
// together, stops them in reverse order on a signal or the first failure, and
// bounds shutdown by a grace period.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultGrace bounds the whole shutdown when no grace period is configured.
const DefaultGrace = 10 * time.Second

// Service is a long-running component.
type Service interface {
	// Serve blocks until ctx is cancelled or the service fails. Returning nil
	// after cancellation is a clean exit.
	Serve(ctx context.Context) error
	// Shutdown releases the service's resources. It must return once ctx is
	// done even if draining is incomplete.
	Shutdown(ctx context.Context) error
}

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order.
type Lifecycle struct {
	logger   *zap.Logger
	grace    time.Duration
	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle whose shutdown is bounded by grace.
//
// Precondition: logger must be non-nil. A grace of 0 or less means DefaultGrace.
func NewLifecycle(logger *zap.Logger, grace time.Duration) *Lifecycle {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Lifecycle{logger: logger, grace: grace}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run serves every registered service until ctx is cancelled, SIGINT or
// SIGTERM arrives, or a service fails.
//
// Postcondition: every service has been shut down. Returns the first service
// failure, or nil for a requested shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	var (
		wg      sync.WaitGroup
		failMu  sync.Mutex
		failure error
	)
	for _, ns := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			err := ns.service.Serve(ctx)
			if err == nil || (ctx.Err() != nil && errors.Is(err, context.Canceled)) {
				return
			}
			l.logger.Error("service failed",
				zap.String("service", ns.name),
				zap.Error(err),
				zap.Duration("uptime", time.Since(svcStart)),
			)
			failMu.Lock()
			if failure == nil {
				failure = fmt.Errorf("service %s: %w", ns.name, err)
			}
			failMu.Unlock()
			cancel()
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	<-ctx.Done()
	l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), l.grace)
	defer cancelShutdown()
	l.shutdown(shutdownCtx, services)

	served := make(chan struct{})
	go func() {
		wg.Wait()
		close(served)
	}()
	select {
	case <-served:
	case <-shutdownCtx.Done():
		l.logger.Warn("services still running after grace period", zap.Duration("grace", l.grace))
	}

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	failMu.Lock()
	defer failMu.Unlock()
	return failure
}

func (l *Lifecycle) shutdown(ctx context.Context, services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		if err := ns.service.Shutdown(ctx); err != nil {
			l.logger.Warn("service shutdown incomplete",
				zap.String("service", ns.name),
				zap.Error(err),
			)
			continue
		}
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
