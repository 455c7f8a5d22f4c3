package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// GRPCService serves a gRPC server on a listener.
type GRPCService struct {
	server *grpc.Server
	lis    net.Listener
	addr   string
	logger *zap.Logger
}

// NewGRPCService serves srv on addr once the lifecycle starts.
func NewGRPCService(srv *grpc.Server, addr string, logger *zap.Logger) *GRPCService {
	return &GRPCService{server: srv, addr: addr, logger: logger}
}

// NewGRPCServiceOn serves srv on an already open listener.
func NewGRPCServiceOn(srv *grpc.Server, lis net.Listener, logger *zap.Logger) *GRPCService {
	return &GRPCService{server: srv, lis: lis, logger: logger}
}

// Serve listens if needed and blocks in grpc.Server.Serve.
func (g *GRPCService) Serve(ctx context.Context) error {
	lis := g.lis
	if lis == nil {
		var err error
		lis, err = (&net.ListenConfig{}).Listen(ctx, "tcp", g.addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", g.addr, err)
		}
	}
	g.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown drains in-flight calls, then force-closes streams still open
// when ctx is done.
func (g *GRPCService) Shutdown(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		g.server.Stop()
		<-drained
		return fmt.Errorf("graceful stop: %w", ctx.Err())
	}
}

// TickService calls a function on a fixed interval until cancelled, then
// runs an optional cleanup on shutdown.
type TickService struct {
	Interval time.Duration
	Tick     func(ctx context.Context)
	Cleanup  func()
}

// Serve calls Tick every Interval.
//
// Precondition: Interval > 0 and Tick non-nil.
func (t *TickService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Shutdown runs Cleanup.
func (t *TickService) Shutdown(context.Context) error {
	if t.Cleanup != nil {
		t.Cleanup()
	}
	return nil
}
