// Command server runs the Data API over HTTP and gRPC.
//
// Configuration comes from an optional YAML file (-config), the environment
// (DATABASE_URL, LOG_LEVEL, DATAAPI_HTTP_ADDR, DATAAPI_GRPC_ADDR) and flags,
// in increasing order of precedence. Run with -h for the flag list.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/SimonWaldherr/dataapi/internal/config"
	"github.com/SimonWaldherr/dataapi/internal/driver"
	"github.com/SimonWaldherr/dataapi/internal/engine"
	"github.com/SimonWaldherr/dataapi/internal/health"
	"github.com/SimonWaldherr/dataapi/internal/logging"
	"github.com/SimonWaldherr/dataapi/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() // flushes buffer, if any

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	pool, err := driver.Open(openCtx, cfg.DatabaseURL, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	monitor, err := health.NewMonitor(pool, cfg.HealthCheck, logger.Named("health"))
	if err != nil {
		return err
	}
	monitor.Start()
	defer monitor.Stop()

	svc := server.NewService(engine.NewExecutor(pool, logger.Named("engine")), logger.Named("service"))
	errc := make(chan error, 2)

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.NewHTTPHandler(svc, monitor, logger.Named("http")),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http: %w", err)
			}
		}()
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			shutdown(httpSrv, nil, cfg.ShutdownTimeout, logger)
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = server.NewGRPCServer(svc, logger.Named("grpc"))
		go func() {
			logger.Info("gRPC listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				errc <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("grace", cfg.ShutdownTimeout))
	case err := <-errc:
		logger.Error("listener failed", zap.Error(err))
		shutdown(httpSrv, grpcSrv, cfg.ShutdownTimeout, logger)
		return err
	}

	shutdown(httpSrv, grpcSrv, cfg.ShutdownTimeout, logger)
	return nil
}

// shutdown lets in-flight requests finish within grace, then cuts them off.
func shutdown(httpSrv *http.Server, grpcSrv *grpc.Server, grace time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
	}
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warn("HTTP shutdown incomplete", zap.Error(err))
		}
	}
}
