package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/form-filler/internal/async"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/ingest"
	"github.com/joseph-ayodele/form-filler/internal/pipeline"
	"github.com/joseph-ayodele/form-filler/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("formfilld.config.failed", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("formfilld.config.invalid", "error", err)
		os.Exit(2)
	}
	if err := cfg.DaemonValidate(); err != nil {
		logger.Error("formfilld.config.invalid", "error", err)
		os.Exit(2)
	}
	addr := cfg.Daemon.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wiring, err := pipeline.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("formfilld.wire.failed", "error", err)
		os.Exit(1)
	}
	defer wiring.Close()

	if wiring.Store != nil {
		if err := repository.HealthCheck(ctx, wiring.Store, 5*time.Second, logger); err != nil {
			logger.Error("formfilld.store.unhealthy", "error", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(cfg.Paths.InboxDir, 0o755); err != nil {
		logger.Error("formfilld.inbox.failed", "inbox", cfg.Paths.InboxDir, "error", err)
		os.Exit(1)
	}

	// gRPC server
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("formfilld.listen.failed", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	queue := async.NewSessionQueue(wiring.Session, logger,
		async.WithWorkers(cfg.Daemon.Workers),
		async.WithQueueSize(cfg.Daemon.QueueSize),
		async.WithJobTimeout(cfg.Daemon.JobTimeout),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Paths.InboxDir},
		InitialScan: true,
		Debounce:    cfg.Daemon.Debounce,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("formfilld.watcher.failed", "inbox", cfg.Paths.InboxDir, "error", err)
		os.Exit(1)
	}

	go func() {
		for path := range events {
			job, err := ingest.LoadJob(path)
			if err != nil {
				logger.Error("formfilld.manifest.invalid", "path", path, "error", err)
				continue
			}
			if job.ReportDir == "" {
				job.ReportDir = cfg.Paths.ReportDir
			}
			if err := queue.Enqueue(ctx, async.NewJob(job, path)); err != nil {
				logger.Warn("formfilld.enqueue.failed", "path", path, "error", err)
			}
		}
	}()
	go func() {
		for err := range errs {
			logger.Warn("formfilld.watcher.error", "error", err)
		}
	}()

	go func() {
		logger.Info("formfilld.grpc.serving", "addr", addr, "inbox", cfg.Paths.InboxDir)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("formfilld.grpc.serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("formfilld.shutdown.start")
	hs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("formfilld.shutdown.done")
}
