package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/bills-extractor/internal/async"
	"github.com/joseph-ayodele/bills-extractor/internal/bills"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/core"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/export"
	"github.com/joseph-ayodele/bills-extractor/internal/httpapi"
	"github.com/joseph-ayodele/bills-extractor/internal/ingest"
	"github.com/joseph-ayodele/bills-extractor/internal/repository"
	svc "github.com/joseph-ayodele/bills-extractor/internal/server"
)

func main() {
	// structured logger with message and variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := svc.ConnectDB(ctx, cfg.Database, cfg.Database.AutoMigrate, logger)
	if err != nil {
		os.Exit(1)
	}
	defer svc.CloseDB(store, logger)

	if err := svc.PingDB(ctx, store, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	billRepo := repository.NewBillRepository(store.Driver, logger)
	stages, err := core.NewStages(cfg, billRepo, logger)
	if err != nil {
		logger.Error("failed to build extraction stages", "error", err)
		os.Exit(1)
	}

	queue := async.NewProcessorQueue(stages.Processor, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
		async.WithOnDone(func(job async.Job, doc *entity.BillDocument, err error) {
			if err == nil && doc != nil {
				logger.Info("bill stored", "upload_id", doc.UploadID, "status", doc.Status, "items", doc.ItemCount(), "grand_total", doc.GrandTotal)
			}
		}),
	)

	exporter := export.NewService(billRepo, logger)
	billService := bills.NewService(billRepo, exporter, queue, logger)

	// gRPC server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(svc.UnaryLoggingInterceptor(logger)))
	svc.RegisterBillServiceServer(grpcServer, svc.NewBillServer(billService, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.BillServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("bills-extractor grpc listening", "addr", cfg.Server.GRPCAddr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	// HTTP API
	gin.SetMode(gin.ReleaseMode)
	api := httpapi.NewHandler(billService, cfg.Ingest.UploadDir, func(ctx context.Context) error {
		return store.HealthCheck(ctx, 2*time.Second)
	}, logger)
	httpServer := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: api.Router(), ReadHeaderTimeout: 10 * time.Second}
	logger.Info("bills-extractor http listening", "addr", cfg.Server.HTTPAddr)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	if cfg.Ingest.WatchDir != "" {
		go watch(ctx, cfg.Ingest.WatchDir, billService, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.ProcessTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

// watch queues every file that settles in dir until ctx ends.
func watch(ctx context.Context, dir string, billService *bills.Service, logger *slog.Logger) {
	files, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    750 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "dir", dir, "error", err)
		return
	}
	logger.Info("watching directory", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		case path, ok := <-files:
			if !ok {
				return
			}
			if _, err := billService.IngestFile(ctx, path); err != nil {
				logger.Warn("watched file not queued", "path", path, "error", err)
			}
		}
	}
}

func logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(getenv("LOG_LEVEL", "INFO"))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
