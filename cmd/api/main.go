package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/filevault/internal/auth"
	"github.com/abduss/filevault/internal/blob"
	"github.com/abduss/filevault/internal/config"
	"github.com/abduss/filevault/internal/events"
	"github.com/abduss/filevault/internal/file"
	"github.com/abduss/filevault/internal/logger"
	"github.com/abduss/filevault/internal/metrics"
	"github.com/abduss/filevault/internal/server"
	"github.com/abduss/filevault/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	zl, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	if err := run(zl); err != nil {
		zl.Fatal("filevault stopped with error", zap.Error(err))
	}
}

func run(zl *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.InitMetrics()
	gin.SetMode(gin.ReleaseMode)

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbPool.Close()

	if cfg.Postgres.Migrate {
		if err := storage.Migrate(ctx, dbPool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Noop{}
	var rabbit *events.RabbitPublisher
	if cfg.Events.AMQPURL != "" {
		rabbit, err = events.DialRabbit(ctx, cfg.Events.AMQPURL, cfg.Events.Exchange, zl)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		publisher = rabbit
	}

	authService := auth.NewService(auth.NewRepository(dbPool), cfg.Auth, zl)
	fileService := file.NewService(file.NewRepository(dbPool), blobs, publisher, zl, cfg.Files)

	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		Log:         zl,
		DB:          dbPool,
		Blobs:       blobs,
		AuthService: authService,
		FileService: fileService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("filevault api listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("blob_backend", cfg.Blob.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if rabbit != nil {
		g.Go(func() error {
			return rabbit.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zl.Info("filevault stopped")
	return nil
}

type blobBackend interface {
	blob.Store
	server.HealthChecker
}

func openBlobStore(ctx context.Context, cfg config.Config) (blobBackend, error) {
	switch cfg.Blob.Backend {
	case config.BlobBackendMinIO:
		client, err := storage.OpenMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("open minio: %w", err)
		}
		return blob.NewMinIOStore(client, cfg.MinIO.Bucket), nil
	default:
		store, err := blob.NewFSStore(cfg.Blob.Root)
		if err != nil {
			return nil, fmt.Errorf("open blob root: %w", err)
		}
		return store, nil
	}
}
