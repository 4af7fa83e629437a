// Package bootstrap собирает зависимости приложения для HTTP сервера и Lambda.
package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dreschagin/photo-gallery/internal/application/port"
	"github.com/dreschagin/photo-gallery/internal/application/usecase"
	"github.com/dreschagin/photo-gallery/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/photo-gallery/internal/infrastructure/observability/metrics"
	s3storage "github.com/dreschagin/photo-gallery/internal/infrastructure/storage/s3"
	httpInterface "github.com/dreschagin/photo-gallery/internal/interfaces/http"
	"github.com/dreschagin/photo-gallery/internal/interfaces/http/handler"
	"github.com/dreschagin/photo-gallery/internal/interfaces/lambda"
	"github.com/dreschagin/photo-gallery/pkg/config"
	"github.com/dreschagin/photo-gallery/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type Options struct {
	// Lambda отключает фоновые flush-циклы: буферы сбрасываются после каждого вызова.
	Lambda bool
	// StaticFiles раздаются с корня, если заданы.
	StaticFiles fs.FS
}

type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Storage *s3storage.PhotoStorage
	Handler http.Handler

	cloudWatchMetrics *cloudwatch.MetricsPublisher
	cloudWatchLogs    *cloudwatch.LogsPublisher
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: log}

	// 1. Наблюдаемость: CloudWatch (опционально) и Prometheus
	flushInterval := func(d time.Duration) time.Duration {
		if opts.Lambda {
			return -1
		}
		return d
	}

	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, err := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			BufferSize:      cfg.CloudWatch.LogsBufferSize,
			FlushInterval:   flushInterval(cfg.CloudWatch.LogsFlushInterval),
			AutoCreate:      cfg.CloudWatch.LogsAutoCreate,
		})
		if err != nil {
			return nil, fmt.Errorf("init cloudwatch logs publisher: %w", err)
		}
		app.cloudWatchLogs = logsPublisher
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher enabled", "log_group", cfg.CloudWatch.LogGroupName)
	}

	publishers := metrics.MultiPublisher{}
	if cfg.CloudWatch.MetricsEnabled {
		metricsPublisher, err := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.MetricsNamespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
			BufferSize:        cfg.CloudWatch.MetricsBufferSize,
			FlushInterval:     flushInterval(cfg.CloudWatch.MetricsFlushInterval),
			StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
		})
		if err != nil {
			return nil, fmt.Errorf("init cloudwatch metrics publisher: %w", err)
		}
		app.cloudWatchMetrics = metricsPublisher
		publishers = append(publishers, metricsPublisher)
		log.Info("CloudWatch metrics publisher enabled", "namespace", cfg.CloudWatch.MetricsNamespace)
	}

	var routerOpts []httpInterface.RouterOption
	if cfg.Metrics.PrometheusEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		publishers = append(publishers, metrics.NewPublisher(registry))
		routerOpts = append(routerOpts, httpInterface.WithPrometheus(metrics.New(registry), registry))
	}
	if opts.StaticFiles != nil {
		routerOpts = append(routerOpts, httpInterface.WithStaticFiles(opts.StaticFiles))
	}

	// 2. Infrastructure: S3
	storage, err := s3storage.NewPhotoStorage(ctx, s3storage.Config{
		Bucket:          cfg.Photos.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
		PageSize:        cfg.Photos.PageSize,
		MaxAttempts:     cfg.S3.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("init photo storage: %w", err)
	}
	app.Storage = storage
	log.Info("Photo storage configured", "bucket", storage.Bucket(), "prefix", cfg.Photos.KeyPrefix)

	// 3. Application: use case
	var metricsPublisher port.MetricsPublisher
	if len(publishers) > 0 {
		metricsPublisher = publishers
	}
	listPhotosUC, err := usecase.NewListPhotosUseCase(storage, metricsPublisher, usecase.ListPhotosConfig{
		KeyPrefix:       cfg.Photos.KeyPrefix,
		URLExpiry:       cfg.Photos.URLExpiry,
		SignConcurrency: cfg.Photos.SignConcurrency,
		MaxObjects:      cfg.Photos.MaxObjects,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init list photos use case: %w", err)
	}

	// 4. Interfaces: handlers и router
	photoAPIHandler := handler.NewPhotoAPIHandler(listPhotosUC, log)
	healthHandler := handler.NewHealthHandler(storage, readinessTimeout, log)
	router := httpInterface.NewRouter(photoAPIHandler, healthHandler, cfg.Security, log, routerOpts...)
	app.Handler = router.Setup()

	return app, nil
}

// Flushers возвращает буферизующие publishers; logs идут последними,
// чтобы попали предупреждения от сброса метрик.
func (a *App) Flushers() []lambda.Flusher {
	flushers := make([]lambda.Flusher, 0, 2)
	if a.cloudWatchMetrics != nil {
		flushers = append(flushers, a.cloudWatchMetrics)
	}
	if a.cloudWatchLogs != nil {
		flushers = append(flushers, a.cloudWatchLogs)
	}
	return flushers
}

// Close сбрасывает и останавливает publishers.
func (a *App) Close(ctx context.Context) {
	if a.cloudWatchMetrics != nil {
		a.Logger.Info("Flushing CloudWatch metrics buffer...")
		if err := a.cloudWatchMetrics.Close(ctx); err != nil {
			a.Logger.Error("Failed to close CloudWatch metrics publisher", err)
		}
	}
	if a.cloudWatchLogs != nil {
		a.Logger.SetLogPublisher(nil)
		if err := a.cloudWatchLogs.Close(ctx); err != nil {
			a.Logger.Error("Failed to close CloudWatch logs publisher", err)
		}
	}
	_ = a.Logger.Sync()
}
