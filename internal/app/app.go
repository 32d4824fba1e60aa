// Package app assembles the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"assetledger/internal/archive"
	"assetledger/internal/assistant"
	"assetledger/internal/config"
	"assetledger/internal/core"
	"assetledger/internal/httpapi"
	"assetledger/internal/infra/objstore/s3"
	"assetledger/internal/notify"
	"assetledger/internal/platform/logger"
)

// App owns every long-lived collaborator built from a Config.
type App struct {
	cfg      config.Config
	log      *logger.Logger
	Service  *core.Service
	Exporter *archive.Exporter
	Registry *prometheus.Registry
	Router   *gin.Engine
	closers  []io.Closer
}

// Build opens storage, the archive and the optional Redis publisher and wires
// them into the service and the HTTP router. Close releases what Build opened
// even when Build fails part way.
func Build(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	a := &App{cfg: cfg, log: log, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recorder, err := core.NewPrometheusMetricsRecorder(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(ctx, core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, engine, nil)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	opts := []core.Option{
		core.WithLogger(log),
		core.WithMetricsRecorder(recorder),
		core.WithMaxAttempts(cfg.Retry.MaxAttempts),
	}
	if cfg.Redis.Addr != "" {
		pub, err := notify.NewRedisPublisher(ctx, notify.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub)
		opts = append(opts, core.WithPublisher(pub))
		log.Info("redis publisher enabled", "addr", cfg.Redis.Addr, "channel", pub.Channel())
	}
	a.Service = core.NewService(store, opts...)

	objects, err := archive.Open(ctx, archive.Config{
		Driver: cfg.Archive.Driver,
		Root:   cfg.Archive.Root,
		S3: s3.Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Region:    cfg.Archive.S3.Region,
			Prefix:    cfg.Archive.S3.Prefix,
			Endpoint:  cfg.Archive.S3.Endpoint,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			PathStyle: cfg.Archive.S3.UsePathStyle,
		},
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a.Exporter = archive.NewExporter(a.Service, objects)

	var chat *assistant.Service
	if cfg.Assistant.APIKey != "" {
		client := assistant.NewClient(assistant.ClientConfig{
			BaseURL:     cfg.Assistant.BaseURL,
			APIKey:      cfg.Assistant.APIKey,
			Model:       cfg.Assistant.Model,
			Temperature: cfg.Assistant.Temperature,
			Timeout:     cfg.Assistant.Timeout,
			RetryCount:  cfg.Assistant.RetryCount,
		})
		chat = assistant.NewService(a.Service, client, log)
	} else {
		log.Warn("assistant disabled: no API key configured")
	}

	a.Router = httpapi.NewRouter(httpapi.RouterConfig{
		Service:   a.Service,
		Assistant: chat,
		Exporter:  a.Exporter,
		Logger:    log,
		Gatherer:  a.Registry,
	})
	return a, nil
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts it
// down within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: a.Router}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases storage handles and the Redis client.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
