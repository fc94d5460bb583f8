// Command notifyhub wires the batching core together with its
// introspection HTTP server and its illustrative processors, reading
// configuration the same way the teacher's cmd/main.go did: a -config flag
// falling back to an environment variable and then a default path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"notifyhub/internal/batcher"
	"notifyhub/internal/classifier"
	"notifyhub/internal/config"
	"notifyhub/internal/httpserver"
	"notifyhub/internal/patternwatch"
	"notifyhub/pkg/sinks"
)

func main() {
	var configFile, patternFile string
	flag.StringVar(&configFile, "config", "", "path to configuration file")
	flag.StringVar(&patternFile, "patterns", "", "path to error-pattern file (hot-reloaded)")
	flag.Parse()

	if configFile == "" {
		if v := os.Getenv("NOTIFYHUB_CONFIG_FILE"); v != "" {
			configFile = v
		} else {
			configFile = "/etc/notifyhub/config.yaml"
		}
	}

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "notifyhub: %v\n", err)
			os.Exit(1)
		}
		logger.WithError(err).Warn("no config file found, using defaults and environment")
		cfg, err = config.Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "notifyhub: %v\n", err)
			os.Exit(1)
		}
	}
	if lvl, lvlErr := logrus.ParseLevel(cfg.LogLevel); lvlErr == nil {
		logger.SetLevel(lvl)
	}

	clsf := classifier.New(logger)

	b := batcher.New(batcher.Config{
		ID:                   cfg.Batcher.ID,
		MaxBatchSize:         cfg.Batcher.MaxBatchSize,
		MaxWaitMs:            cfg.Batcher.MaxWaitMs,
		ConcurrentProcessors: cfg.Batcher.ConcurrentProcessors,
		Singleton:            batcher.Singleton(cfg.Batcher.Singleton),
	}, logger)

	registerSinks(b, cfg, logger)

	var watcher *patternwatch.Watcher
	if patternFile != "" {
		watcher, err = patternwatch.New(patternFile, clsf, logger)
		if err != nil {
			logger.WithError(err).Warn("failed to start pattern watcher, continuing without hot reload")
		} else {
			defer watcher.Close()
		}
	}

	var srv *httpserver.Server
	if cfg.HTTPServer.Enabled {
		srv = httpserver.New(cfg.HTTPServer.Addr, clsf, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.WithError(err).Error("introspection server stopped unexpectedly")
			}
		}()
	}

	logger.WithField("id", b.ID()).Info("notifyhub batcher running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	if srv != nil {
		_ = srv.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b.Destroy(ctx)
}

// registerSinks wires every sink enabled in cfg into the batcher. A sink
// that fails to construct (e.g. no reachable broker) is logged and skipped
// rather than aborting startup, since these processors are illustrative,
// not load-bearing.
func registerSinks(b *batcher.Batcher, cfg *config.Config, logger *logrus.Logger) {
	// Always-on console echo, wrapped with a distinct-message cardinality
	// estimate so the bloom-filter-backed gauge has a real call site.
	console := sinks.NewCardinalitySink(sinks.NewConsoleSink("console"), 100000, 0.01)
	if err := b.AddProcessor(console); err != nil {
		logger.WithError(err).Warn("failed to register console sink")
	}

	if cfg.Webhook.Enabled {
		if err := b.AddProcessor(sinks.NewWebhookSink("webhook", cfg.Webhook, logger)); err != nil {
			logger.WithError(err).Warn("failed to register webhook sink")
		}
	}
	if cfg.Kafka.Enabled {
		sink, err := sinks.NewKafkaSink("kafka", cfg.Kafka)
		if err != nil {
			logger.WithError(err).Warn("failed to construct kafka sink")
		} else if err := b.AddProcessor(sink); err != nil {
			logger.WithError(err).Warn("failed to register kafka sink")
		}
	}
	if cfg.S3Archive.Enabled {
		sink, err := sinks.NewS3ArchiveSink(context.Background(), "s3archive", cfg.S3Archive)
		if err != nil {
			logger.WithError(err).Warn("failed to construct s3 archive sink")
		} else if err := b.AddProcessor(sink); err != nil {
			logger.WithError(err).Warn("failed to register s3 archive sink")
		}
	}
	if cfg.NATS.Enabled {
		sink, err := sinks.NewNATSSink("nats", cfg.NATS)
		if err != nil {
			logger.WithError(err).Warn("failed to construct nats sink")
		} else if err := b.AddProcessor(sink); err != nil {
			logger.WithError(err).Warn("failed to register nats sink")
		}
	}
	if cfg.Audit.Enabled {
		sink, err := sinks.NewAuditSink("audit", cfg.Audit)
		if err != nil {
			logger.WithError(err).Warn("failed to construct audit sink")
		} else if err := b.AddProcessor(sink); err != nil {
			logger.WithError(err).Warn("failed to register audit sink")
		}
	}
}
