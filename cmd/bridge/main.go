package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"telldus-bridge/internal/adapters/input/http"
	"telldus-bridge/internal/adapters/observability"
	"telldus-bridge/internal/adapters/output/influxdb"
	"telldus-bridge/internal/adapters/output/mqtt"
	"telldus-bridge/internal/adapters/output/persistence"
	"telldus-bridge/internal/adapters/output/telldus"
	"telldus-bridge/internal/domain/service"
	"telldus-bridge/internal/logging"
	"telldus-bridge/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "telldus-bridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := persistence.NewYAMLConfigRepository(configPath).Get(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("starting telldus bridge", "mode", cfg.Transport.Mode, "config", configPath)

	transport, err := telldus.New(cfg.Transport, logger.With("component", "transport"))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewPromMetrics(reg)

	var listeners []ports.StateListener
	if cfg.MQTT.Enabled {
		pub, err := mqtt.Connect(cfg.MQTT, logger.With("component", "mqtt"))
		if err != nil {
			return err
		}
		defer pub.Close()
		listeners = append(listeners, pub)
	}
	if cfg.InfluxDB.Enabled {
		w, err := influxdb.Connect(cfg.InfluxDB, logger.With("component", "influxdb"))
		if err != nil {
			return err
		}
		defer w.Close()
		listeners = append(listeners, w)
	}

	svc := service.NewService(transport, persistence.NewFileSnapshotStore(cfg.Cache.Dir), service.Options{
		DeviceTTL: cfg.Cache.DeviceTTL,
		SensorTTL: cfg.Cache.SensorTTL,
		Logger:    logger.With("component", "cache"),
		Metrics:   metrics,
		Listeners: listeners,
	})
	// Runs before the listeners close, so queued events still reach them.
	defer svc.Close()

	poller := service.NewPoller(svc.Refresher(), cfg.Poll.Interval, logger.With("component", "poller"))
	go poller.Run(ctx)

	server := http.NewServer(svc, logger.With("component", "http"),
		http.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	if err := server.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
		return err
	}

	logger.Info("telldus bridge stopped")
	return nil
}
