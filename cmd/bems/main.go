package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/api"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/catalog"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/influxdb"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/kafka"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/logging"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/metrics"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/monitoring"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/mqtt"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/recorder"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/simulator"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("fatal error", "error", err)
	}
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	now := func() time.Time { return time.Now().In(loc) }

	rooms, err := catalog.Load(cfg.Simulation.RoomConfigPath, cfg.Simulation.SchedulesPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	m := metrics.New()
	rng := simulator.NewRand(cfg.Simulation.Seed)
	occupancy, err := simulator.NewOccupancy(rooms.IDs(), rng,
		simulator.WithLogger(logger.With("component", "occupancy")),
		simulator.WithRefreshHook(m.OccupancyRefreshed),
	)
	if err != nil {
		return err
	}
	building := simulator.NewBuilding(rooms, occupancy, rng)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flags, closeFlags, err := openMonitoring(ctx, cfg.Monitoring)
	if err != nil {
		return err
	}
	defer closeFlags()

	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	sinks, closeSinks, err := openSinks(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	logger.Info("building energy monitor starting",
		"rooms", rooms.Len(),
		"scheduled", rooms.ScheduledRooms(),
		"record_interval", cfg.Recorder.Interval,
		"addr", cfg.Server.Addr,
	)

	rec := recorder.New(building, flags, cfg.Recorder.Interval, logger.Logger, sinks,
		recorder.WithClock(now),
		recorder.WithMetrics(m),
	)
	// Record initial data
	if _, err := rec.RecordOnce(ctx); err != nil {
		logger.Error("error recording initial data", "error", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.Run(ctx)
	}()

	server := api.NewServer(building, flags, api.Config{
		CORSOrigins:  cfg.Server.CORSOrigins,
		LiveInterval: cfg.Server.LiveInterval,
		Location:     loc,
	}, logger.Logger, api.WithMetrics(m), api.WithReadings(store))

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received termination signal, shutting down")
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("http server: %w", err)
	}

	// Set a deadline for clean shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}

func openMonitoring(ctx context.Context, cfg config.MonitoringConfig) (monitoring.Store, func(), error) {
	if cfg.Backend != config.BackendRedis {
		return monitoring.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := monitoring.NewRedisStore(client, cfg.KeyPrefix)
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return store, func() { client.Close() }, nil
}

// openSinks builds the recorder sinks. The SQL table is always written;
// InfluxDB, Kafka and MQTT are added when enabled.
func openSinks(ctx context.Context, cfg *config.Config, store *storage.Store, logger *logging.Logger) ([]recorder.Sink, func(), error) {
	sinks := []recorder.Sink{recorder.SQLSink(store)}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.NewClient(ctx, cfg.InfluxDB, logger.Logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, recorder.InfluxSink(client))
		closers = append(closers, client.Close)
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, logger.Logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, recorder.PublisherSink("kafka", producer))
		closers = append(closers, func() {
			if err := producer.Close(); err != nil {
				logger.Warn("error closing kafka producer", "error", err)
			}
		})
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		publisher := mqtt.NewPublisher(client, cfg.MQTT.TopicPrefix, logger.Logger)
		sinks = append(sinks, recorder.PublisherSink("mqtt", publisher))
		closers = append(closers, publisher.Close)
	}

	return sinks, closeAll, nil
}
