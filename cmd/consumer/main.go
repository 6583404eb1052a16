package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/influxdb"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/kafka"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/logging"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/processor"
)

func main() {
	// Load configuration
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

	code := run(cfg, logger)
	logger.Close()
	os.Exit(code)
}

func run(cfg *config.Config, logger *logging.Logger) int {
	// Initialize InfluxDB client
	influxClient, err := influxdb.NewClient(context.Background(), cfg.InfluxDB, logger.Logger)
	if err != nil {
		logger.Error("Failed to create InfluxDB client", "error", err)
		return 1
	}
	// Don't use defer for closing here, we'll explicitly close after consumers are stopped

	proc := processor.NewProcessor(influxClient, cfg.Processor, logger.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle termination signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	consumers := make([]*kafka.Consumer, cfg.Kafka.ConsumerCount)

	logger.Info("starting Kafka consumers", "count", cfg.Kafka.ConsumerCount, "topic", cfg.Kafka.Topic)

	for i := 0; i < cfg.Kafka.ConsumerCount; i++ {
		consumer, err := kafka.NewConsumer(
			fmt.Sprintf("consumer-%d", i),
			cfg.Kafka,
			proc.ProcessMessages,
			logger.Logger,
		)
		if err != nil {
			logger.Error("Failed to create consumer", "consumer", i, "error", err)
			cancel()
			wg.Wait()
			for _, c := range consumers[:i] {
				c.Close()
			}
			proc.Stop()
			influxClient.Close()
			return 1
		}

		consumers[i] = consumer

		wg.Add(1)
		go func(c *kafka.Consumer, id int) {
			defer wg.Done()
			logger.Info("starting consumer", "consumer", id)
			if err := c.Consume(ctx); err != nil {
				logger.Error("consumer error", "consumer", id, "error", err)
			}
			logger.Info("consumer stopped", "consumer", id)
		}(consumer, i)
	}

	// Wait for termination signal
	<-sigChan
	logger.Info("received termination signal, shutting down")

	// Cancel context to stop consumers
	cancel()

	// Set a deadline for clean shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	stopped := false
	select {
	case <-done:
		stopped = true
		logger.Info("all consumers stopped")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
	}

	for i, c := range consumers {
		if err := c.Close(); err != nil {
			logger.Warn("error closing consumer", "consumer", i, "error", err)
		}
	}

	// Stragglers after a timeout get ErrStopped from the processor
	if stopped {
		for _, c := range consumers {
			c.Wait()
		}
	}
	proc.Stop()
	logger.Info("processor stopped", "dropped", proc.Dropped())

	// Now it's safe to close the InfluxDB client
	influxClient.Close()

	logger.Info("shutdown complete")
	return 0
}
