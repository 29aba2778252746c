package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waxworks/config"
	"waxworks/internal/bus"
	"waxworks/internal/database"
	"waxworks/internal/sinks"
	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const (
	sinkName      = "table-sink"
	progressEvery = 30 * time.Second
)

func main() {
	log := logger.New("main")

	cfg, err := config.New(config.ProfileTableSink)
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.EnsureCatalogTables(ctx); err != nil {
		os.Exit(1)
	}

	amqpBus := bus.New(cfg.AMQPConnection)
	defer func() { _ = amqpBus.Close() }()

	publisher := bus.NewPublisher(amqpBus)
	defer publisher.Close()

	sink := sinks.New(sinkName, sinks.NewTableStore(pool), publisher)

	group, groupCtx := errgroup.WithContext(ctx)

	// One serial consumer per catalog stream; the four run independently so
	// a slow stream never stalls the others.
	for _, kind := range types.EntityKinds {
		consumer := bus.NewConsumer(amqpBus, sinkName, kind, sink.Handler(kind))
		group.Go(func() error {
			return consumer.Run(groupCtx)
		})
	}

	group.Go(func() error {
		sink.ReportProgress(groupCtx, progressEvery)
		return nil
	})

	healthApp := newHealthServer(func(probeCtx context.Context) bool {
		return pool.Healthy(probeCtx) && amqpBus.Healthy()
	})
	group.Go(func() error {
		return healthApp.Listen(fmt.Sprintf(":%d", cfg.TableSinkHealthPort))
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthApp.ShutdownWithContext(shutdownCtx)
	})

	log.Info("Table sink running", "healthPort", cfg.TableSinkHealthPort)

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		log.Er("table sink terminated", err)
		os.Exit(1)
	}

	log.Info("Table sink exiting")
}

func newHealthServer(healthy func(ctx context.Context) bool) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		code := fiber.StatusOK
		if !healthy(c.UserContext()) {
			status = "unhealthy"
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"service":   sinkName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	return app
}
