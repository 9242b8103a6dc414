package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "cart synchronization service for the shop web client",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server",
				Flags:  serveFlags,
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("storefront failed")
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, os.Stdout)

	ctx := context.Background()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis connection failed")
	}
	log.WithField("addr", cfg.RedisAddr).Info("redis ping succeeded")

	sessions := credentials.NewRedisStore(redisClient, cfg.SessionTTL)
	backend := apiclient.NewClient(apiclient.Config{
		BaseURL:         cfg.BackendURL,
		Timeout:         cfg.BackendTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
	})

	// Left as a nil interface when Kafka is not configured.
	var forwarder storefront.ActivityForwarder
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaForwarder(log, cfg.KafkaBrokers...)
		defer kafka.Close()
		forwarder = kafka
		log.WithField("brokers", cfg.KafkaBrokers).Info("forwarding cart activity to kafka")
	}

	registry := storefront.NewRegistry(backend, sessions.Provider, forwarder, log,
		storefront.WithIdleTTL(cfg.TabIdleTTL),
		storefront.WithMaxTabsPerSession(cfg.MaxTabsPerSession),
	)
	defer registry.CloseAll()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go registry.Run(sweepCtx)

	router := h.NewRouter(h.RouterConfig{
		Sessions:       h.NewSessionHandler(sessions, cfg.RequestTimeout, log),
		Tabs:           h.NewTabHandler(registry, cfg.RequestTimeout),
		Events:         h.NewEventsHandler(log),
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: event streams stay open for the life of a tab.
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return errors.Wrap(err, "server error")
	case <-quit:
	}

	log.Info("shutting down server...")
	stopSweep()
	// Closing the tabs ends their event streams so Shutdown does not wait on them.
	registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	log.Info("server exited")
	return nil
}
