package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	"github.com/skyward-systems/proctorwatch/internal/catalog"
	"github.com/skyward-systems/proctorwatch/internal/config"
	"github.com/skyward-systems/proctorwatch/internal/events"
	"github.com/skyward-systems/proctorwatch/internal/flagger"
	"github.com/skyward-systems/proctorwatch/internal/handlers"
	"github.com/skyward-systems/proctorwatch/internal/logging"
	"github.com/skyward-systems/proctorwatch/internal/repository"
	"github.com/skyward-systems/proctorwatch/internal/scorer"
	"github.com/skyward-systems/proctorwatch/internal/server"
	"github.com/skyward-systems/proctorwatch/internal/service"
	"github.com/skyward-systems/proctorwatch/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(log)

	// Catalog validation failures are fatal: the engine never serves
	// with a partial or inconsistent signal set.
	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.Path)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		log.Error("signal catalog rejected", logging.Error(err))
		os.Exit(1)
	}
	log.Info("signal catalog loaded", logging.SignalCount(cat.Size()))

	connString := cfg.Database.Postgres.ConnString()

	log.Info("running database migrations")
	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		log.Error("failed to initialize migrations", logging.Error(err))
		os.Exit(1)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("failed to run migrations", logging.Error(err))
		os.Exit(1)
	}

	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		log.Error("failed to connect to postgres", logging.Error(err))
		os.Exit(1)
	}
	defer repo.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Error("invalid redis url", logging.Error(err))
		os.Exit(1)
	}
	redisOpts.MaxRetries = cfg.Redis.MaxRetries
	redisOpts.PoolSize = cfg.Redis.PoolSize
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	snapshots := snapshot.New(redisClient, cfg.Snapshot.TTL)

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsPub, err := events.NewNATSPublisher(events.DefaultNATSConfig(cfg.NATS.URL))
		if err != nil {
			log.Error("failed to connect to NATS", logging.Error(err))
			os.Exit(1)
		}
		publisher = natsPub
	}
	defer publisher.Close()

	svc := service.New(
		scorer.DefaultRegistry(),
		flagger.New(cat, log),
		repo,
		snapshots,
		publisher,
		log,
	)

	handler := handlers.New(svc, cat, log)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("proctorwatch engine listening", logging.Addr(srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", logging.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
