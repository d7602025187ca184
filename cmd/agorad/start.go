package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cosmoslog "cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/agora-market/agora/config"
	"github.com/agora-market/agora/internal/api"
	"github.com/agora-market/agora/internal/bank"
	"github.com/agora-market/agora/internal/cache"
	"github.com/agora-market/agora/internal/discovery"
	"github.com/agora-market/agora/internal/events"
	"github.com/agora-market/agora/internal/journal"
	"github.com/agora-market/agora/internal/market/keeper"
	"github.com/agora-market/agora/internal/market/types"
	"github.com/agora-market/agora/internal/metrics"
	"github.com/agora-market/agora/internal/stream"
	"github.com/agora-market/agora/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the settlement daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runDaemon(cfg)
		},
	}
}

func runDaemon(cfg *config.Config) error {
	log := logger.NewLogger("agorad", cfg.Log.Level)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Engine core: ledger port, event bus, keeper.
	ledger := bank.NewLedger()
	bus := events.NewBus(cfg.Engine.EventBuffer, log)
	defer bus.Close()

	params := types.Params{
		ClaimTimeout: cfg.Engine.ClaimTimeout,
		Admin:        cfg.Engine.Admin,
	}
	engine := keeper.NewKeeper(
		cosmoslog.NewLogger(os.Stderr),
		ledger,
		cfg.Engine.CustodyAccount,
		params,
		time.Now,
		bus,
	)

	// Discovery store: Postgres when configured, in-memory otherwise.
	var store discovery.Store
	if cfg.Postgres.Enabled {
		pg, err := discovery.NewPGStore(cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		store = pg
		log.Info("discovery store: postgres")
	} else {
		store = discovery.NewMemStore()
		log.Info("discovery store: in-memory")
	}
	defer store.Close()

	var redisCache *cache.RedisCache
	var invalidator discovery.Invalidator
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(ctx, cache.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.CacheTTL,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		redisCache = rc
		invalidator = rc
		log.Info("redis cache connected", "address", cfg.Redis.Address)
	}

	mirror := discovery.NewMirror(engine, store, invalidator, log)
	mirrorCh, mirrorCancel := bus.Subscribe()
	defer mirrorCancel()
	go mirror.Run(ctx, mirrorCh)

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		journalCh, journalCancel := bus.Subscribe()
		defer journalCancel()
		go j.Run(journalCh)
		log.Info("event journal open", "path", cfg.Journal.Path)
	}

	if cfg.Kafka.Enabled {
		producer := stream.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		kafkaCh, kafkaCancel := bus.Subscribe()
		defer kafkaCancel()
		go producer.Run(ctx, kafkaCh)
		log.Info("kafka producer started", "topic", cfg.Kafka.Topic)
	}

	if cfg.Metrics.Enabled {
		msrv := metrics.NewServer(listenAddr(cfg.API.Host, cfg.Metrics.Port), log)
		go func() {
			if err := msrv.Start(); err != nil {
				log.Error("metrics server failed", "error", err.Error())
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			_ = msrv.Stop(sctx)
		}()
	}

	server := api.NewServer(api.Config{
		Host:            cfg.API.Host,
		Port:            cfg.API.Port,
		RateLimit:       cfg.API.RateLimit,
		CORSOrigins:     cfg.API.CORSOrigins,
		JWTSecret:       cfg.API.JWTSecret,
		EnableWebSocket: cfg.API.EnableWebSocket,
	}, engine, store, redisCache, bus, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	return server.Stop(sctx)
}

func listenAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
