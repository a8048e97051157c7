// README: Entry point; loads config, wires the simulation, live feed and HTTP server.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"ridesim/internal/config"
	httptransport "ridesim/internal/http"
	"ridesim/internal/infra"
	"ridesim/internal/modules/feed"
	"ridesim/internal/modules/simulation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := infra.NewLogger("info", "json")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := simulation.NewService(cfg.Simulation, log)
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		defer redisClient.Close()
		if err := infra.PingRedis(ctx, redisClient); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable")
		}
		feedStore := feed.NewStore(redisClient, cfg.Feed.KeyPrefix, cfg.Feed.TTL)
		feedSvc := feed.NewService(sim, feedStore, cfg.Feed.Interval, log)
		sim.OnReset(func() { feedSvc.Clear(context.Background()) })
		g.Go(func() error { return feedSvc.Run(ctx) })
		log.Info().Str("prefix", cfg.Feed.KeyPrefix).Msg("live feed enabled")
	} else {
		log.Info().Msg("RIDESIM_REDIS_ADDR not set; live feed disabled")
	}

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.ServerDeps{
		Simulation:      sim,
		Log:             log,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
	g.Go(func() error { return server.Run(ctx) })

	err = g.Wait()
	sim.Reset()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shut down")
}
