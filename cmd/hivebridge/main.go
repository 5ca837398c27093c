// Command hivebridge runs the indexer: it syncs blocks from an upstream
// steemd/hived-style node into the relational projection described by
// this module's internal packages, grounded on the teacher's
// cmd/backend/main.go wiring (config → dependencies → services → run
// until signal).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hivebridge/internal/accumulator"
	"hivebridge/internal/blockproc"
	"hivebridge/internal/cachedpost"
	"hivebridge/internal/community"
	"hivebridge/internal/config"
	"hivebridge/internal/customop"
	"hivebridge/internal/store"
	"hivebridge/internal/sync"
	"hivebridge/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (env HIVEBRIDGE_* overrides always apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("hivebridge starting: steemd=%s checkpoint_dir=%s trail_blocks=%d", cfg.SteemdURL, cfg.CheckpointDir, cfg.TrailBlocks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	uc, err := upstream.New(cfg.SteemdURL, cfg.MaxBatch, cfg.MaxWorkers)
	if err != nil {
		log.Fatalf("upstream: %v", err)
	}
	defer uc.Close()

	registrar := community.NewRegistrar()
	accounts := accumulator.NewAccounts(uc, registrar)
	posts := accumulator.NewPosts(accounts, registrar)
	follow := accumulator.NewFollow(accounts)
	feedCache := accumulator.NewFeedCache()

	communityEngine := community.NewEngine()
	dispatcher := customop.NewWithEngine(follow, communityEngine)
	processor := blockproc.New(accounts, posts, dispatcher)
	cachedEngine := cachedpost.New(uc, accounts, cfg.ServiceName)

	orch := sync.New(st, uc, accounts, posts, follow, feedCache, processor, cachedEngine,
		cfg.ServiceName, cfg.CheckpointDir, cfg.TrailBlocks)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() {
		runErr <- orch.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		orch.Shutdown(shutdownCtx)
		shutdownCancel()

		<-runErr
		os.Exit(0)

	case err := <-runErr:
		if err != nil {
			log.Fatalf("sync: %v", err)
		}
	}
}
