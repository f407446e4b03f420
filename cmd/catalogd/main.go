package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/aggregator"
	"github.com/dreamware/catalogd/internal/auth"
	"github.com/dreamware/catalogd/internal/coordinator"
	"github.com/dreamware/catalogd/internal/service"
	"github.com/dreamware/catalogd/internal/shard"
	"github.com/dreamware/catalogd/internal/shardmap"
	"github.com/dreamware/catalogd/internal/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catalogd",
		Short: "Distributed product catalog coordinator",
		RunE:  run,
	}

	flags := rootCmd.Flags()
	flags.String("addr", ":8080", "HTTP listen address")
	flags.StringSlice("shards", []string{"shard-a", "shard-b", "shard-c"}, "shard identifiers in placement order")
	flags.String("data-dir", "", "directory for boltdb files; empty means in-memory stores")
	flags.Duration("health-interval", 5*time.Second, "shard store health check interval")
	flags.String("config", "", "config file path")

	_ = viper.BindPFlags(flags)
	viper.SetEnvPrefix("catalogd")
	viper.AutomaticEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if cfg := viper.GetString("config"); cfg != "" {
		viper.SetConfigFile(cfg)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shardIDs := viper.GetStringSlice("shards")
	dataDir := viper.GetString("data-dir")

	shards, m, err := buildStores(logger, shardIDs, dataDir)
	if err != nil {
		return err
	}

	registry, err := coordinator.NewShardRegistry(shards)
	if err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()
	defer func() { _ = m.Close() }()

	coord := coordinator.New(logger, registry, m)
	agg := aggregator.New(logger, registry)
	provider := auth.NewStaticProvider()
	provider.SignOut()
	svc := service.New(logger, coord, agg, provider)
	defer svc.Close()
	defer agg.Stop()

	monitor := coordinator.NewHealthMonitor(logger, registry, viper.GetDuration("health-interval"))
	monitor.Start(context.Background())
	defer monitor.Stop()

	srv := newServer(logger, svc, registry, provider)

	addr := viper.GetString("addr")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("catalogd listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	logger.Info("catalogd stopped")
	return nil
}

// buildStores creates one store per shard plus the shard map store,
// bolt-backed when a data directory is configured, in-memory otherwise.
func buildStores(logger *zap.Logger, shardIDs []string, dataDir string) ([]*shard.Shard, shardmap.Map, error) {
	shards := make([]*shard.Shard, 0, len(shardIDs))

	if dataDir == "" {
		for _, id := range shardIDs {
			shards = append(shards, shard.NewMemory(id))
		}
		return shards, shardmap.NewMemoryMap(), nil
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, nil, err
	}
	for _, id := range shardIDs {
		store, err := storage.NewBoltStore(logger, filepath.Join(dataDir, id+".db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open shard %s: %w", id, err)
		}
		shards = append(shards, shard.New(id, store))
	}
	m, err := shardmap.NewBoltMap(filepath.Join(dataDir, "shardmap.db"))
	if err != nil {
		return nil, nil, err
	}
	return shards, m, nil
}
