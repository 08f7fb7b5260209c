package commands

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/concord-ai/concord/internal/config"
	"github.com/concord-ai/concord/internal/printer"
	"github.com/concord-ai/concord/pkg/docstore"
)

// connect loads the configuration and opens a verified document store client.
// The caller owns the returned client and must Close it.
func connect() (*config.ConcordConfig, *docstore.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, printer.Error("Failed to load configuration", err.Error(), []string{
			"Run 'concord init' to create a concord.yml",
			"Pass --config with the path to an existing configuration",
		})
	}

	store, err := docstore.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Instance)
	if err != nil {
		return nil, nil, printer.Error("Failed to create document store client", err.Error(), nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, printer.Error("Redis not accessible", err.Error(), []string{
			"Check that Redis is running at " + cfg.Redis.Addr,
		})
	}

	return cfg, store, nil
}
