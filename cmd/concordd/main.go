package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/concord-ai/concord/internal/api"
	"github.com/concord-ai/concord/internal/discovery"
	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/internal/hub"
	"github.com/concord-ai/concord/internal/protocol"
	"github.com/concord-ai/concord/pkg/docstore"
)

func main() {
	// 1. Load environment variables
	instanceName := os.Getenv("CONCORD_INSTANCE_NAME")
	redisURL := os.Getenv("REDIS_URL")

	if instanceName == "" || redisURL == "" {
		fmt.Fprintf(os.Stderr, "Error: CONCORD_INSTANCE_NAME and REDIS_URL must be set\n")
		os.Exit(1)
	}

	apiAddr := os.Getenv("CONCORD_API_ADDR")
	if apiAddr == "" {
		apiAddr = ":8080"
	}
	hubPath := os.Getenv("CONCORD_HUB_DB")
	if hubPath == "" {
		hubPath = "concord.db"
	}
	interval := time.Hour
	if v := os.Getenv("CONCORD_EVOLUTION_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < time.Second {
			fmt.Fprintf(os.Stderr, "Error: Invalid CONCORD_EVOLUTION_INTERVAL: %s\n", v)
			os.Exit(1)
		}
		interval = parsed
	}

	// 2. Parse Redis URL
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid REDIS_URL: %v\n", err)
		os.Exit(1)
	}

	// 3. Create document store client
	store, err := docstore.NewClient(redisOpts, instanceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create document store client: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 4. Verify Redis connectivity
	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Redis not accessible: %v\n", err)
		os.Exit(1)
	}

	// 5. Open the collaboration hub database
	hubStore, err := hub.New(hubPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open hub database: %v\n", err)
		os.Exit(1)
	}
	defer hubStore.Close()

	fmt.Printf("Concord daemon starting for instance '%s'\n", instanceName)

	harmonizer := protocol.NewHarmonizer(store)
	manager := evolution.NewManager(store)
	trails := discovery.NewTrails(store)

	// 6. Bootstrap the registry on first run
	if _, err := store.GetDocument(ctx, protocol.RegistryPath); docstore.IsNotFound(err) {
		fmt.Println("No protocol registry found, initializing")
		if err := harmonizer.Initialize(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to initialize protocol registry: %v\n", err)
			os.Exit(1)
		}
		if err := trails.CreateStandardTrails(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write discovery trails: %v\n", err)
			os.Exit(1)
		}
	}

	// 7. Start the API server
	server := api.NewServer(store, harmonizer, manager, hubStore, trails, apiAddr)
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to start API server: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("API server listening on %s\n", apiAddr)

	// 8. Start the evolution runner for every active thread. The default
	// evolution behaviour keeps the discovery markers fresh so other AI
	// systems see up-to-date thread state.
	runner := evolution.NewRunner(manager)
	refreshMarkers := func(ctx context.Context, threadID string) error {
		summaries, err := manager.ListActive(ctx)
		if err != nil {
			return err
		}
		state := map[string]interface{}{
			"system_name":    "Concord",
			"instance":       instanceName,
			"status":         "active",
			"active_threads": summaries,
		}
		return trails.UpdateDynamicMarkers(ctx, state, nil, nil)
	}

	active, err := manager.ListActive(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to list active threads: %v\n", err)
	}
	for _, summary := range active {
		if err := runner.Start(ctx, summary.ThreadID, refreshMarkers, interval); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to start evolution of %s: %v\n", summary.ThreadID, err)
		}
	}
	fmt.Printf("Evolution runner started for %d threads (interval %v)\n", len(active), interval)

	// 9. Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Printf("Received signal %v, shutting down\n", sig)

	runner.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error during API server shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Concord daemon stopped")
}
