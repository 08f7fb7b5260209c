package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/concord-ai/concord/internal/api"
	"github.com/concord-ai/concord/internal/discovery"
	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/internal/hub"
	"github.com/concord-ai/concord/internal/printer"
	"github.com/concord-ai/concord/internal/protocol"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Concord API server",
	Long: `Run the Concord HTTP API server in the foreground until interrupted.

The server exposes the protocol registry, evolution threads, and the
collaboration hub under /ai-collaboration, plus /healthz for health checks.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	hubStore, err := hub.New(cfg.Hub.Database)
	if err != nil {
		return printer.Error("Failed to open hub database", err.Error(), nil)
	}
	defer hubStore.Close()

	harmonizer := protocol.NewHarmonizer(store)
	manager := evolution.NewManager(store)
	trails := discovery.NewTrails(store)

	server := api.NewServer(store, harmonizer, manager, hubStore, trails, cfg.API.Addr)
	if err := server.Start(); err != nil {
		return printer.Error("Failed to start API server", err.Error(), nil)
	}

	printer.Success("Concord API listening on %s (instance '%s')\n", cfg.API.Addr, cfg.Instance)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	printer.Info("Shutting down...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
