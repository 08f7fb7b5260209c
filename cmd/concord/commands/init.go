package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/concord-ai/concord/internal/discovery"
	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/internal/printer"
	"github.com/concord-ai/concord/internal/protocol"
	"github.com/concord-ai/concord/internal/scaffold"
)

var (
	initInstance string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a Concord instance",
	Long: `Initialize a Concord instance: scaffolds a concord.yml if none exists,
bootstraps the protocol registry with the default protocol, activates
the evolution system, and writes the AI discovery trails.

Safe to re-run: existing registry and discovery documents are replaced
with fresh copies, but evolution threads are left untouched.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initInstance, "instance", "concord", "Instance name for a newly scaffolded configuration")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing concord.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) || initForce {
		printer.Step("Writing %s...\n", configPath)
		if err := scaffold.Initialize(configPath, initInstance, initForce); err != nil {
			return printer.Error("Failed to scaffold configuration", err.Error(), nil)
		}
	}

	_, store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	printer.Step("Initializing protocol registry...\n")
	harmonizer := protocol.NewHarmonizer(store)
	if err := harmonizer.Initialize(ctx); err != nil {
		return printer.Error("Failed to initialize protocol registry", err.Error(), nil)
	}

	printer.Step("Activating evolution system...\n")
	manager := evolution.NewManager(store)
	if err := manager.Activate(ctx); err != nil {
		return printer.Error("Failed to activate evolution system", err.Error(), nil)
	}

	printer.Step("Writing discovery trails...\n")
	trails := discovery.NewTrails(store)
	if err := trails.CreateStandardTrails(ctx); err != nil {
		return printer.Error("Failed to write discovery trails", err.Error(), nil)
	}
	if err := trails.UpdateDynamicMarkers(ctx, nil, nil, nil); err != nil {
		return printer.Error("Failed to write dynamic markers", err.Error(), nil)
	}

	printer.Success("Concord instance '%s' initialized\n", store.InstanceName())
	return nil
}
