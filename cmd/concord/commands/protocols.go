package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concord-ai/concord/internal/printer"
	"github.com/concord-ai/concord/internal/protocol"
)

var protocolsJSON bool

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "Inspect the protocol registry",
}

var protocolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered protocol schemas",
	Long: `List every protocol schema in the registry, marking the current
primary protocol.

Use --json for machine-readable output.`,
	RunE: runProtocolsList,
}

func init() {
	protocolsListCmd.Flags().BoolVar(&protocolsJSON, "json", false, "Output in JSON format")
	protocolsCmd.AddCommand(protocolsListCmd)
	rootCmd.AddCommand(protocolsCmd)
}

func runProtocolsList(cmd *cobra.Command, args []string) error {
	_, store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	harmonizer := protocol.NewHarmonizer(store)
	entries, err := harmonizer.List(context.Background())
	if err != nil {
		return printer.Error("Failed to list protocols", err.Error(), nil)
	}

	if protocolsJSON {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		printer.Println(string(out))
		return nil
	}

	if len(entries) == 0 {
		printer.Info("No protocols registered. Run 'concord init' first.\n")
		return nil
	}

	for _, e := range entries {
		marker := " "
		if e.IsPrimary {
			marker = "*"
		}
		printer.Info("%s %-40s %-10s %s\n", marker, e.SchemaID, e.Version, e.Author)
	}
	fmt.Println()
	printer.Info("* = primary protocol\n")
	return nil
}
