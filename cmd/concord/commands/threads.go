package commands

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/internal/printer"
	"github.com/concord-ai/concord/internal/resolver"
)

var threadsJSON bool

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Inspect evolution threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active evolution threads",
	Long: `List every evolution thread that is not completed, with goal and
step counts and average progress.

Use --json for machine-readable output.`,
	RunE: runThreadsList,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Show a single evolution thread",
	Long: `Show the full state of one evolution thread: goals, steps, and
participants. The thread id may be abbreviated to a unique prefix of
at least 6 characters.`,
	Args: cobra.ExactArgs(1),
	RunE: runThreadsShow,
}

func init() {
	threadsListCmd.Flags().BoolVar(&threadsJSON, "json", false, "Output in JSON format")
	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsShowCmd)
	rootCmd.AddCommand(threadsCmd)
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	_, store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	manager := evolution.NewManager(store)
	summaries, err := manager.ListActive(context.Background())
	if err != nil {
		return printer.Error("Failed to list threads", err.Error(), nil)
	}

	if threadsJSON {
		out, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		printer.Println(string(out))
		return nil
	}

	if len(summaries) == 0 {
		printer.Info("No active evolution threads.\n")
		return nil
	}

	for _, s := range summaries {
		printer.Info("%s  %-30s %s  goals %d/%d  steps %d  %.0f%%\n",
			s.ThreadID, s.Name, s.Status, s.CompletedGoals, s.TotalGoals, s.TotalSteps, s.AverageProgress)
	}
	return nil
}

func runThreadsShow(cmd *cobra.Command, args []string) error {
	_, store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	threadID, err := resolver.ResolveThreadID(ctx, store, args[0])
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		if errors.As(err, &ambiguous) {
			printer.Println(resolver.FormatAmbiguousError(ambiguous))
		}
		return printer.Error("Failed to resolve thread id", err.Error(), nil)
	}

	manager := evolution.NewManager(store)
	thread, err := manager.Thread(ctx, threadID)
	if err != nil {
		return printer.Error("Failed to load thread", err.Error(), nil)
	}

	out, err := json.MarshalIndent(thread, "", "  ")
	if err != nil {
		return err
	}
	printer.Println(string(out))
	return nil
}
