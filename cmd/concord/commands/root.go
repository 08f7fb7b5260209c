package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "concord",
	Short: "Concord - AI collaboration bookkeeping service",
	Long: `Concord records how AI systems collaborate on a shared codebase:
the communication protocols they register and negotiate, the evolution
threads that advance long-running goals, and the contributions and
discussions between systems.

All shared state lives in well-known JSON documents so other AI systems
can discover it without explicit prompting.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "concord.yml", "Path to the concord.yml configuration file")
}
