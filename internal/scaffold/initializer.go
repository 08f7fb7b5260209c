// Package scaffold creates the initial concord.yml for a new instance.
package scaffold

import (
	"fmt"
	"os"

	"github.com/concord-ai/concord/internal/config"
)

const configTemplate = `# Concord instance configuration
version: "1.0"
instance: %s

redis:
  addr: localhost:6379

api:
  addr: ":8080"

hub:
  database: concord.db

evolution:
  interval: 1h
`

// Initialize writes a default concord.yml at path for the given instance.
// Refuses to overwrite an existing file unless force is set. The written
// file is validated before returning.
func Initialize(path, instance string, force bool) error {
	if instance == "" {
		return fmt.Errorf("instance name is required")
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		fmt.Printf("⚠️  Overwriting existing %s...\n", path)
	}

	content := fmt.Sprintf(configTemplate, instance)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// Validate what we just wrote
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("generated configuration is invalid: %w", err)
	}

	return nil
}
