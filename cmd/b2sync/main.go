// b2sync mirrors B2Chat contacts and chats into PostgreSQL. The worker
// subcommand runs the long-lived sync daemon; the rest are one-shot
// operator commands against the same database.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// flagConfigDir is the directory holding b2sync.yaml and .env. Shared by
// every subcommand through the root persistent flag.
var flagConfigDir string

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolvePodID determines the pod identifier for multi-replica coordination.
// Priority: POD_ID env > HOSTNAME env > "local"
func resolvePodID() string {
	if id := os.Getenv("POD_ID"); id != "" {
		return id
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		return hostname
	}
	return "local"
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "b2sync",
		Short: "Mirror B2Chat conversations into PostgreSQL",
		Long: `b2sync extracts contacts and chats from the B2Chat export API into raw
staging tables, then transforms the staged payloads into normalized
relational entities with SLA response metrics.

Run "b2sync worker" for the continuous sync daemon, or drive individual
extract and transform runs by hand.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir",
		getEnv("CONFIG_DIR", "."),
		"Directory containing b2sync.yaml and .env")

	cmd.AddCommand(
		newExtractCommand(),
		newTransformCommand(),
		newWorkerCommand(),
		newStatusCommand(),
		newCancelCommand(),
		newVersionCommand(),
	)

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
