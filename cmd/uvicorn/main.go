package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "uvicorn",
		Short: "A lifecycle-managed connection server",
		Long: `uvicorn is a high-throughput connection server core.

It binds listeners over TCP, UNIX domain sockets, or inherited file
descriptors, dispatches accepted connections to protocol handlers, and
coordinates graceful startup, draining, and shutdown:

  • Event-driven control loop (no idle polling)
  • Bounded graceful drain with forced task cancellation
  • OS signal capture with LIFO re-delivery to supervisors
  • Prometheus metrics and an optional admin endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("uvicorn %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
