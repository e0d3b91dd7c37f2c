// Package cli provides the command-line interface for CortexTrader
package cli

import (
	"fmt"
	"os"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Run starts the CLI application
func Run() {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
