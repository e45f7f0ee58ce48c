package main

// ============================================================================
// Responsibilities:
// 1. CLI application entry point
// 2. Load optional .env overrides, then dispatch to the CLI
// 3. Top-level error handling and panic recovery
// ============================================================================

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/gaiaqa/gaia-scheduler/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	// Optional local overrides; a missing .env is not an error.
	_ = godotenv.Load()

	rootCmd := cli.BuildCLI()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
