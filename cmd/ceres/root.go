package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ceres",
	Short: "Ceres - beneficiary registration validation service",
	Long: `Ceres validates beneficiary registration payloads against a declarative
rule catalog.

The catalog holds reference dictionaries, versioned rule files and
per-merchant policies; every request is evaluated against one immutable
snapshot of it and every decision is written to the audit trail.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
}
