package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nexus-analyzer",
	Short: "Module dependency and quality analyzer",
	Long: `nexus-analyzer answers dependency and quality analysis requests
published on a Redis pub/sub bus.

Quick start:
  nexus-analyzer serve                     # run with built-in defaults
  nexus-analyzer serve -c nexus.yaml       # run with a configuration file
  nexus-analyzer validate -c nexus.yaml    # print the effective configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (YAML or JSON)")
}
