// Package cmd provides the odrlplan CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odrlplan/odrlplan/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "odrlplan",
	Short: "odrlplan - ODRL policy evaluation planner",
	Long: `odrlplan dry-runs an ODRL-style authorization policy: it walks a
policy's permissions, prohibitions, and duties and produces an
evaluation plan describing which functions would fire and which
elements would be filtered out, without evaluating anything.

Quick start:
  1. Create a config file: odrlplan.yaml
  2. Run: odrlplan plan --policy policy.yaml

Configuration:
  Config is loaded from odrlplan.yaml in the current directory or
  $HOME/.odrlplan/.

  Environment variables can override config values with the ODRLPLAN_
  prefix. Example: ODRLPLAN_LOG_LEVEL=debug

Commands:
  plan        Build an evaluation plan for a policy document
  history     List recent plan runs
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./odrlplan.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
