package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/handlepool/pkg/config"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "handlepool",
		Short: "handlepool - bounded, rate-limited resource pool",
		Long: `handlepool manages a bounded population of reusable handles with an
optional minimum spacing between acquisitions. This tool validates pool
configurations and drives a pool under simulated load.`,
		SilenceUsage: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSimulateCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "handlepool v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pool configuration file",
		Long: `Load a YAML pool configuration, substitute ${VAR} references from the
environment and check bounds, delay and simulation settings.

Example:
  handlepool validate --config pool.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPoolConfig(configFile)
			if err != nil {
				return fmt.Errorf("invalid configuration %s: %w", configFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration %s is valid\n", configFile)
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to pool configuration YAML file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
