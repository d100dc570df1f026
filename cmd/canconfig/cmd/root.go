package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	descriptorPath string
	logFile        string
	verbose        bool
	quiet          bool
	noSite         bool
)

var rootCmd = &cobra.Command{
	Use:   "canconfig",
	Short: "Configure the libcanopen build",
	Long: `canconfig prepares a source tree for building. It probes the C toolchain,
computes the shared library interface version, runs the configuration checks
declared in the build descriptor, and writes a Makefile for every module
directory plus a config header and a pkg-config manifest.

A run either completes or writes nothing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("canconfig %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&descriptorPath, "descriptor", "canconfig.yaml", "path to the build descriptor (.yaml or .hcl)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write a detailed log of the run to this file (config.log)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noSite, "no-site", false, "ignore site default files")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		errorf("%v", err)
		return err
	}
	return nil
}
