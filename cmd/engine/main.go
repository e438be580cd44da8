package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "jobscout-engine"

// Actual version can be specified in build command.
var version = "dev"

var (
	dataDir     string
	cfgFile     string
	portalsFile string
	debug       bool
	jsonLogs    bool

	rootCmd = &cobra.Command{
		Use:           "engine",
		Short:         "Harvests job postings from configured portals and scores candidate fit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	defDataDir := os.Getenv("JOBSCOUT_DATA_DIR")
	if defDataDir == "" {
		defDataDir = "."
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defDataDir, "directory holding config.yml, the database and the lock file")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <data-dir>/config.yml, bootstrapped from config/config.yml)")
	rootCmd.PersistentFlags().StringVar(&portalsFile, "portals", "", "optional YAML file whose portals list replaces the config's")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLogs, "json", "j", false, "json format for logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s version: %s\n", appName, version)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
