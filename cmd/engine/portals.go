package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobscout-engine/internal/config"
)

var portalsCmd = &cobra.Command{
	Use:   "portals",
	Short: "List configured portals",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tENABLED\tEVERY\tRATE/H\tBASE URL")
		for _, p := range cfg.Portals {
			fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%s\n", p.Name, p.Enabled, p.Every, cfg.RateLimitFor(p), p.BaseURL)
		}
		return tw.Flush()
	},
}

func toggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: use + " a portal in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			next, err := config.SetPortalEnabled(cfg, args[0], enabled)
			if err != nil {
				return err
			}
			if err := config.SaveAtomic(path, next); err != nil {
				return err
			}
			fmt.Printf("%s: enabled=%t (restart serve or use the API to apply)\n", args[0], enabled)
			return nil
		},
	}
}

func init() {
	portalsCmd.AddCommand(toggleCmd("enable", true), toggleCmd("disable", false))
	rootCmd.AddCommand(portalsCmd)
}
