package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jobscout-engine/internal/domain"
)

var harvestPortal string

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest every enabled portal once and print the run summaries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var portals []domain.Portal
		if harvestPortal != "" {
			p, ok := a.cfg.Portal(harvestPortal)
			if !ok {
				return fmt.Errorf("portal %q is not configured", harvestPortal)
			}
			portals = append(portals, p)
		} else {
			for _, p := range a.cfg.Portals {
				if p.Enabled {
					portals = append(portals, p)
				}
			}
		}
		if len(portals) == 0 {
			return fmt.Errorf("no enabled portals to harvest")
		}

		sums := a.runner.HarvestAll(cmd.Context(), portals)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sums)
	},
}

func init() {
	rootCmd.AddCommand(harvestCmd)
	harvestCmd.Flags().StringVarP(&harvestPortal, "portal", "p", "", "harvest only this portal, even if disabled")
}
