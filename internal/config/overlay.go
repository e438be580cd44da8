// config/overlay.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"jobscout-engine/internal/domain"
)

type PortalsFile struct {
	Portals []domain.Portal `yaml:"portals"`
}

// OverlayPortals replaces cfg.Portals with the list in portalsPath when that
// file exists and is non-empty.
func OverlayPortals(cfg *Config, portalsPath string) error {
	b, err := os.ReadFile(portalsPath)
	if err != nil {
		// Missing portals file should not kill startup
		return nil
	}

	var pf PortalsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return err
	}

	if len(pf.Portals) > 0 {
		cfg.Portals = pf.Portals
	}
	return nil
}
