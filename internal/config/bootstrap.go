package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the user config inside the data dir.
const FileName = "config.yml"

// EnsureUserConfig returns <dataDir>/config.yml, seeding it on first start
// from defaultPath or, when that is missing too, from Default().
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, FileName)
	if _, err := os.Stat(userPath); err == nil {
		return userPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	seed, err := seedBytes(dataDir, defaultPath)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(userPath, seed, false); err != nil {
		return "", fmt.Errorf("seed %s: %w", userPath, err)
	}
	return userPath, nil
}

func seedBytes(dataDir, defaultPath string) ([]byte, error) {
	b, err := os.ReadFile(defaultPath)
	switch {
	case err == nil:
		var probe Config
		if err := yaml.Unmarshal(b, &probe); err != nil {
			return nil, fmt.Errorf("default config %s: %w", defaultPath, err)
		}
		return b, nil
	case errors.Is(err, os.ErrNotExist):
		def := Default()
		def.App.DataDir = dataDir
		return yaml.Marshal(&def)
	default:
		return nil, err
	}
}

// writeAtomic replaces path through a temp file next to it. With backup set
// the previous version survives as path.bak.
func writeAtomic(path string, b []byte, backup bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if backup {
		bak := path + ".bak"
		_ = os.Remove(bak)
		_ = os.Rename(path, bak)
	}
	return os.Rename(tmp, path)
}
