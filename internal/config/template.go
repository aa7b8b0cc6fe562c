package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Template renders cfg in the given format ("toml" or "yaml").
func Template(cfg Config, format string) ([]byte, error) {
	raw := toFile(cfg)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml", "":
		return toml.Marshal(raw)
	case "yaml", "yml":
		return yaml.Marshal(raw)
	default:
		return nil, fmt.Errorf("unknown config format: %s", format)
	}
}

// WriteTemplate writes the default configuration to path, choosing the
// format from the extension.
func WriteTemplate(path string, overwrite bool) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format != "yaml" && format != "yml" {
		format = "toml"
	}
	data, err := Template(Default(), format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
