package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape shared by the TOML and YAML loaders.
type fileConfig struct {
	DeviceName  string     `toml:"device_name" yaml:"device_name"`
	Codec       string     `toml:"codec" yaml:"codec"`
	ReadTimeout string     `toml:"read_timeout" yaml:"read_timeout"`
	LogLevel    string     `toml:"log_level,omitempty" yaml:"log_level,omitempty"`
	NVS         fileNVS    `toml:"nvs" yaml:"nvs"`
	Listen      fileListen `toml:"listen" yaml:"listen"`
}

type fileNVS struct {
	Driver    string `toml:"driver" yaml:"driver"`
	Path      string `toml:"path" yaml:"path"`
	Namespace string `toml:"namespace" yaml:"namespace"`
	Key       string `toml:"key" yaml:"key"`
}

type fileListen struct {
	Stream      string   `toml:"stream" yaml:"stream"`
	HTTP        string   `toml:"http" yaml:"http"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
}

func loadTOML(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("device_name") {
		cfg.DeviceName = strings.TrimSpace(raw.DeviceName)
	}
	if meta.IsDefined("codec") {
		cfg.Codec = strings.ToLower(strings.TrimSpace(raw.Codec))
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("nvs", "driver") {
		cfg.NVS.Driver = strings.ToLower(strings.TrimSpace(raw.NVS.Driver))
	}
	if meta.IsDefined("nvs", "path") {
		cfg.NVS.Path = strings.TrimSpace(raw.NVS.Path)
	}
	if meta.IsDefined("nvs", "namespace") {
		cfg.NVS.Namespace = strings.TrimSpace(raw.NVS.Namespace)
	}
	if meta.IsDefined("nvs", "key") {
		cfg.NVS.Key = strings.TrimSpace(raw.NVS.Key)
	}
	if meta.IsDefined("listen", "stream") {
		cfg.Listen.Stream = strings.TrimSpace(raw.Listen.Stream)
	}
	if meta.IsDefined("listen", "http") {
		cfg.Listen.HTTP = strings.TrimSpace(raw.Listen.HTTP)
	}
	if meta.IsDefined("listen", "cors_origins") {
		cfg.Listen.CORSOrigins = normalizeOrigins(raw.Listen.CORSOrigins)
	}
	return cfg, nil
}

// loadYAML decodes over the file form of Default, so absent keys keep their
// defaults.
func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	raw := toFile(Default())
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config (%s): %w", path, err)
	}
	return fromFile(raw)
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		DeviceName:  cfg.DeviceName,
		Codec:       cfg.Codec,
		ReadTimeout: cfg.ReadTimeout.String(),
		LogLevel:    cfg.LogLevel,
		NVS: fileNVS{
			Driver:    cfg.NVS.Driver,
			Path:      cfg.NVS.Path,
			Namespace: cfg.NVS.Namespace,
			Key:       cfg.NVS.Key,
		},
		Listen: fileListen{
			Stream:      cfg.Listen.Stream,
			HTTP:        cfg.Listen.HTTP,
			CORSOrigins: cfg.Listen.CORSOrigins,
		},
	}
}

func fromFile(raw fileConfig) (Config, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
	if err != nil {
		return Config{}, fmt.Errorf("parse read_timeout: %w", err)
	}
	return Config{
		DeviceName:  strings.TrimSpace(raw.DeviceName),
		Codec:       strings.ToLower(strings.TrimSpace(raw.Codec)),
		ReadTimeout: d,
		LogLevel:    strings.TrimSpace(raw.LogLevel),
		NVS: NVSConfig{
			Driver:    strings.ToLower(strings.TrimSpace(raw.NVS.Driver)),
			Path:      strings.TrimSpace(raw.NVS.Path),
			Namespace: strings.TrimSpace(raw.NVS.Namespace),
			Key:       strings.TrimSpace(raw.NVS.Key),
		},
		Listen: ListenConfig{
			Stream:      strings.TrimSpace(raw.Listen.Stream),
			HTTP:        strings.TrimSpace(raw.Listen.HTTP),
			CORSOrigins: normalizeOrigins(raw.Listen.CORSOrigins),
		},
	}, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
