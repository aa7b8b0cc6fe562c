package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/nvs"
)

const (
	CodecFrame    = "frame"
	CodecDocument = "json"

	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the armdeckd runtime configuration.
type Config struct {
	DeviceName  string
	Codec       string
	ReadTimeout time.Duration
	LogLevel    string
	NVS         NVSConfig
	Listen      ListenConfig
}

type NVSConfig struct {
	Driver    string
	Path      string
	Namespace string
	Key       string
}

type ListenConfig struct {
	// Stream is the TCP address of the command link.
	Stream string
	// HTTP is the gateway address. Empty disables the gateway.
	HTTP        string
	CORSOrigins []string
}

func Default() Config {
	return Config{
		DeviceName:  devinfo.DeviceName,
		Codec:       CodecFrame,
		ReadTimeout: 2 * time.Minute,
		NVS: NVSConfig{
			Driver:    DriverSQLite,
			Path:      "armdeck.db",
			Namespace: "armdeck_cfg",
			Key:       "buttons",
		},
		Listen: ListenConfig{
			Stream: "127.0.0.1:7410",
		},
	}
}

// Load reads a TOML or YAML file (by extension) over Default and validates
// the result.
func Load(path string) (Config, error) {
	var (
		cfg Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	default:
		cfg, err = loadTOML(path)
	}
	if err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	name := strings.TrimSpace(cfg.DeviceName)
	if name == "" {
		return fmt.Errorf("device_name is required")
	}
	if len(name) > devinfo.NameSize-1 {
		return fmt.Errorf("device_name %q exceeds %d bytes", name, devinfo.NameSize-1)
	}
	switch cfg.Codec {
	case CodecFrame, CodecDocument:
	default:
		return fmt.Errorf("codec must be %q or %q, got %q", CodecFrame, CodecDocument, cfg.Codec)
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative")
	}
	if cfg.LogLevel != "" {
		switch strings.ToLower(cfg.LogLevel) {
		case "trace", "debug", "info", "warn", "error", "disabled":
		default:
			return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
		}
	}
	if err := validateNVS(cfg.NVS); err != nil {
		return fmt.Errorf("nvs: %w", err)
	}
	if strings.TrimSpace(cfg.Listen.Stream) == "" {
		return fmt.Errorf("listen.stream is required")
	}
	return nil
}

func validateNVS(cfg NVSConfig) error {
	switch cfg.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return fmt.Errorf("path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("driver must be %q or %q, got %q", DriverSQLite, DriverMemory, cfg.Driver)
	}
	for field, v := range map[string]string{"namespace": cfg.Namespace, "key": cfg.Key} {
		if v == "" || len(v) > nvs.MaxKeyLen {
			return fmt.Errorf("%s must be 1..%d bytes, got %q", field, nvs.MaxKeyLen, v)
		}
	}
	return nil
}
