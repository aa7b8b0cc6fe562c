package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/armdeck/internal/config"
	"github.com/danmuck/armdeck/internal/daemon"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/logging"
	"github.com/spf13/pflag"
)

type options struct {
	configPath  string
	writeConfig string
	listen      string
	http        string
	codec       string
	nvsPath     string
	memory      bool
	version     bool
	set         map[string]bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("armdeckd", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	fs.StringVar(&opts.writeConfig, "write-config", "", "write a default config file to this path and exit")
	fs.StringVar(&opts.listen, "listen", "", "stream link listen address")
	fs.StringVar(&opts.http, "http", "", "HTTP gateway listen address (empty disables)")
	fs.StringVar(&opts.codec, "codec", "", "stream link codec: frame or json")
	fs.StringVar(&opts.nvsPath, "nvs-path", "", "SQLite file backing the configuration blob")
	fs.BoolVar(&opts.memory, "memory", false, "keep the configuration blob in memory only")
	fs.BoolVarP(&opts.version, "version", "v", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	opts.set = map[string]bool{}
	fs.Visit(func(f *pflag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// resolveConfig loads the file (if any) and applies flag overrides.
func resolveConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.set["listen"] {
		cfg.Listen.Stream = strings.TrimSpace(opts.listen)
	}
	if opts.set["http"] {
		cfg.Listen.HTTP = strings.TrimSpace(opts.http)
	}
	if opts.set["codec"] {
		cfg.Codec = strings.ToLower(strings.TrimSpace(opts.codec))
	}
	if opts.set["nvs-path"] {
		cfg.NVS.Driver = config.DriverSQLite
		cfg.NVS.Path = strings.TrimSpace(opts.nvsPath)
	}
	if opts.memory {
		cfg.NVS.Driver = config.DriverMemory
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.version {
		fmt.Fprintf(stdout, "armdeckd %s\n", devinfo.Firmware)
		return nil
	}
	if opts.writeConfig != "" {
		if err := config.WriteTemplate(opts.writeConfig, false); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", opts.writeConfig)
		return nil
	}

	logging.ConfigureRuntime()
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		logging.SetLevel(cfg.LogLevel)
	}
	return daemon.New(cfg).Run()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "armdeckd: %v\n", err)
		os.Exit(1)
	}
}
