package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danmuck/armdeck/internal/client"
	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/logging"
	"github.com/spf13/pflag"
)

const usage = `usage: deckctl [flags] <command> [args]

commands:
  info                      device information
  config                    full mapping table
  button <id>               one button
  set-button <id> [flags]   change one button (--action, --label, --color)
  reset                     restore and save the defaults
  test <id>                 simulate one press
  restart                   restart the device
  export <file.yaml>        write the mapping table to a profile
  import <file.yaml>        replace the mapping table from a profile
  actions                   list action names

flags:
`

type globals struct {
	addr    string
	http    string
	codec   string
	timeout time.Duration
	verbose bool
}

func parseGlobals(args []string, stderr io.Writer) (globals, []string, error) {
	var g globals
	fs := pflag.NewFlagSet("deckctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVarP(&g.addr, "addr", "a", "127.0.0.1:7410", "armdeckd stream link address")
	fs.StringVar(&g.http, "http", "", "use the HTTP gateway at this base URL instead of the stream link")
	fs.StringVar(&g.codec, "codec", "frame", "wire codec: frame or json")
	fs.DurationVar(&g.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	fs.BoolVar(&g.verbose, "verbose", false, "log every exchange")
	if err := fs.Parse(args); err != nil {
		return globals{}, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return globals{}, nil, errors.New("missing command")
	}
	return g, fs.Args(), nil
}

func dial(g globals) (*client.Client, error) {
	codec, err := client.CodecByName(g.codec)
	if err != nil {
		return nil, err
	}
	if g.http != "" {
		return client.NewHTTP(g.http, codec, g.timeout), nil
	}
	return client.Dial(g.addr, codec, g.timeout), nil
}

func run(args []string, stdout, stderr io.Writer) error {
	g, rest, err := parseGlobals(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	logging.ConfigureRuntime()
	if g.verbose {
		logging.SetLevel("debug")
	} else {
		logging.SetLevel("warn")
	}

	if rest[0] == "actions" {
		for _, name := range deck.ActionNames() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	c, err := dial(g)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*g.timeout)
	defer cancel()
	return execute(ctx, c, rest, stdout, stderr)
}

func execute(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "info":
		info, err := c.Info(ctx)
		if err != nil {
			return err
		}
		printInfo(stdout, info)
	case "config":
		cfg, err := c.Config(ctx)
		if err != nil {
			return err
		}
		printConfig(stdout, cfg)
	case "button":
		id, err := oneID(cmd, rest)
		if err != nil {
			return err
		}
		b, err := c.Button(ctx, id)
		if err != nil {
			return err
		}
		printButtons(stdout, b)
	case "set-button":
		return setButton(ctx, c, rest, stdout, stderr)
	case "reset":
		if err := c.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "configuration reset to defaults")
	case "test":
		id, err := oneID(cmd, rest)
		if err != nil {
			return err
		}
		if err := c.Test(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "button %d pressed\n", id)
	case "restart":
		if err := c.Restart(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "restart acknowledged")
	case "export":
		if len(rest) != 1 {
			return fmt.Errorf("export takes one file")
		}
		cfg, err := c.Config(ctx)
		if err != nil {
			return err
		}
		if err := client.WriteProfile(rest[0], cfg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", rest[0])
	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("import takes one file")
		}
		cfg, err := client.ReadProfile(rest[0])
		if err != nil {
			return err
		}
		if err := c.SetConfig(ctx, cfg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "applied %s\n", rest[0])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func setButton(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("set-button", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	action := fs.String("action", "", "action name (see deckctl actions) or kind:code:mods")
	label := fs.String("label", "", "label, at most 7 bytes")
	color := fs.String("color", "", "LED color as #RRGGBB")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := oneID("set-button", fs.Args())
	if err != nil {
		return err
	}

	b, err := c.Button(ctx, id)
	if err != nil {
		return err
	}
	if fs.Changed("action") {
		a, err := client.ParseAction(*action)
		if err != nil {
			return err
		}
		b.Action = a
	}
	if fs.Changed("label") {
		b.Label = deck.NewLabel(*label)
	}
	if fs.Changed("color") {
		rgb, err := deck.ParseHex(*color)
		if err != nil {
			return err
		}
		b.Color = rgb
	}
	if err := c.SetButton(ctx, b); err != nil {
		return err
	}
	printButtons(stdout, b)
	return nil
}

func oneID(cmd string, args []string) (uint8, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s takes one button id", cmd)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(args[0]), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad button id %q", args[0])
	}
	return uint8(n), nil
}

func printInfo(w io.Writer, info devinfo.Info) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "name\t%s\n", info.Name)
	fmt.Fprintf(tw, "firmware\t%s\n", info.Firmware)
	fmt.Fprintf(tw, "protocol\t%d\n", info.ProtocolVersion)
	fmt.Fprintf(tw, "buttons\t%d\n", info.NumButtons)
	fmt.Fprintf(tw, "battery\t%d%%\n", info.Battery)
	fmt.Fprintf(tw, "uptime\t%s\n", time.Duration(info.UptimeSeconds)*time.Second)
	fmt.Fprintf(tw, "free heap\t%d\n", info.FreeHeap)
	_ = tw.Flush()
}

func printConfig(w io.Writer, cfg deck.DeviceConfig) {
	fmt.Fprintf(w, "version %d, %d buttons, checksum 0x%08X\n", cfg.Version, cfg.NumButtons, cfg.Checksum)
	printButtons(w, cfg.Buttons[:]...)
}

func printButtons(w io.Writer, buttons ...deck.Button) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tACTION\tCOLOR")
	for _, b := range buttons {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", b.ID, b.Label, client.FormatAction(b.Action), b.Color.Hex())
	}
	_ = tw.Flush()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "deckctl: %v\n", err)
		os.Exit(1)
	}
}
