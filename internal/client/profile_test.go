package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/testutil/testlog"
)

func TestProfileRoundTrip(t *testing.T) {
	testlog.Start(t)
	cfg := deck.Default()
	cfg.Buttons[3].Action = deck.Action{Kind: deck.ActionMacro, Code: 0x12, Modifiers: 0x01}
	cfg.Buttons[3].Label = deck.NewLabel("Macro")
	cfg = cfg.Seal()

	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := WriteProfile(path, cfg); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	got, err := ReadProfile(path)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if got != cfg {
		t.Fatalf("profile drifted:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestProfileErrors(t *testing.T) {
	testlog.Start(t)
	base := ProfileOf(deck.Default())

	cases := []struct {
		name   string
		mutate func(p *Profile)
		want   string
	}{
		{name: "missing button", mutate: func(p *Profile) { p.Buttons = p.Buttons[1:] }, want: "buttons"},
		{name: "repeated id", mutate: func(p *Profile) { p.Buttons[1].ID = 0 }, want: "repeated"},
		{name: "unknown action", mutate: func(p *Profile) { p.Buttons[0].Action = "LAUNCH_ROCKET" }, want: "unknown action"},
		{name: "bad color", mutate: func(p *Profile) { p.Buttons[0].Color = "red" }, want: "color"},
		{name: "bad version", mutate: func(p *Profile) { p.Version = 9 }, want: "version"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			p.Buttons = append([]ProfileButton(nil), base.Buttons...)
			tc.mutate(&p)
			if _, err := p.Config(); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestReadProfileDefaultsVersion(t *testing.T) {
	testlog.Start(t)
	p := ProfileOf(deck.Default())
	p.Version = 0
	cfg, err := p.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Version != deck.ProtocolVersion {
		t.Fatalf("expected current version, got %d", cfg.Version)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("buttons: {"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadProfile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
