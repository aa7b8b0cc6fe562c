package client

import (
	"fmt"
	"os"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/protocol/document"
	"gopkg.in/yaml.v3"
)

// Profile is the host-side file form of a mapping table, suitable for
// keeping a layout under version control.
type Profile struct {
	Version uint8           `yaml:"version"`
	Buttons []ProfileButton `yaml:"buttons"`
}

type ProfileButton struct {
	ID     uint8  `yaml:"id"`
	Label  string `yaml:"label"`
	Action string `yaml:"action"`
	Color  string `yaml:"color"`
}

func ProfileOf(cfg deck.DeviceConfig) Profile {
	p := Profile{Version: cfg.Version, Buttons: make([]ProfileButton, 0, len(cfg.Buttons))}
	for _, b := range cfg.Buttons {
		p.Buttons = append(p.Buttons, ProfileButton{
			ID:     b.ID,
			Label:  b.Label.String(),
			Action: FormatAction(b.Action),
			Color:  b.Color.Hex(),
		})
	}
	return p
}

// Config converts p into a sealed configuration. Every button must be
// listed exactly once.
func (p Profile) Config() (deck.DeviceConfig, error) {
	if len(p.Buttons) != deck.MaxButtons {
		return deck.DeviceConfig{}, fmt.Errorf("profile: %d buttons, want %d", len(p.Buttons), deck.MaxButtons)
	}
	cfg := deck.DeviceConfig{Version: p.Version, NumButtons: deck.MaxButtons}
	if cfg.Version == 0 {
		cfg.Version = deck.ProtocolVersion
	}
	var seen [deck.MaxButtons]bool
	for _, pb := range p.Buttons {
		if int(pb.ID) >= deck.MaxButtons || seen[pb.ID] {
			return deck.DeviceConfig{}, fmt.Errorf("profile: button id %d is out of range or repeated", pb.ID)
		}
		seen[pb.ID] = true
		b, err := pb.button()
		if err != nil {
			return deck.DeviceConfig{}, err
		}
		cfg.Buttons[pb.ID] = b
	}
	cfg = cfg.Seal()
	if err := deck.Validate(cfg); err != nil {
		return deck.DeviceConfig{}, fmt.Errorf("profile: %w", err)
	}
	return cfg, nil
}

func (pb ProfileButton) button() (deck.Button, error) {
	action, err := ParseAction(pb.Action)
	if err != nil {
		return deck.Button{}, fmt.Errorf("profile: button %d: %w", pb.ID, err)
	}
	color, err := deck.ParseHex(pb.Color)
	if err != nil {
		return deck.Button{}, fmt.Errorf("profile: button %d: %w", pb.ID, err)
	}
	return deck.Button{ID: pb.ID, Action: action, Color: color, Label: deck.NewLabel(pb.Label)}, nil
}

func WriteProfile(path string, cfg deck.DeviceConfig) error {
	data, err := yaml.Marshal(ProfileOf(cfg))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadProfile(path string) (deck.DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deck.DeviceConfig{}, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return deck.DeviceConfig{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p.Config()
}

// FormatAction names a the way the document codec does.
func FormatAction(a deck.Action) string {
	return document.FormatAction(a)
}

// ParseAction is the strict form of the document codec's action parser: an
// unrecognised name is an error rather than the default action.
func ParseAction(s string) (deck.Action, error) {
	a, ok := document.ParseAction(s)
	if !ok {
		return deck.Action{}, fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}
