package document

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/protocol"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	DefaultColor = "#607D8B"
)

// Message is the JSON shape shared by requests and responses.
type Message struct {
	Cmd     string `json:"cmd"`
	Status  string `json:"status,omitempty"`
	Code    *int   `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Request string `json:"request,omitempty"`
	Data    *Data  `json:"data,omitempty"`
}

type Data struct {
	Version  *int          `json:"version,omitempty"`
	Checksum *uint32       `json:"checksum,omitempty"`
	Button   *int          `json:"button,omitempty"`
	Buttons  []ButtonEntry `json:"buttons,omitempty"`
	Device   *Device       `json:"device,omitempty"`
}

type ButtonEntry struct {
	ID     *int    `json:"id,omitempty"`
	Label  *string `json:"label,omitempty"`
	Action string  `json:"action,omitempty"`
	Color  string  `json:"color,omitempty"`
}

type Device struct {
	Name     string `json:"name"`
	Firmware string `json:"firmware"`
	Uptime   uint32 `json:"uptime"`
	Heap     uint32 `json:"heap"`
	Protocol uint8  `json:"protocol"`
	Buttons  uint8  `json:"buttons"`
	Battery  uint8  `json:"battery"`
}

func formatCmd(id protocol.CommandID) string {
	return fmt.Sprintf("0x%02X", uint8(id))
}

func parseCmd(s string) (protocol.CommandID, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	n, err := strconv.ParseUint(raw, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: cmd %q", protocol.ErrMalformedDocument, s)
	}
	return protocol.CommandID(n), nil
}

// FormatAction names a, using the raw "kind:code:mods" form for actions
// outside the name table so they survive a round-trip.
func FormatAction(a deck.Action) string {
	if name, ok := deck.ActionName(a); ok {
		return name
	}
	return fmt.Sprintf("%s:0x%02X:0x%02X", a.Kind, a.Code, a.Modifiers)
}

// ParseAction falls back to the default action, reporting false, when s is
// neither a table name nor a raw action.
func ParseAction(s string) (deck.Action, bool) {
	if a, ok := deck.LookupAction(strings.ToUpper(strings.TrimSpace(s))); ok {
		return a, true
	}
	if a, ok := parseRawAction(s); ok {
		return a, true
	}
	def, _ := deck.LookupAction(deck.DefaultActionName)
	return def, false
}

func parseRawAction(s string) (deck.Action, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return deck.Action{}, false
	}
	var kind deck.ActionKind
	found := false
	for k := deck.ActionNone; k <= deck.ActionCustom; k++ {
		if k.String() == strings.ToLower(parts[0]) {
			kind, found = k, true
			break
		}
	}
	if !found {
		return deck.Action{}, false
	}
	code, err := strconv.ParseUint(parts[1], 0, 8)
	if err != nil {
		return deck.Action{}, false
	}
	mods, err := strconv.ParseUint(parts[2], 0, 8)
	if err != nil {
		return deck.Action{}, false
	}
	return deck.Action{Kind: kind, Code: uint8(code), Modifiers: uint8(mods)}, true
}

func buttonEntry(b deck.Button) ButtonEntry {
	id := int(b.ID)
	label := b.Label.String()
	return ButtonEntry{
		ID:     &id,
		Label:  &label,
		Action: FormatAction(b.Action),
		Color:  b.Color.Hex(),
	}
}

// button converts e, filling defaults for missing fields. index is the
// entry's position and stands in for a missing id.
func (e ButtonEntry) button(index int) (deck.Button, error) {
	id := index
	if e.ID != nil {
		id = *e.ID
	}
	if id < 0 || id > 0xFF {
		return deck.Button{}, fmt.Errorf("%w: button id %d", protocol.ErrInvalidParam, id)
	}
	label := fmt.Sprintf("Key %d", id+1)
	if e.Label != nil {
		label = *e.Label
	}
	color := e.Color
	if color == "" {
		color = DefaultColor
	}
	rgb, err := deck.ParseHex(color)
	if err != nil {
		return deck.Button{}, fmt.Errorf("%w: button %d: %w", protocol.ErrMalformedDocument, id, err)
	}
	action, _ := ParseAction(e.Action)
	return deck.Button{
		ID:     uint8(id),
		Action: action,
		Color:  rgb,
		Label:  deck.NewLabel(label),
	}, nil
}

// configData carries the document form of c: labels cut at their NUL and
// made valid UTF-8, reserved fields zeroed. The checksum is that of the
// form carried, so a decoder rebuilding it gets the same value.
func configData(c deck.DeviceConfig) *Data {
	c = documentForm(c)
	version := int(c.Version)
	sum := c.Checksum
	d := &Data{Version: &version, Checksum: &sum, Buttons: make([]ButtonEntry, 0, len(c.Buttons))}
	for _, b := range c.Buttons {
		d.Buttons = append(d.Buttons, buttonEntry(b))
	}
	return d
}

func documentForm(c deck.DeviceConfig) deck.DeviceConfig {
	c.NumButtons = deck.MaxButtons
	c.Reserved = 0
	for i := range c.Buttons {
		c.Buttons[i].Reserved = 0
		c.Buttons[i].Label = deck.NewLabel(validLabel(c.Buttons[i].Label.String()))
	}
	return c.Seal()
}

// validLabel replaces each invalid byte with U+FFFD, as encoding/json does.
func validLabel(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
	}
	return b.String()
}

// config rebuilds a sealed DeviceConfig. A supplied checksum must match the
// recomputed one.
func (d *Data) config() (deck.DeviceConfig, error) {
	if d == nil {
		return deck.DeviceConfig{}, fmt.Errorf("%w: missing data", protocol.ErrMalformedDocument)
	}
	if len(d.Buttons) != deck.MaxButtons {
		return deck.DeviceConfig{}, fmt.Errorf("%w: got %d buttons, want %d", protocol.ErrInvalidParam, len(d.Buttons), deck.MaxButtons)
	}
	c := deck.DeviceConfig{Version: deck.ProtocolVersion, NumButtons: deck.MaxButtons}
	if d.Version != nil {
		if *d.Version < 0 || *d.Version > 0xFF {
			return deck.DeviceConfig{}, fmt.Errorf("%w: version %d", protocol.ErrInvalidParam, *d.Version)
		}
		c.Version = uint8(*d.Version)
	}
	for i, entry := range d.Buttons {
		b, err := entry.button(i)
		if err != nil {
			return deck.DeviceConfig{}, err
		}
		c.Buttons[i] = b
	}
	c = c.Seal()
	if d.Checksum != nil && *d.Checksum != c.Checksum {
		return deck.DeviceConfig{}, fmt.Errorf("%w: document=0x%08x computed=0x%08x", protocol.ErrChecksumMismatch, *d.Checksum, c.Checksum)
	}
	return c, nil
}

func (d *Data) singleButton() (deck.Button, error) {
	if d == nil || len(d.Buttons) != 1 {
		return deck.Button{}, fmt.Errorf("%w: want exactly one button", protocol.ErrInvalidParam)
	}
	if d.Buttons[0].ID == nil {
		return deck.Button{}, fmt.Errorf("%w: button id is required", protocol.ErrInvalidParam)
	}
	return d.Buttons[0].button(0)
}

func (d *Data) buttonID() (byte, error) {
	if d == nil || d.Button == nil {
		return 0, fmt.Errorf("%w: missing data.button", protocol.ErrInvalidParam)
	}
	if *d.Button < 0 || *d.Button > 0xFF {
		return 0, fmt.Errorf("%w: button %d", protocol.ErrInvalidParam, *d.Button)
	}
	return byte(*d.Button), nil
}

func deviceOf(i devinfo.Info) *Device {
	return &Device{
		Name:     i.Name,
		Firmware: i.Firmware.String(),
		Uptime:   i.UptimeSeconds,
		Heap:     i.FreeHeap,
		Protocol: i.ProtocolVersion,
		Buttons:  i.NumButtons,
		Battery:  i.Battery,
	}
}

func (d *Device) info() (devinfo.Info, error) {
	v, err := devinfo.ParseVersion(d.Firmware)
	if err != nil {
		return devinfo.Info{}, fmt.Errorf("%w: %w", protocol.ErrMalformedDocument, err)
	}
	return devinfo.Info{
		ProtocolVersion: d.Protocol,
		Firmware:        v,
		NumButtons:      d.Buttons,
		Battery:         d.Battery,
		UptimeSeconds:   d.Uptime,
		FreeHeap:        d.Heap,
		Name:            d.Name,
	}, nil
}
