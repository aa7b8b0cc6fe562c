package deck

var defaultButtons = [...]struct {
	action Action
	color  RGB
	label  string
}{
	{ConsumerAction(0xCD), RGB{0x4C, 0xAF, 0x50}, "Play"},
	{ConsumerAction(0xB5), RGB{0x21, 0x96, 0xF3}, "Next"},
	{ConsumerAction(0xB6), RGB{0x21, 0x96, 0xF3}, "Prev"},
	{ConsumerAction(0xE9), RGB{0xFF, 0x98, 0x00}, "Vol+"},
	{ConsumerAction(0xEA), RGB{0xFF, 0x98, 0x00}, "Vol-"},
	{ConsumerAction(0xE2), RGB{0xF4, 0x43, 0x36}, "Mute"},
	{ConsumerAction(0xB7), RGB{0x9C, 0x27, 0xB0}, "Stop"},
	{KeyAction(0x6F, 0), RGB{0x60, 0x7D, 0x8B}, "F20"},
	{KeyAction(0x70, 0), RGB{0x60, 0x7D, 0x8B}, "F21"},
	{KeyAction(0x71, 0), RGB{0x60, 0x7D, 0x8B}, "F22"},
	{KeyAction(0x72, 0), RGB{0x60, 0x7D, 0x8B}, "F23"},
	{KeyAction(0x73, 0), RGB{0x60, 0x7D, 0x8B}, "F24"},
	{KeyAction(0x68, 0), RGB{0x3F, 0x51, 0xB5}, "F13"},
	{KeyAction(0x69, 0), RGB{0x3F, 0x51, 0xB5}, "F14"},
	{KeyAction(0x6A, 0), RGB{0x3F, 0x51, 0xB5}, "F15"},
}

// compile-time guard: the default table must cover every board variant.
var _ = defaultButtons[MaxButtons-1]

// DefaultButton returns the compiled-in mapping for button id.
func DefaultButton(id uint8) Button {
	d := defaultButtons[id]
	return Button{
		ID:     id,
		Action: d.action,
		Color:  d.color,
		Label:  NewLabel(d.label),
	}
}

// Default returns the compiled-in configuration, sealed.
func Default() DeviceConfig {
	c := DeviceConfig{
		Version:    ProtocolVersion,
		NumButtons: MaxButtons,
	}
	for i := range c.Buttons {
		c.Buttons[i] = DefaultButton(uint8(i))
	}
	return c.Seal()
}
