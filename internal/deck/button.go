package deck

// Button is one entry of the mapping table. ID must equal the entry's
// position in DeviceConfig.Buttons.
type Button struct {
	ID       uint8
	Action   Action
	Color    RGB
	Reserved uint8
	Label    Label
}

// AppendBinary appends the 16-byte wire form of b.
func (b Button) AppendBinary(dst []byte) []byte {
	dst = append(dst,
		b.ID,
		byte(b.Action.Kind),
		b.Action.Code,
		b.Action.Modifiers,
		b.Color.R,
		b.Color.G,
		b.Color.B,
		b.Reserved,
	)
	return append(dst, b.Label[:]...)
}

func (b Button) MarshalBinary() ([]byte, error) {
	return b.AppendBinary(make([]byte, 0, ButtonSize)), nil
}

// DecodeButton parses exactly ButtonSize bytes. It checks layout only;
// use ValidateButton for the table invariants.
func DecodeButton(data []byte) (Button, error) {
	if len(data) != ButtonSize {
		return Button{}, invalid(ErrSize, -1, "button needs %d bytes, got %d", ButtonSize, len(data))
	}
	b := Button{
		ID: data[0],
		Action: Action{
			Kind:      ActionKind(data[1]),
			Code:      data[2],
			Modifiers: data[3],
		},
		Color:    RGB{R: data[4], G: data[5], B: data[6]},
		Reserved: data[7],
	}
	copy(b.Label[:], data[8:ButtonSize])
	return b, nil
}

func (b *Button) UnmarshalBinary(data []byte) error {
	decoded, err := DecodeButton(data)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// ValidateButton checks id range, action variant and label termination.
func ValidateButton(b Button) error {
	if int(b.ID) >= MaxButtons {
		return invalid(ErrOutOfRangeID, int(b.ID), "max %d", MaxButtons-1)
	}
	if !b.Action.Kind.Valid() {
		return invalid(ErrInvalidAction, int(b.ID), "kind 0x%02x", uint8(b.Action.Kind))
	}
	if !b.Label.Terminated() {
		return invalid(ErrUnterminatedLabel, int(b.ID), "")
	}
	return nil
}
