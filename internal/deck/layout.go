package deck

// Binary layout constants. Multi-byte fields are big-endian.
const (
	// ProtocolVersion is the only configuration version accepted by Validate.
	ProtocolVersion uint8 = 0x01

	LabelSize   = 8
	MaxLabelLen = LabelSize - 1

	// ButtonSize: id, action, code, modifiers, r, g, b, reserved, label[8].
	ButtonSize = 8 + LabelSize

	// ConfigHeaderSize: version, num_buttons, reserved(2).
	ConfigHeaderSize = 4
	ChecksumSize     = 4

	// ConfigSize is the exact size of a persisted or transmitted DeviceConfig.
	ConfigSize = ConfigHeaderSize + MaxButtons*ButtonSize + ChecksumSize
)
