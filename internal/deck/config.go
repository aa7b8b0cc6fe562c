package deck

import (
	"encoding/binary"
	"hash/crc32"
)

// DeviceConfig is the complete mapping table plus its integrity fields.
type DeviceConfig struct {
	Version    uint8
	NumButtons uint8
	Reserved   uint16
	Buttons    [MaxButtons]Button
	Checksum   uint32
}

// AppendBinary appends the ConfigSize-byte blob form of c.
func (c DeviceConfig) AppendBinary(dst []byte) []byte {
	dst = c.appendBody(dst)
	return binary.BigEndian.AppendUint32(dst, c.Checksum)
}

func (c DeviceConfig) MarshalBinary() ([]byte, error) {
	return c.AppendBinary(make([]byte, 0, ConfigSize)), nil
}

func (c DeviceConfig) appendBody(dst []byte) []byte {
	dst = append(dst, c.Version, c.NumButtons)
	dst = binary.BigEndian.AppendUint16(dst, c.Reserved)
	for _, b := range c.Buttons {
		dst = b.AppendBinary(dst)
	}
	return dst
}

// DecodeConfig parses exactly ConfigSize bytes without validating them.
func DecodeConfig(data []byte) (DeviceConfig, error) {
	if len(data) != ConfigSize {
		return DeviceConfig{}, invalid(ErrSize, -1, "config needs %d bytes, got %d", ConfigSize, len(data))
	}
	c := DeviceConfig{
		Version:    data[0],
		NumButtons: data[1],
		Reserved:   binary.BigEndian.Uint16(data[2:4]),
	}
	off := ConfigHeaderSize
	for i := range c.Buttons {
		b, err := DecodeButton(data[off : off+ButtonSize])
		if err != nil {
			return DeviceConfig{}, err
		}
		c.Buttons[i] = b
		off += ButtonSize
	}
	c.Checksum = binary.BigEndian.Uint32(data[off : off+ChecksumSize])
	return c, nil
}

func (c *DeviceConfig) UnmarshalBinary(data []byte) error {
	decoded, err := DecodeConfig(data)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// Checksum is the CRC32 (IEEE) of every blob byte except the checksum field.
func Checksum(c DeviceConfig) uint32 {
	return crc32.ChecksumIEEE(c.appendBody(make([]byte, 0, ConfigSize)))
}

// Seal returns c with its checksum recomputed.
func (c DeviceConfig) Seal() DeviceConfig {
	c.Checksum = Checksum(c)
	return c
}

// Validate checks version, button count, checksum and every button. It
// never mutates c.
func Validate(c DeviceConfig) error {
	if c.Version != ProtocolVersion {
		return invalid(ErrVersionMismatch, -1, "got %d, want %d", c.Version, ProtocolVersion)
	}
	if int(c.NumButtons) != MaxButtons {
		return invalid(ErrButtonCount, -1, "got %d, want %d", c.NumButtons, MaxButtons)
	}
	if sum := Checksum(c); sum != c.Checksum {
		return invalid(ErrChecksumMismatch, -1, "stored=0x%08x computed=0x%08x", c.Checksum, sum)
	}
	for i, b := range c.Buttons {
		if int(b.ID) != i {
			return invalid(ErrOutOfRangeID, i, "id %d at index %d", b.ID, i)
		}
		if err := ValidateButton(b); err != nil {
			return err
		}
	}
	return nil
}

// Valid is the boolean form of Validate.
func (c DeviceConfig) Valid() bool {
	return Validate(c) == nil
}
