package devinfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	NameSize = 16
	// Size is the binary snapshot length:
	// proto, fw major/minor/patch, buttons, battery, uptime u32, heap u32, name[16].
	Size = 6 + 4 + 4 + NameSize

	// BatteryUnmeasured is reported when no battery gauge is wired.
	BatteryUnmeasured uint8 = 100
)

var ErrSize = errors.New("devinfo: wrong snapshot size")

// Info is one device information snapshot. It is recomputed on every query
// and never persisted.
type Info struct {
	ProtocolVersion uint8
	Firmware        Version
	NumButtons      uint8
	Battery         uint8
	UptimeSeconds   uint32
	FreeHeap        uint32
	Name            string
}

// AppendBinary appends the Size-byte wire form of i. Names longer than
// NameSize-1 bytes are cut so the field stays NUL terminated.
func (i Info) AppendBinary(dst []byte) []byte {
	dst = append(dst,
		i.ProtocolVersion,
		i.Firmware.Major,
		i.Firmware.Minor,
		i.Firmware.Patch,
		i.NumButtons,
		i.Battery,
	)
	dst = binary.BigEndian.AppendUint32(dst, i.UptimeSeconds)
	dst = binary.BigEndian.AppendUint32(dst, i.FreeHeap)
	var name [NameSize]byte
	copy(name[:NameSize-1], i.Name)
	return append(dst, name[:]...)
}

func (i Info) MarshalBinary() ([]byte, error) {
	return i.AppendBinary(make([]byte, 0, Size)), nil
}

// Decode parses exactly Size bytes.
func Decode(data []byte) (Info, error) {
	if len(data) != Size {
		return Info{}, fmt.Errorf("%w: got %d, want %d", ErrSize, len(data), Size)
	}
	name := data[14:Size]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n]
	}
	return Info{
		ProtocolVersion: data[0],
		Firmware:        Version{Major: data[1], Minor: data[2], Patch: data[3]},
		NumButtons:      data[4],
		Battery:         data[5],
		UptimeSeconds:   binary.BigEndian.Uint32(data[6:10]),
		FreeHeap:        binary.BigEndian.Uint32(data[10:14]),
		Name:            string(name),
	}, nil
}

func (i *Info) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*i = decoded
	return nil
}
