package devinfo

import (
	"fmt"
	"strconv"
	"strings"
)

// Build identity. Overridable at link time:
//
//	go build -ldflags "-X github.com/danmuck/armdeck/internal/devinfo.Firmware=1.3.0"
var (
	Firmware   = "1.2.0"
	DeviceName = "ArmDeck"
)

// Version is a semantic firmware version with byte-sized components.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion accepts "major.minor.patch" with an optional leading "v".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("devinfo: version %q: want major.minor.patch", s)
	}
	var out [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("devinfo: version %q: %w", s, err)
		}
		out[i] = uint8(n)
	}
	return Version{Major: out[0], Minor: out[1], Patch: out[2]}, nil
}

// FirmwareVersion parses Firmware, falling back to 0.0.0 when a bad value
// was injected at link time.
func FirmwareVersion() Version {
	v, err := ParseVersion(Firmware)
	if err != nil {
		return Version{}
	}
	return v
}
