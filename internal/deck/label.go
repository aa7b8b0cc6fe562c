package deck

import (
	"bytes"
	"unicode/utf8"
)

// Label is the fixed on-wire label field: up to MaxLabelLen bytes followed
// by at least one NUL. Bytes after the first NUL are carried verbatim so a
// decoded blob re-encodes to the same bytes.
type Label [LabelSize]byte

// NewLabel truncates s to MaxLabelLen bytes on a rune boundary and
// terminates it. Embedded NULs end the label early.
func NewLabel(s string) Label {
	if i := bytes.IndexByte([]byte(s), 0); i >= 0 {
		s = s[:i]
	}
	for len(s) > MaxLabelLen {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	var l Label
	copy(l[:], s)
	return l
}

// Terminated reports whether the label holds a NUL within its bound.
func (l Label) Terminated() bool {
	return bytes.IndexByte(l[:], 0) >= 0
}

func (l Label) String() string {
	if i := bytes.IndexByte(l[:], 0); i >= 0 {
		return string(l[:i])
	}
	return string(l[:])
}
