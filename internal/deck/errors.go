package deck

import (
	"errors"
	"fmt"
)

var (
	ErrVersionMismatch   = errors.New("deck: version mismatch")
	ErrChecksumMismatch  = errors.New("deck: checksum mismatch")
	ErrOutOfRangeID      = errors.New("deck: button id out of range")
	ErrUnterminatedLabel = errors.New("deck: label not terminated")
	ErrInvalidAction     = errors.New("deck: invalid action type")
	ErrButtonCount       = errors.New("deck: invalid button count")
	ErrSize              = errors.New("deck: invalid encoded size")
)

// ValidationError reports which invariant a configuration or button broke.
// Button is -1 for configuration-level failures.
type ValidationError struct {
	Kind   error
	Button int
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Button < 0 {
		if e.Detail == "" {
			return e.Kind.Error()
		}
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%v: button %d", e.Kind, e.Button)
	}
	return fmt.Sprintf("%v: button %d: %s", e.Kind, e.Button, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func invalid(kind error, button int, format string, args ...any) error {
	return &ValidationError{Kind: kind, Button: button, Detail: fmt.Sprintf(format, args...)}
}
