package protocol

import "errors"

// Decode errors. All are client-data faults answered with a NACK.
var (
	ErrBadMagic          = errors.New("protocol: bad magic")
	ErrLengthMismatch    = errors.New("protocol: length mismatch")
	ErrChecksumMismatch  = errors.New("protocol: checksum mismatch")
	ErrTruncated         = errors.New("protocol: truncated data")
	ErrPayloadTooLarge   = errors.New("protocol: payload too large")
	ErrMalformedDocument = errors.New("protocol: malformed document")
	ErrUnknownCommand    = errors.New("protocol: unknown command")
)

// Dispatch errors raised while executing a decoded command.
var (
	ErrInvalidParam = errors.New("protocol: invalid parameter")
	ErrNotFound     = errors.New("protocol: not found")
	ErrMemory       = errors.New("protocol: persistence failure")
	ErrBusy         = errors.New("protocol: busy")
)

// CodeFor maps err onto the wire error code. Validation failures and
// unrecognised errors map to CodeInvalidParam so a reply is always well
// formed.
func CodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrBadMagic):
		return CodeMagic
	case errors.Is(err, ErrLengthMismatch), errors.Is(err, ErrTruncated), errors.Is(err, ErrPayloadTooLarge):
		return CodeLength
	case errors.Is(err, ErrChecksumMismatch):
		return CodeChecksum
	case errors.Is(err, ErrUnknownCommand):
		return CodeInvalidCmd
	case errors.Is(err, ErrMemory):
		return CodeMemory
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrBusy):
		return CodeBusy
	default:
		return CodeInvalidParam
	}
}

// CommandError is a decode failure that happened after the command id was
// known. It is answered under that command id instead of a NACK.
type CommandError struct {
	Command CommandID
	Err     error
}

func (e *CommandError) Error() string {
	return e.Command.String() + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
