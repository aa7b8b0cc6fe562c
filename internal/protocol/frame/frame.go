package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/armdeck/internal/protocol"
)

// Layout: [magic0][magic1][command][length][payload...][checksum]
//
// length counts the bytes between header and checksum. For responses that
// region starts with the error code byte.
const (
	Magic0 byte = 0xAD
	Magic1 byte = 0xDC

	HeaderLen   = 4
	ChecksumLen = 1
	MinFrameLen = HeaderLen + ChecksumLen
	MaxPayload  = 0xFF
	MaxFrameLen = HeaderLen + MaxPayload + ChecksumLen
)

// ErrShortHeader wraps io.ErrUnexpectedEOF: the peer went away mid-header.
var ErrShortHeader = fmt.Errorf("frame: short fixed header: %w", io.ErrUnexpectedEOF)

// Header is the fixed wire header.
type Header struct {
	Command uint8
	Length  uint8
}

// Frame is one complete, verified wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Checksum is the XOR of every byte in data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

func EncodeHeader(h Header) []byte {
	return []byte{Magic0, Magic1, h.Command, h.Length}
}

// Build encodes a frame for command with the given payload.
func Build(command uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", protocol.ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, 0, HeaderLen+len(payload)+ChecksumLen)
	buf = append(buf, EncodeHeader(Header{Command: command, Length: uint8(len(payload))})...)
	buf = append(buf, payload...)
	return append(buf, Checksum(buf)), nil
}

// Parse verifies data as exactly one frame. Checks run magic, then length,
// then checksum; the first failure is returned.
func Parse(data []byte) (Frame, error) {
	if !hasMagic(data) {
		return Frame{}, protocol.ErrBadMagic
	}
	if len(data) < MinFrameLen {
		return Frame{}, fmt.Errorf("%w: %d bytes is shorter than a frame", protocol.ErrLengthMismatch, len(data))
	}
	h := Header{Command: data[2], Length: data[3]}
	if want := HeaderLen + int(h.Length) + ChecksumLen; len(data) != want {
		return Frame{}, fmt.Errorf("%w: header says %d bytes, got %d", protocol.ErrLengthMismatch, want, len(data))
	}
	body := data[:len(data)-ChecksumLen]
	if sum, recv := Checksum(body), data[len(data)-1]; sum != recv {
		return Frame{}, fmt.Errorf("%w: calc=0x%02x recv=0x%02x", protocol.ErrChecksumMismatch, sum, recv)
	}
	f := Frame{Header: h}
	if h.Length > 0 {
		f.Payload = make([]byte, h.Length)
		copy(f.Payload, data[HeaderLen:HeaderLen+int(h.Length)])
	}
	return f, nil
}

// hasMagic checks whichever magic bytes are present, so a one-byte input
// with a wrong first byte still reports bad magic.
func hasMagic(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if data[0] != Magic0 {
		return false
	}
	return len(data) < 2 || data[1] == Magic1
}

// ReadFrame reads one frame worth of bytes from a stream without verifying
// the checksum. On bad magic it returns the header bytes read so far with
// protocol.ErrBadMagic; the stream is no longer aligned after that.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	if !hasMagic(head[:]) {
		return head[:], protocol.ErrBadMagic
	}
	buf := make([]byte, HeaderLen+int(head[3])+ChecksumLen)
	copy(buf, head[:])
	if _, err := io.ReadFull(r, buf[HeaderLen:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// Codec is the binary frame implementation of protocol.Codec.
type Codec struct{}

var _ protocol.Codec = Codec{}

func NewCodec() Codec {
	return Codec{}
}

func (Codec) Name() string {
	return "frame"
}

func (Codec) DecodeCommand(data []byte) (protocol.Command, error) {
	f, err := Parse(data)
	if err != nil {
		return protocol.Command{}, err
	}
	return protocol.Command{ID: protocol.CommandID(f.Header.Command), Payload: f.Payload}, nil
}

func (Codec) EncodeResponse(resp protocol.Response) ([]byte, error) {
	payload := make([]byte, 0, 1+len(resp.Result))
	payload = append(payload, byte(resp.Code))
	payload = append(payload, resp.Result...)
	return Build(uint8(resp.Command), payload)
}

func (Codec) EncodeCommand(cmd protocol.Command) ([]byte, error) {
	return Build(uint8(cmd.ID), cmd.Payload)
}

func (Codec) DecodeResponse(data []byte) (protocol.Response, error) {
	f, err := Parse(data)
	if err != nil {
		return protocol.Response{}, err
	}
	if len(f.Payload) == 0 {
		return protocol.Response{}, fmt.Errorf("%w: response without error code", protocol.ErrTruncated)
	}
	resp := protocol.Response{
		Command: protocol.CommandID(f.Header.Command),
		Code:    protocol.ErrorCode(f.Payload[0]),
	}
	if len(f.Payload) > 1 {
		resp.Result = f.Payload[1:]
	}
	return resp, nil
}

// ReadMessage reads one frame from a buffered stream.
func (Codec) ReadMessage(r *bufio.Reader) ([]byte, error) {
	return ReadFrame(r)
}
