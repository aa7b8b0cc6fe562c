package frame

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/armdeck/internal/protocol"
	"github.com/danmuck/armdeck/internal/testutil/testlog"
)

func TestBuildParseRoundTrip(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		name    string
		command uint8
		payload []byte
	}{
		{name: "empty payload", command: uint8(protocol.CmdGetInfo)},
		{name: "one byte", command: uint8(protocol.CmdGetButton), payload: []byte{3}},
		{name: "button sized", command: uint8(protocol.CmdSetButton), payload: bytes.Repeat([]byte{0x41}, 16)},
		{name: "maximum payload", command: uint8(protocol.CmdSetConfig), payload: bytes.Repeat([]byte{0xAA}, MaxPayload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Build(tt.command, tt.payload)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if len(raw) != HeaderLen+len(tt.payload)+ChecksumLen {
				t.Fatalf("unexpected frame size %d", len(raw))
			}
			if raw[0] != Magic0 || raw[1] != Magic1 {
				t.Fatalf("missing magic: % x", raw[:2])
			}
			if int(raw[3]) != len(tt.payload) {
				t.Fatalf("length byte = %d, want %d", raw[3], len(tt.payload))
			}
			if Checksum(raw) != 0 {
				t.Fatalf("xor over a whole frame must be zero")
			}

			f, err := Parse(raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if f.Header.Command != tt.command || !bytes.Equal(f.Payload, tt.payload) {
				t.Fatalf("round-trip mismatch: %+v", f)
			}
		})
	}
}

func TestBuildRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)

	_, err := Build(uint8(protocol.CmdSetConfig), make([]byte, MaxPayload+1))
	if !errors.Is(err, protocol.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestParseErrorOrdering(t *testing.T) {
	testlog.Start(t)

	good, _ := Build(uint8(protocol.CmdGetButton), []byte{3})

	badMagicAndLength := append([]byte{0x00, Magic1}, good[2:len(good)-1]...)
	badLengthAndChecksum := append(append([]byte(nil), good...), 0x00)
	badLengthAndChecksum[len(badLengthAndChecksum)-2] ^= 0xFF
	badChecksum := append([]byte(nil), good...)
	badChecksum[4] ^= 0x01

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "nil", data: nil, want: protocol.ErrBadMagic},
		{name: "one wrong byte", data: []byte{0x01}, want: protocol.ErrBadMagic},
		{name: "one right byte", data: []byte{Magic0}, want: protocol.ErrLengthMismatch},
		{name: "magic only", data: []byte{Magic0, Magic1}, want: protocol.ErrLengthMismatch},
		{name: "second magic wrong", data: []byte{Magic0, 0x00, 0x10, 0x00, 0x00}, want: protocol.ErrBadMagic},
		{name: "bad magic wins over length", data: badMagicAndLength, want: protocol.ErrBadMagic},
		{name: "length wins over checksum", data: badLengthAndChecksum, want: protocol.ErrLengthMismatch},
		{name: "truncated", data: good[:len(good)-1], want: protocol.ErrLengthMismatch},
		{name: "overlong", data: append(append([]byte(nil), good...), 0x00, 0x00), want: protocol.ErrLengthMismatch},
		{name: "checksum", data: badChecksum, want: protocol.ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseNeverPanicsOnPrefixes(t *testing.T) {
	testlog.Start(t)

	raw, _ := Build(uint8(protocol.CmdSetButton), bytes.Repeat([]byte{0x7f}, 16))
	for i := 0; i < len(raw); i++ {
		if _, err := Parse(raw[:i]); err == nil {
			t.Fatalf("prefix of %d bytes decoded without error", i)
		}
	}
}

func TestCodecCommandRoundTrip(t *testing.T) {
	testlog.Start(t)

	codec := NewCodec()
	cmds := []protocol.Command{
		{ID: protocol.CmdGetInfo},
		{ID: protocol.CmdGetConfig},
		{ID: protocol.CmdGetButton, Payload: []byte{0}},
		{ID: protocol.CmdTestButton, Payload: []byte{11}},
		{ID: protocol.CmdSetButton, Payload: bytes.Repeat([]byte{1}, 16)},
		{ID: protocol.CommandID(0x99), Payload: []byte{1, 2, 3}},
	}
	for _, cmd := range cmds {
		raw, err := codec.EncodeCommand(cmd)
		if err != nil {
			t.Fatalf("encode %s: %v", cmd.ID, err)
		}
		got, err := codec.DecodeCommand(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", cmd.ID, err)
		}
		if got.ID != cmd.ID || !bytes.Equal(got.Payload, cmd.Payload) {
			t.Fatalf("command mismatch: got %+v want %+v", got, cmd)
		}
	}
}

func TestCodecResponseRoundTrip(t *testing.T) {
	testlog.Start(t)

	codec := NewCodec()
	in := protocol.Response{Command: protocol.CmdGetButton, Code: protocol.CodeNone, Result: []byte{1, 2, 3}}
	raw, err := codec.EncodeResponse(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if raw[3] != byte(1+len(in.Result)) {
		t.Fatalf("response length must include the error byte, got %d", raw[3])
	}
	if raw[4] != byte(protocol.CodeNone) {
		t.Fatalf("error byte = 0x%02x", raw[4])
	}
	out, err := codec.DecodeResponse(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Command != in.Command || out.Code != in.Code || !bytes.Equal(out.Result, in.Result) {
		t.Fatalf("response mismatch: got %+v want %+v", out, in)
	}

	nack, _ := codec.EncodeResponse(protocol.Nack(protocol.CodeChecksum, nil))
	out, err = codec.DecodeResponse(nack)
	if err != nil {
		t.Fatalf("decode nack: %v", err)
	}
	if out.Command != protocol.CmdNack || out.Code != protocol.CodeChecksum || len(out.Result) != 0 {
		t.Fatalf("unexpected nack: %+v", out)
	}

	empty, _ := Build(uint8(protocol.CmdAck), nil)
	if _, err := codec.DecodeResponse(empty); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadFrameFromStream(t *testing.T) {
	testlog.Start(t)

	first, _ := Build(uint8(protocol.CmdGetInfo), nil)
	second, _ := Build(uint8(protocol.CmdGetButton), []byte{5})
	r := bufio.NewReader(bytes.NewReader(append(append([]byte(nil), first...), second...)))

	codec := NewCodec()
	got, err := codec.ReadMessage(r)
	if err != nil || !bytes.Equal(got, first) {
		t.Fatalf("first frame: %v % x", err, got)
	}
	got, err = codec.ReadMessage(r)
	if err != nil || !bytes.Equal(got, second) {
		t.Fatalf("second frame: %v % x", err, got)
	}
	if _, err := codec.ReadMessage(r); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadFrameMalformedStream(t *testing.T) {
	testlog.Start(t)

	if _, err := ReadFrame(bytes.NewReader([]byte{Magic0, Magic1})); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	head, err := ReadFrame(bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05}))
	if !errors.Is(err, protocol.ErrBadMagic) || len(head) != HeaderLen {
		t.Fatalf("expected bad magic with header bytes, got %v % x", err, head)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{Magic0, Magic1, 0x30, 0x05, 0x01})); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}
