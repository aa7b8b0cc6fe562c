package document

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/protocol"
)

// MaxDocumentSize bounds one newline-delimited document on a stream.
const MaxDocumentSize = 16 << 10

// Codec is the JSON implementation of protocol.Codec.
type Codec struct {
	device func() devinfo.Info
}

var _ protocol.Codec = Codec{}

type Option func(*Codec)

// WithDevice attaches a device snapshot to every get-config response.
func WithDevice(snapshot func() devinfo.Info) Option {
	return func(c *Codec) { c.device = snapshot }
}

func NewCodec(opts ...Option) Codec {
	var c Codec
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (Codec) Name() string {
	return "json"
}

func (Codec) DecodeCommand(data []byte) (protocol.Command, error) {
	msg, err := unmarshal(data)
	if err != nil {
		return protocol.Command{}, err
	}
	id, err := parseCmd(msg.Cmd)
	if err != nil {
		return protocol.Command{}, err
	}
	payload, err := commandPayload(id, msg.Data)
	if err != nil {
		return protocol.Command{}, &protocol.CommandError{Command: id, Err: err}
	}
	return protocol.Command{ID: id, Payload: payload}, nil
}

func commandPayload(id protocol.CommandID, d *Data) ([]byte, error) {
	switch id {
	case protocol.CmdGetButton, protocol.CmdTestButton:
		b, err := d.buttonID()
		if err != nil {
			return nil, err
		}
		return []byte{b}, nil
	case protocol.CmdSetConfig:
		c, err := d.config()
		if err != nil {
			return nil, err
		}
		return c.MarshalBinary()
	case protocol.CmdSetButton:
		b, err := d.singleButton()
		if err != nil {
			return nil, err
		}
		return b.MarshalBinary()
	default:
		return nil, nil
	}
}

func (c Codec) EncodeResponse(resp protocol.Response) ([]byte, error) {
	code := int(resp.Code)
	msg := Message{Cmd: formatCmd(resp.Command), Status: StatusOK, Code: &code}
	if !resp.OK() {
		msg.Status = StatusError
		msg.Error = resp.Code.String()
		if resp.Command == protocol.CmdNack && len(resp.Result) == 1 {
			msg.Request = formatCmd(protocol.CommandID(resp.Result[0]))
		}
		return marshal(msg)
	}

	switch resp.Command {
	case protocol.CmdGetInfo:
		info, err := devinfo.Decode(resp.Result)
		if err != nil {
			return nil, err
		}
		msg.Data = &Data{Device: deviceOf(info)}
	case protocol.CmdGetConfig:
		cfg, err := deck.DecodeConfig(resp.Result)
		if err != nil {
			return nil, err
		}
		msg.Data = configData(cfg)
		if c.device != nil {
			msg.Data.Device = deviceOf(c.device())
		}
	case protocol.CmdGetButton:
		b, err := deck.DecodeButton(resp.Result)
		if err != nil {
			return nil, err
		}
		msg.Data = &Data{Buttons: []ButtonEntry{buttonEntry(b)}}
	}
	return marshal(msg)
}

func (Codec) EncodeCommand(cmd protocol.Command) ([]byte, error) {
	msg := Message{Cmd: formatCmd(cmd.ID)}
	switch cmd.ID {
	case protocol.CmdGetButton, protocol.CmdTestButton:
		if len(cmd.Payload) != 1 {
			return nil, fmt.Errorf("%w: %s takes one id byte", protocol.ErrInvalidParam, cmd.ID)
		}
		id := int(cmd.Payload[0])
		msg.Data = &Data{Button: &id}
	case protocol.CmdSetConfig:
		cfg, err := deck.DecodeConfig(cmd.Payload)
		if err != nil {
			return nil, err
		}
		msg.Data = configData(cfg)
	case protocol.CmdSetButton:
		b, err := deck.DecodeButton(cmd.Payload)
		if err != nil {
			return nil, err
		}
		msg.Data = &Data{Buttons: []ButtonEntry{buttonEntry(b)}}
	}
	return marshal(msg)
}

func (Codec) DecodeResponse(data []byte) (protocol.Response, error) {
	msg, err := unmarshal(data)
	if err != nil {
		return protocol.Response{}, err
	}
	id, err := parseCmd(msg.Cmd)
	if err != nil {
		return protocol.Response{}, err
	}
	resp := protocol.Response{Command: id}
	switch {
	case msg.Code != nil:
		if *msg.Code < 0 || *msg.Code > 0xFF {
			return protocol.Response{}, fmt.Errorf("%w: code %d", protocol.ErrMalformedDocument, *msg.Code)
		}
		resp.Code = protocol.ErrorCode(*msg.Code)
	case msg.Status == StatusError:
		resp.Code = protocol.CodeInvalidParam
	}
	if !resp.OK() {
		if msg.Request != "" {
			req, err := parseCmd(msg.Request)
			if err != nil {
				return protocol.Response{}, err
			}
			resp.Result = []byte{byte(req)}
		}
		return resp, nil
	}

	switch id {
	case protocol.CmdGetInfo:
		if msg.Data == nil || msg.Data.Device == nil {
			return protocol.Response{}, fmt.Errorf("%w: missing data.device", protocol.ErrMalformedDocument)
		}
		info, err := msg.Data.Device.info()
		if err != nil {
			return protocol.Response{}, err
		}
		resp.Result, _ = info.MarshalBinary()
	case protocol.CmdGetConfig:
		cfg, err := msg.Data.config()
		if err != nil {
			return protocol.Response{}, err
		}
		resp.Result, _ = cfg.MarshalBinary()
	case protocol.CmdGetButton:
		b, err := msg.Data.singleButton()
		if err != nil {
			return protocol.Response{}, err
		}
		resp.Result, _ = b.MarshalBinary()
	}
	return resp, nil
}

// ReadMessage reads one newline-delimited document, skipping blank lines.
func (Codec) ReadMessage(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > MaxDocumentSize {
			return nil, fmt.Errorf("%w: document exceeds %d bytes", protocol.ErrPayloadTooLarge, MaxDocumentSize)
		}
		switch {
		case err == nil:
			if line := bytes.TrimSpace(buf); len(line) > 0 {
				return line, nil
			}
			buf = buf[:0]
		case errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF) && len(bytes.TrimSpace(buf)) > 0:
			return bytes.TrimSpace(buf), nil
		default:
			return nil, err
		}
	}
}

func unmarshal(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %w", protocol.ErrMalformedDocument, err)
	}
	if msg.Cmd == "" {
		return Message{}, fmt.Errorf("%w: missing cmd", protocol.ErrMalformedDocument)
	}
	return msg, nil
}

func marshal(msg Message) ([]byte, error) {
	out, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
