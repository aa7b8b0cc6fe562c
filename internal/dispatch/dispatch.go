package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/observability"
	"github.com/danmuck/armdeck/internal/protocol"
	"github.com/danmuck/armdeck/internal/store"
)

// InfoSource supplies device info snapshots.
type InfoSource interface {
	Snapshot() devinfo.Info
}

// Tester simulates a press and release of one button.
type Tester interface {
	Tap(id uint8) error
}

// Restarter receives the restart request. It must not block; the response
// for the restart command is still being delivered when it is called.
type Restarter interface {
	RequestRestart()
}

type RestartFunc func()

func (f RestartFunc) RequestRestart() { f() }

// Dispatcher is stateless between calls. Calls are serialized so each
// command, persistence included, completes before the next one starts.
type Dispatcher struct {
	mu      sync.Mutex
	codec   protocol.Codec
	store   *store.Store
	info    InfoSource
	tester  Tester
	restart Restarter
}

type Option func(*Dispatcher)

func WithTester(t Tester) Option {
	return func(d *Dispatcher) { d.tester = t }
}

func WithRestarter(r Restarter) Option {
	return func(d *Dispatcher) { d.restart = r }
}

func New(codec protocol.Codec, st *store.Store, info InfoSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		codec: codec,
		store: st,
		info:  info,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Codec() protocol.Codec {
	return d.codec
}

// Handle answers one request with the default codec.
func (d *Dispatcher) Handle(data []byte) []byte {
	return d.HandleWith(d.codec, data)
}

// HandleWith decodes data with codec, executes it and encodes the reply
// with the same codec. It never returns an error: every failure becomes an
// error-coded response.
func (d *Dispatcher) HandleWith(codec protocol.Codec, data []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	label := "undecodable"
	restart := false

	var resp protocol.Response
	cmd, err := codec.DecodeCommand(data)
	if err != nil {
		var cmdErr *protocol.CommandError
		if errors.As(err, &cmdErr) {
			label = cmdErr.Command.String()
			resp = protocol.Response{Command: cmdErr.Command, Code: CodeFor(err)}
		} else {
			resp = protocol.Nack(CodeFor(err), nil)
		}
		log.Warn().Err(err).Msgf("dispatch.Dispatcher.decode codec=%s bytes=%d code=%s", codec.Name(), len(data), resp.Code)
	} else {
		label = commandLabel(cmd.ID)
		resp, restart = d.execute(cmd)
	}

	out := d.encode(codec, resp)
	observability.RecordDispatch(label, resp.Code.String(), time.Since(start))

	if restart && d.restart != nil {
		log.Info().Msg("dispatch.Dispatcher.restart requested")
		d.restart.RequestRestart()
	}
	return out
}

func (d *Dispatcher) encode(codec protocol.Codec, resp protocol.Response) []byte {
	out, err := codec.EncodeResponse(resp)
	if err == nil {
		return out
	}
	log.Error().Err(err).Msgf("dispatch.Dispatcher.encode codec=%s command=%s", codec.Name(), resp.Command)
	nack := protocol.Nack(CodeFor(err), nil)
	if out, err = codec.EncodeResponse(nack); err == nil {
		return out
	}
	log.Error().Err(err).Msgf("dispatch.Dispatcher.encode nack codec=%s", codec.Name())
	return nil
}

func commandLabel(id protocol.CommandID) string {
	switch id {
	case protocol.CmdGetInfo, protocol.CmdGetConfig, protocol.CmdSetConfig, protocol.CmdResetConfig,
		protocol.CmdGetButton, protocol.CmdSetButton, protocol.CmdTestButton, protocol.CmdRestart:
		return id.String()
	default:
		return "unknown"
	}
}

// execute runs cmd. The bool reports that a restart must be requested
// once the response is encoded.
func (d *Dispatcher) execute(cmd protocol.Command) (protocol.Response, bool) {
	reply := func(result []byte, err error) protocol.Response {
		if err != nil {
			log.Warn().Err(err).Msgf("dispatch.Dispatcher.execute command=%s", cmd.ID)
			return protocol.Response{Command: cmd.ID, Code: CodeFor(err)}
		}
		return protocol.Response{Command: cmd.ID, Code: protocol.CodeNone, Result: result}
	}

	switch cmd.ID {
	case protocol.CmdGetInfo:
		raw, err := d.info.Snapshot().MarshalBinary()
		return reply(raw, err), false
	case protocol.CmdGetConfig:
		return reply(d.getConfig()), false
	case protocol.CmdSetConfig:
		return reply(nil, d.setConfig(cmd.Payload)), false
	case protocol.CmdResetConfig:
		return reply(nil, d.store.ResetAndSave()), false
	case protocol.CmdGetButton:
		return reply(d.getButton(cmd.Payload)), false
	case protocol.CmdSetButton:
		return reply(nil, d.setButton(cmd.Payload)), false
	case protocol.CmdTestButton:
		return reply(nil, d.testButton(cmd.Payload)), false
	case protocol.CmdRestart:
		return reply(nil, nil), true
	default:
		log.Warn().Msgf("dispatch.Dispatcher.execute unknown command=0x%02x", uint8(cmd.ID))
		id := cmd.ID
		return protocol.Nack(protocol.CodeInvalidCmd, &id), false
	}
}

func (d *Dispatcher) getConfig() ([]byte, error) {
	cfg, err := d.store.Config()
	if err != nil {
		return nil, err
	}
	return cfg.MarshalBinary()
}

func (d *Dispatcher) setConfig(payload []byte) error {
	if len(payload) != deck.ConfigSize {
		return fmt.Errorf("%w: config payload is %d bytes, want %d", protocol.ErrInvalidParam, len(payload), deck.ConfigSize)
	}
	cfg, err := deck.DecodeConfig(payload)
	if err != nil {
		return err
	}
	return d.store.SetConfig(cfg)
}

func buttonID(payload []byte) (uint8, error) {
	if len(payload) != 1 {
		return 0, fmt.Errorf("%w: want a one byte button id, got %d bytes", protocol.ErrInvalidParam, len(payload))
	}
	if int(payload[0]) >= deck.MaxButtons {
		return 0, fmt.Errorf("%w: button %d out of range [0,%d)", protocol.ErrInvalidParam, payload[0], deck.MaxButtons)
	}
	return payload[0], nil
}

func (d *Dispatcher) getButton(payload []byte) ([]byte, error) {
	id, err := buttonID(payload)
	if err != nil {
		return nil, err
	}
	b, err := d.store.Button(id)
	if err != nil {
		return nil, err
	}
	return b.MarshalBinary()
}

func (d *Dispatcher) setButton(payload []byte) error {
	if len(payload) != deck.ButtonSize {
		return fmt.Errorf("%w: button payload is %d bytes, want %d", protocol.ErrInvalidParam, len(payload), deck.ButtonSize)
	}
	b, err := deck.DecodeButton(payload)
	if err != nil {
		return err
	}
	return d.store.SetButton(b.ID, b)
}

// testButton never touches persistence.
func (d *Dispatcher) testButton(payload []byte) error {
	id, err := buttonID(payload)
	if err != nil {
		return err
	}
	if d.tester == nil {
		log.Info().Msgf("dispatch.Dispatcher.test button=%d hid=none", id)
		return nil
	}
	if err := d.tester.Tap(id); err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrBusy, err)
	}
	return nil
}

// CodeFor maps store errors onto wire codes and defers everything else to
// protocol.CodeFor.
func CodeFor(err error) protocol.ErrorCode {
	switch {
	case err == nil:
		return protocol.CodeNone
	case errors.Is(err, store.ErrPersist), errors.Is(err, store.ErrCorrupt):
		return protocol.CodeMemory
	case errors.Is(err, store.ErrNotInitialized), errors.Is(err, store.ErrNotFound):
		return protocol.CodeNotFound
	case errors.Is(err, store.ErrInvalidParam):
		return protocol.CodeInvalidParam
	default:
		return protocol.CodeFor(err)
	}
}
