// Package keypad turns button events into HID reports using the live
// configuration.
package keypad

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/armdeck/internal/deck"
)

// Reporter is the HID transmit collaborator. pressed=false sends the
// release (empty) report.
type Reporter interface {
	SendKey(code, modifiers uint8, pressed bool) error
	SendConsumer(usage uint16, pressed bool) error
}

// Buttons resolves a button id to its configured entry.
type Buttons interface {
	Button(id uint8) (deck.Button, error)
}

// Event is one debounced edge from the button scanner.
type Event struct {
	Button  uint8
	Pressed bool
}

type Keypad struct {
	buttons Buttons
	hid     Reporter
}

func New(buttons Buttons, hid Reporter) *Keypad {
	return &Keypad{buttons: buttons, hid: hid}
}

// Handle sends the report for one edge. None and the reserved variants
// produce no report.
func (k *Keypad) Handle(ev Event) error {
	b, err := k.buttons.Button(ev.Button)
	if err != nil {
		return err
	}
	return k.send(b.Action, ev.Pressed)
}

// Tap simulates a full press and release of button id.
func (k *Keypad) Tap(id uint8) error {
	b, err := k.buttons.Button(id)
	if err != nil {
		return err
	}
	log.Info().Msgf("keypad.Keypad.Tap button=%d action=%s", id, b.Action)
	if err := k.send(b.Action, true); err != nil {
		return err
	}
	return k.send(b.Action, false)
}

func (k *Keypad) send(a deck.Action, pressed bool) error {
	var err error
	switch a.Kind {
	case deck.ActionKey:
		err = k.hid.SendKey(a.Code, a.Modifiers, pressed)
	case deck.ActionConsumer:
		err = k.hid.SendConsumer(uint16(a.Code), pressed)
	default:
		log.Debug().Msgf("keypad.Keypad.send skipped kind=%s", a.Kind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("keypad: send %s pressed=%t: %w", a, pressed, err)
	}
	return nil
}

// LogReporter stands in for a HID link by logging each report.
type LogReporter struct{}

func (LogReporter) SendKey(code, modifiers uint8, pressed bool) error {
	log.Info().Msgf("keypad.hid key code=0x%02x mods=0x%02x pressed=%t", code, modifiers, pressed)
	return nil
}

func (LogReporter) SendConsumer(usage uint16, pressed bool) error {
	log.Info().Msgf("keypad.hid consumer usage=0x%04x pressed=%t", usage, pressed)
	return nil
}
