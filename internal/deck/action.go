package deck

import "fmt"

// ActionKind tags the ButtonAction variant.
type ActionKind uint8

const (
	ActionNone     ActionKind = 0x00
	ActionKey      ActionKind = 0x01
	ActionConsumer ActionKind = 0x02
	// ActionMacro and ActionCustom are reserved. They validate and persist
	// but are never executed.
	ActionMacro  ActionKind = 0x03
	ActionCustom ActionKind = 0x04
)

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionKey:
		return "key"
	case ActionConsumer:
		return "consumer"
	case ActionMacro:
		return "macro"
	case ActionCustom:
		return "custom"
	default:
		return fmt.Sprintf("action(0x%02x)", uint8(k))
	}
}

// Valid reports whether k is a declared variant.
func (k ActionKind) Valid() bool {
	return k <= ActionCustom
}

// Action is what a button press produces. Code is a keyboard usage for
// ActionKey and a consumer-control usage for ActionConsumer. Modifiers only
// has meaning for ActionKey but is carried verbatim for every variant.
type Action struct {
	Kind      ActionKind
	Code      uint8
	Modifiers uint8
}

// Modifier bits for ActionKey, in HID boot keyboard order.
const (
	ModLeftCtrl uint8 = 1 << iota
	ModLeftShift
	ModLeftAlt
	ModLeftGUI
	ModRightCtrl
	ModRightShift
	ModRightAlt
	ModRightGUI
)

func NoAction() Action {
	return Action{Kind: ActionNone}
}

func KeyAction(code, modifiers uint8) Action {
	return Action{Kind: ActionKey, Code: code, Modifiers: modifiers}
}

func ConsumerAction(code uint8) Action {
	return Action{Kind: ActionConsumer, Code: code}
}

func (a Action) String() string {
	if name, ok := ActionName(a); ok {
		return name
	}
	return fmt.Sprintf("%s(code=0x%02x mods=0x%02x)", a.Kind, a.Code, a.Modifiers)
}

// DefaultActionName is substituted for unknown or missing action names by
// permissive decoders.
const DefaultActionName = "KEY_F20"

var actionNames = []struct {
	name   string
	action Action
}{
	{"NONE", NoAction()},
	{"MEDIA_PLAY_PAUSE", ConsumerAction(0xCD)},
	{"MEDIA_NEXT", ConsumerAction(0xB5)},
	{"MEDIA_PREV", ConsumerAction(0xB6)},
	{"MEDIA_STOP", ConsumerAction(0xB7)},
	{"VOLUME_UP", ConsumerAction(0xE9)},
	{"VOLUME_DOWN", ConsumerAction(0xEA)},
	{"VOLUME_MUTE", ConsumerAction(0xE2)},
	{"KEY_F13", KeyAction(0x68, 0)},
	{"KEY_F14", KeyAction(0x69, 0)},
	{"KEY_F15", KeyAction(0x6A, 0)},
	{"KEY_F16", KeyAction(0x6B, 0)},
	{"KEY_F17", KeyAction(0x6C, 0)},
	{"KEY_F18", KeyAction(0x6D, 0)},
	{"KEY_F19", KeyAction(0x6E, 0)},
	{"KEY_F20", KeyAction(0x6F, 0)},
	{"KEY_F21", KeyAction(0x70, 0)},
	{"KEY_F22", KeyAction(0x71, 0)},
	{"KEY_F23", KeyAction(0x72, 0)},
	{"KEY_F24", KeyAction(0x73, 0)},
}

// LookupAction resolves a human-readable action name.
func LookupAction(name string) (Action, bool) {
	for _, entry := range actionNames {
		if entry.name == name {
			return entry.action, true
		}
	}
	return Action{}, false
}

// ActionName returns the table name for a, if it has one.
func ActionName(a Action) (string, bool) {
	for _, entry := range actionNames {
		if entry.action == a {
			return entry.name, true
		}
	}
	return "", false
}

// ActionNames lists every name accepted by LookupAction in table order.
func ActionNames() []string {
	out := make([]string, 0, len(actionNames))
	for _, entry := range actionNames {
		out = append(out, entry.name)
	}
	return out
}
