package protocol

import "fmt"

// CommandID is the one-byte command code.
type CommandID uint8

const (
	CmdGetInfo     CommandID = 0x10
	CmdGetConfig   CommandID = 0x20
	CmdSetConfig   CommandID = 0x21
	CmdResetConfig CommandID = 0x22
	CmdGetButton   CommandID = 0x30
	CmdSetButton   CommandID = 0x31
	CmdTestButton  CommandID = 0x40
	CmdRestart     CommandID = 0x50
	CmdAck         CommandID = 0xA0
	CmdNack        CommandID = 0xA1
)

func (c CommandID) String() string {
	switch c {
	case CmdGetInfo:
		return "get_info"
	case CmdGetConfig:
		return "get_config"
	case CmdSetConfig:
		return "set_config"
	case CmdResetConfig:
		return "reset_config"
	case CmdGetButton:
		return "get_button"
	case CmdSetButton:
		return "set_button"
	case CmdTestButton:
		return "test_button"
	case CmdRestart:
		return "restart"
	case CmdAck:
		return "ack"
	case CmdNack:
		return "nack"
	default:
		return fmt.Sprintf("cmd(0x%02x)", uint8(c))
	}
}

// ErrorCode is the one-byte status carried by every response.
type ErrorCode uint8

const (
	CodeNone         ErrorCode = 0x00
	CodeInvalidCmd   ErrorCode = 0x01
	CodeInvalidParam ErrorCode = 0x02
	CodeChecksum     ErrorCode = 0x03
	CodeLength       ErrorCode = 0x04
	CodeBusy         ErrorCode = 0x05
	CodeMemory       ErrorCode = 0x06
	CodeMagic        ErrorCode = 0x07
	CodeNotFound     ErrorCode = 0x08
)

func (e ErrorCode) String() string {
	switch e {
	case CodeNone:
		return "none"
	case CodeInvalidCmd:
		return "invalid_cmd"
	case CodeInvalidParam:
		return "invalid_param"
	case CodeChecksum:
		return "checksum"
	case CodeLength:
		return "length"
	case CodeBusy:
		return "busy"
	case CodeMemory:
		return "memory"
	case CodeMagic:
		return "magic"
	case CodeNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("err(0x%02x)", uint8(e))
	}
}

// Command is one decoded request. Payload holds the command arguments in
// their binary form regardless of which codec carried them.
type Command struct {
	ID      CommandID
	Payload []byte
}

// Response is one reply. Result is empty for failures and for commands
// without a result body.
type Response struct {
	Command CommandID
	Code    ErrorCode
	Result  []byte
}

// OK reports whether the response carries CodeNone.
func (r Response) OK() bool {
	return r.Code == CodeNone
}

// Nack builds the reply for a request that could not be decoded or routed.
// The offending command byte is appended when it is known.
func Nack(code ErrorCode, cmd *CommandID) Response {
	resp := Response{Command: CmdNack, Code: code}
	if cmd != nil {
		resp.Result = []byte{byte(*cmd)}
	}
	return resp
}
