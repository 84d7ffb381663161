package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies the JSON control frame variants exchanged on the
// relay websocket. Binary frames never carry one of these; a transport frame
// is either raw PCM audio or exactly one control message.
type MessageType string

// Client → server.
const (
	TypeStart MessageType = "start"
	TypeMute  MessageType = "mute"
	TypeText  MessageType = "text"
	TypeEnd   MessageType = "end"
)

// Server → client.
const (
	TypeReady      MessageType = "ready"
	TypeTranscript MessageType = "transcript"
	TypeToolCall   MessageType = "tool_call"
	TypeToolResult MessageType = "tool_result"
	TypeUIAction   MessageType = "ui_action"
	TypeWarning    MessageType = "warning"
	TypeError      MessageType = "error"
	TypeSessionEnd MessageType = "session_end"
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session end reasons.
const (
	EndReasonUser     = "user"
	EndReasonTimeout  = "timeout"
	EndReasonUpstream = "upstream"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// Start opens an upstream session with the selected persona. ResumeToken, if
// present, replays the prior conversation's context.
type Start struct {
	Type        MessageType `json:"type"`
	Persona     string      `json:"persona"`
	ResumeToken string      `json:"resume_token,omitempty"`
}

type Mute struct {
	Type  MessageType `json:"type"`
	Muted bool        `json:"muted"`
}

// Text carries a typed user turn, the fallback input while muted.
type Text struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

type End struct {
	Type MessageType `json:"type"`
}

type Ready struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type Transcript struct {
	Type MessageType `json:"type"`
	Role string      `json:"role"`
	Text string      `json:"text"`
	TSMs int64       `json:"ts_ms"`
}

type ToolCall struct {
	Type MessageType    `json:"type"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type ToolResult struct {
	Type MessageType    `json:"type"`
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// UIAction instructs the client UI to perform a side effect (navigate, start
// watching a generation stream, ...). Params are action-specific.
type UIAction struct {
	Type   MessageType    `json:"type"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Warning surfaces a non-fatal upstream notice, e.g. the shutdown countdown
// that precedes a forced close.
type Warning struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type Error struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

// SessionEnd is the final frame of every session. ResumeToken, when set, lets
// the client resume the conversation in a fresh session.
type SessionEnd struct {
	Type        MessageType `json:"type"`
	Reason      string      `json:"reason"`
	ResumeToken string      `json:"resume_token,omitempty"`
}

// ParseClientMessage decodes and validates one inbound text frame. Unknown or
// malformed frames return an error; the endpoint drops them without closing
// the connection.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeStart:
		var msg Start
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Persona == "" {
			msg.Persona = "expert"
		}
		return msg, nil
	case TypeMute:
		var msg Mute
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeText:
		var msg Text
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Content == "" {
			return nil, errors.New("invalid text: empty content")
		}
		return msg, nil
	case TypeEnd:
		return End{Type: TypeEnd}, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// ParseServerMessage decodes one outbound-vocabulary frame. The voice client
// uses it to interpret what the relay sends.
func ParseServerMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeReady:
		var msg Ready
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeTranscript:
		var msg Transcript
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeToolCall:
		var msg ToolCall
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeToolResult:
		var msg ToolResult
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeUIAction:
		var msg UIAction
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeWarning:
		var msg Warning
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeError:
		var msg Error
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeSessionEnd:
		var msg SessionEnd
		err := json.Unmarshal(raw, &msg)
		return msg, err
	default:
		return nil, ErrUnsupportedType
	}
}
