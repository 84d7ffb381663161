package upstream

import "time"

// Event is one item of the upstream event union. The live service multiplexes
// several payload kinds onto one websocket; modeling them as a sealed variant
// forces the receive loop to handle each kind explicitly.
type Event interface {
	event()
}

// AudioEvent carries synthesized PCM16LE mono audio at the playback rate.
type AudioEvent struct {
	PCM []byte
}

// TranscriptEvent carries a speech transcription fragment for either side of
// the conversation.
type TranscriptEvent struct {
	Role string // protocol.RoleUser or protocol.RoleAssistant
	Text string
}

// TurnCompleteEvent marks the end of a model turn.
type TurnCompleteEvent struct{}

// InterruptedEvent signals that user speech cut off the current model turn;
// clients should flush queued playback.
type InterruptedEvent struct{}

// ToolCallEvent carries one batch of model-issued function calls. Every call
// in the batch must be answered with a FunctionResponse carrying its id.
type ToolCallEvent struct {
	Calls []FunctionCall
}

// ResumptionEvent replaces the session's stored resumption token. Only the
// most recently issued token is valid for reconnection.
type ResumptionEvent struct {
	Token     string
	Resumable bool
}

// GoAwayEvent is the upstream shutdown warning: the connection will be closed
// after TimeLeft. Zero means the service gave no budget.
type GoAwayEvent struct {
	TimeLeft time.Duration
}

func (AudioEvent) event()        {}
func (TranscriptEvent) event()   {}
func (TurnCompleteEvent) event() {}
func (InterruptedEvent) event()  {}
func (ToolCallEvent) event()     {}
func (ResumptionEvent) event()   {}
func (GoAwayEvent) event()       {}

// FunctionCall is a model-issued request to run a registered tool.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// FunctionResponse answers one FunctionCall, tagged with the same id.
type FunctionResponse struct {
	ID       string
	Name     string
	Response map[string]any
}

// FunctionDeclaration describes one tool in the session handshake.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Behavior    string         `json:"behavior,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}
