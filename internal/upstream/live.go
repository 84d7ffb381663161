package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxstudio/voxrelay/internal/audio"
	"github.com/voxstudio/voxrelay/internal/protocol"
)

const bidiPath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// ErrNoCredential means no API key was configured; the connect attempt cannot
// proceed but the process is fine.
var ErrNoCredential = errors.New("upstream: no API key configured")

// ErrUnavailable wraps handshake and transport failures during connect.
var ErrUnavailable = errors.New("upstream: service unavailable")

// Conn is one live upstream connection. It is owned exclusively by a single
// session; only that session's receive loop calls Receive.
type Conn interface {
	// SendAudio forwards one PCM16LE mono frame at the capture rate.
	SendAudio(ctx context.Context, pcm []byte) error
	// SendText forwards a complete text-only user turn.
	SendText(ctx context.Context, text string) error
	// SendToolResponses answers a tool-call batch, one response per call id.
	SendToolResponses(ctx context.Context, responses []FunctionResponse) error
	// Receive blocks for the next upstream event. It returns io errors once
	// the connection is gone; the caller owns state transitions.
	Receive() (Event, error)
	Close() error
}

// SessionConfig carries everything the setup handshake declares.
type SessionConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Voice             string
	SystemInstruction string
	Tools             []FunctionDeclaration
	ResumeToken       string
}

// Dialer opens upstream connections. The live implementation dials the real
// service; tests substitute their own.
type Dialer interface {
	Connect(ctx context.Context, cfg SessionConfig) (Conn, error)
}

// LiveDialer dials the BidiGenerateContent websocket and performs the setup
// handshake.
type LiveDialer struct{}

func (LiveDialer) Connect(ctx context.Context, cfg SessionConfig) (Conn, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoCredential
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "wss://generativelanguage.googleapis.com"
	}
	u, err := url.Parse(base + bidiPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("key", cfg.APIKey)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrUnavailable, err)
	}

	c := &liveConn{ws: ws}
	if err := c.handshake(ctx, cfg); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return c, nil
}

type liveConn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error

	// Events decoded from the current wire message but not yet consumed.
	pending []Event
}

func (c *liveConn) handshake(ctx context.Context, cfg SessionConfig) error {
	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	setup := &setupPayload{
		Model: model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
				},
			},
		},
		ContextWindowCompression: &contextCompression{},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}
	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &content{Parts: []part{{Text: cfg.SystemInstruction}}}
	}
	if len(cfg.Tools) > 0 {
		setup.Tools = []toolDeclarations{{FunctionDeclarations: cfg.Tools}}
	}
	if cfg.ResumeToken != "" {
		setup.SessionResumption = &sessionResumption{Handle: cfg.ResumeToken}
	}

	if err := c.writeJSON(clientMessage{Setup: setup}); err != nil {
		return fmt.Errorf("%w: setup write: %v", ErrUnavailable, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
	} else {
		_ = c.ws.SetReadDeadline(time.Now().Add(15 * time.Second))
	}
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return fmt.Errorf("%w: setup read: %v", ErrUnavailable, err)
	}
	_ = c.ws.SetReadDeadline(time.Time{})

	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.SetupComplete == nil {
		return fmt.Errorf("%w: handshake not acknowledged", ErrUnavailable)
	}
	return nil
}

func (c *liveConn) SendAudio(_ context.Context, pcm []byte) error {
	return c.writeJSON(clientMessage{
		RealtimeInput: &realtimeInput{
			Audio: &blob{
				MimeType: fmt.Sprintf("audio/pcm;rate=%d", audio.CaptureRate),
				Data:     base64.StdEncoding.EncodeToString(pcm),
			},
		},
	})
}

func (c *liveConn) SendText(_ context.Context, text string) error {
	return c.writeJSON(clientMessage{
		ClientContent: &clientContent{
			Turns:        []content{{Role: "user", Parts: []part{{Text: text}}}},
			TurnComplete: true,
		},
	})
}

func (c *liveConn) SendToolResponses(_ context.Context, responses []FunctionResponse) error {
	wire := make([]functionResponseWire, 0, len(responses))
	for _, r := range responses {
		wire = append(wire, functionResponseWire{ID: r.ID, Name: r.Name, Response: r.Response})
	}
	return c.writeJSON(clientMessage{
		ToolResponse: &toolResponsePayload{FunctionResponses: wire},
	})
}

func (c *liveConn) Receive() (Event, error) {
	for {
		if len(c.pending) > 0 {
			ev := c.pending[0]
			c.pending = c.pending[1:]
			return ev, nil
		}

		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		var msg serverMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// A frame we cannot decode is dropped; the stream stays usable.
			continue
		}
		c.pending = decodeServerMessage(&msg)
	}
}

func (c *liveConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *liveConn) writeJSON(msg clientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

// decodeServerMessage flattens one wire message into the event union. One
// message can carry several payloads (audio, transcript, turn end), so the
// result is ordered: content first, then control.
func decodeServerMessage(msg *serverMessage) []Event {
	var events []Event

	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			events = append(events, TranscriptEvent{Role: protocol.RoleUser, Text: sc.InputTranscription.Text})
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData != nil && p.InlineData.Data != "" {
					pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
					if err == nil && len(pcm) > 0 {
						events = append(events, AudioEvent{PCM: pcm})
					}
				}
				if p.Text != "" {
					events = append(events, TranscriptEvent{Role: protocol.RoleAssistant, Text: p.Text})
				}
			}
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			events = append(events, TranscriptEvent{Role: protocol.RoleAssistant, Text: sc.OutputTranscription.Text})
		}
		if sc.Interrupted {
			events = append(events, InterruptedEvent{})
		}
		if sc.TurnComplete {
			events = append(events, TurnCompleteEvent{})
		}
	}

	if tc := msg.ToolCall; tc != nil && len(tc.FunctionCalls) > 0 {
		calls := make([]FunctionCall, 0, len(tc.FunctionCalls))
		for _, fc := range tc.FunctionCalls {
			calls = append(calls, FunctionCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
		events = append(events, ToolCallEvent{Calls: calls})
	}

	if ru := msg.SessionResumptionUpdate; ru != nil && ru.NewHandle != "" {
		events = append(events, ResumptionEvent{Token: ru.NewHandle, Resumable: ru.Resumable})
	}

	if ga := msg.GoAway; ga != nil {
		left, err := time.ParseDuration(ga.TimeLeft)
		if err != nil {
			left = 0
		}
		events = append(events, GoAwayEvent{TimeLeft: left})
	}

	return events
}
