package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageStart(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"start","persona":"warm","resume_token":"h-1"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	start, ok := msg.(Start)
	if !ok {
		t.Fatalf("ParseClientMessage() = %T, want Start", msg)
	}
	if start.Persona != "warm" {
		t.Fatalf("Persona = %q, want %q", start.Persona, "warm")
	}
	if start.ResumeToken != "h-1" {
		t.Fatalf("ResumeToken = %q, want %q", start.ResumeToken, "h-1")
	}
}

func TestParseClientMessageStartDefaultsPersona(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"start"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if got := msg.(Start).Persona; got != "expert" {
		t.Fatalf("Persona = %q, want %q", got, "expert")
	}
}

func TestParseClientMessageMuteAndEnd(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"mute","muted":true}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(mute) error = %v", err)
	}
	if m, ok := msg.(Mute); !ok || !m.Muted {
		t.Fatalf("ParseClientMessage(mute) = %#v, want Mute{Muted:true}", msg)
	}

	msg, err = ParseClientMessage([]byte(`{"type":"end"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(end) error = %v", err)
	}
	if _, ok := msg.(End); !ok {
		t.Fatalf("ParseClientMessage(end) = %T, want End", msg)
	}
}

func TestParseClientMessageRejectsEmptyText(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"text","content":""}`)); err == nil {
		t.Fatalf("ParseClientMessage(empty text) error = nil, want error")
	}
}

func TestParseClientMessageUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"transcript"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageMalformedJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("ParseClientMessage(malformed) error = nil, want error")
	}
}

func TestParseServerMessageRoundTrip(t *testing.T) {
	raw := []byte(`{"type":"session_end","reason":"timeout","resume_token":"h-2"}`)
	msg, err := ParseServerMessage(raw)
	if err != nil {
		t.Fatalf("ParseServerMessage() error = %v", err)
	}
	end, ok := msg.(SessionEnd)
	if !ok {
		t.Fatalf("ParseServerMessage() = %T, want SessionEnd", msg)
	}
	if end.Reason != EndReasonTimeout || end.ResumeToken != "h-2" {
		t.Fatalf("SessionEnd = %#v", end)
	}
}

func TestParseServerMessageToolCall(t *testing.T) {
	raw := []byte(`{"type":"tool_call","name":"search_tools","args":{"query":"charts"}}`)
	msg, err := ParseServerMessage(raw)
	if err != nil {
		t.Fatalf("ParseServerMessage() error = %v", err)
	}
	tc := msg.(ToolCall)
	if tc.Name != "search_tools" {
		t.Fatalf("Name = %q, want search_tools", tc.Name)
	}
	if tc.Args["query"] != "charts" {
		t.Fatalf("Args[query] = %v, want charts", tc.Args["query"])
	}
}
