// voxclient is a terminal voice client for the relay: it streams the
// microphone up as binary frames, plays assistant audio back through ffplay,
// and prints transcripts and tool activity as they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/voxstudio/voxrelay/internal/audio"
	"github.com/voxstudio/voxrelay/internal/protocol"
	"github.com/voxstudio/voxrelay/internal/voiceclient"
)

type options struct {
	url     string
	persona string
	resume  string
	dump    string
	noMic   bool
}

func main() {
	var opt options
	flag.StringVar(&opt.url, "url", "ws://localhost:8080/api/vox/live", "relay websocket URL")
	flag.StringVar(&opt.persona, "persona", "expert", "persona id (selects the assistant voice)")
	flag.StringVar(&opt.resume, "resume", "", "resumption token from a previous session")
	flag.StringVar(&opt.dump, "dump", "", "write received assistant audio to this WAV file on exit")
	flag.BoolVar(&opt.noMic, "no-mic", false, "text-only mode, do not capture the microphone")
	flag.Parse()

	if err := run(opt); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opt options) error {
	conn, _, err := websocket.DefaultDialer.Dial(opt.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opt.url, err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}
	writeAudio := func(pcm []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.BinaryMessage, pcm)
	}

	err = writeJSON(protocol.Start{Type: protocol.TypeStart, Persona: opt.persona, ResumeToken: opt.resume})
	if err != nil {
		return fmt.Errorf("send start: %w", err)
	}

	speaker, err := newFFplaySpeaker()
	if err != nil {
		return err
	}
	playback := voiceclient.NewPlayback(speaker)
	defer playback.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var capture *voiceclient.Capture
	if !opt.noMic {
		source, err := newFFmpegSource()
		if err != nil {
			return err
		}
		defer source.Close()
		capture = voiceclient.NewCapture(source, 0, writeAudio)
		go func() {
			if err := capture.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintln(os.Stderr, "mic capture stopped:", err)
			}
		}()
	}

	go readCommands(ctx, capture, writeJSON)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = writeJSON(protocol.End{Type: protocol.TypeEnd})
	}()

	var dumped []byte
	var seq uint64
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		if msgType == websocket.BinaryMessage {
			playback.Enqueue(seq, data)
			seq++
			if opt.dump != "" {
				dumped = append(dumped, data...)
			}
			continue
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.ParseServerMessage(data)
		if err != nil {
			continue
		}
		if w, ok := msg.(protocol.Warning); ok && w.Code == "interrupted" {
			playback.Flush()
		}
		if done := printServerMessage(msg); done {
			break
		}
	}

	cancel()
	if opt.dump != "" && len(dumped) > 0 {
		if err := audio.WriteWAVPCM16LEFile(opt.dump, dumped, audio.PlaybackRate); err != nil {
			return fmt.Errorf("write dump: %w", err)
		}
		fmt.Printf("wrote %s (%dms of audio)\n", opt.dump, audio.DurationMS(len(dumped), audio.PlaybackRate))
	}
	return nil
}

// printServerMessage renders one control frame; returns true on the terminal
// frame.
func printServerMessage(msg any) bool {
	switch m := msg.(type) {
	case protocol.Ready:
		fmt.Printf("session %s ready - speak, or type /say <text>, /mute, /unmute, /quit\n", m.SessionID)
	case protocol.Transcript:
		fmt.Printf("[%s] %s\n", m.Role, m.Text)
	case protocol.ToolCall:
		fmt.Printf("* tool call: %s\n", m.Name)
	case protocol.ToolResult:
		fmt.Printf("* tool result: %s\n", m.Name)
	case protocol.UIAction:
		fmt.Printf("* ui action: %s\n", m.Action)
	case protocol.Warning:
		fmt.Printf("! warning (%s): %s\n", m.Code, m.Detail)
	case protocol.Error:
		fmt.Printf("! error (%s): %s\n", m.Code, m.Message)
	case protocol.SessionEnd:
		fmt.Printf("session ended (%s)\n", m.Reason)
		if m.ResumeToken != "" {
			fmt.Printf("resume with: -resume %s\n", m.ResumeToken)
		}
		return true
	}
	return false
}

// readCommands handles the interactive slash commands on stdin.
func readCommands(ctx context.Context, capture *voiceclient.Capture, writeJSON func(any) error) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			_ = writeJSON(protocol.End{Type: protocol.TypeEnd})
			return
		case line == "/mute":
			if capture != nil {
				capture.SetMuted(true)
			}
			_ = writeJSON(protocol.Mute{Type: protocol.TypeMute, Muted: true})
		case line == "/unmute":
			if capture != nil {
				capture.SetMuted(false)
			}
			_ = writeJSON(protocol.Mute{Type: protocol.TypeMute, Muted: false})
		case strings.HasPrefix(line, "/say "):
			text := strings.TrimSpace(strings.TrimPrefix(line, "/say "))
			if text != "" {
				_ = writeJSON(protocol.Text{Type: protocol.TypeText, Content: text})
			}
		case line != "":
			fmt.Println("commands: /say <text>, /mute, /unmute, /quit")
		}
	}
}
