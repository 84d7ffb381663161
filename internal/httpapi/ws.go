package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxstudio/voxrelay/internal/observability"
	"github.com/voxstudio/voxrelay/internal/protocol"
	"github.com/voxstudio/voxrelay/internal/relay"
	"github.com/voxstudio/voxrelay/internal/tools"
	"github.com/voxstudio/voxrelay/internal/upstream"
)

const (
	outboundQueueSize = 256
	readLimitBytes    = 2 << 20
	startTimeout      = 30 * time.Second
	readIdleTimeout   = 120 * time.Second
	writeTimeout      = 10 * time.Second
)

// handleVoxLive runs one voice session over one websocket. Binary frames are
// raw PCM audio, text frames are JSON control messages; the first text frame
// must be start.
func (s *Server) handleVoxLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Unblock the read loop when the session ends first (timeout, upstream
	// loss) and the client never speaks again.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	conn.SetReadLimit(readLimitBytes)
	_ = conn.SetReadDeadline(time.Now().Add(startTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		return nil
	})

	start, err := s.awaitStart(conn)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteJSON(protocol.Error{
			Type:    protocol.TypeError,
			Code:    "start_required",
			Message: err.Error(),
		})
		return
	}

	sink := newWSSink(ctx, s.deps.Metrics)
	sess := s.deps.Sessions.Create(s.sessionOptions(ctx, start.Persona), sink)
	defer s.deps.Sessions.Remove(sess.ID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel, conn, sink.out)
	}()

	voice := s.deps.Personas.Voice(start.Persona)
	err = sess.Connect(ctx, relay.StartParams{Voice: voice, ResumeToken: start.ResumeToken})
	if err != nil {
		code := "upstream_unavailable"
		if errors.Is(err, upstream.ErrNoCredential) {
			code = "not_configured"
		}
		s.log.Warn("session connect failed", zap.Error(err))
		// Fatal conditions surface as exactly one error followed by
		// session_end; the writer exits after the terminal frame.
		sink.enqueue(protocol.Error{Type: protocol.TypeError, Code: code, Message: err.Error()})
		sink.enqueue(protocol.SessionEnd{Type: protocol.TypeSessionEnd, Reason: protocol.EndReasonUpstream})
		<-writerDone
		return
	}

	s.log.Info("voice session started",
		zap.String("session_id", sess.ID),
		zap.String("persona", start.Persona),
		zap.String("voice", voice))

	// Ready goes out first; any upstream event that raced it was held back.
	sink.markReady(sess.ID)

	s.readLoop(ctx, conn, sess, sink)

	// The client side is done, whichever way. The session closes before the
	// endpoint returns so the terminal frame is already queued.
	sess.Disconnect(protocol.EndReasonUser)
	<-writerDone
}

// awaitStart reads frames until the client identifies itself. Binary frames
// arriving before start carry audio with nowhere to go and are dropped.
func (s *Server) awaitStart(conn *websocket.Conn) (protocol.Start, error) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return protocol.Start{}, fmt.Errorf("no start message: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			// Malformed frames are dropped; keep waiting for start.
			s.log.Debug("dropping malformed frame before start", zap.Error(err))
			continue
		}
		start, ok := parsed.(protocol.Start)
		if !ok {
			return protocol.Start{}, fmt.Errorf("first message must be start")
		}
		return start, nil
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *relay.Session, sink *wsSink) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if msgType == websocket.BinaryMessage {
			s.deps.Metrics.WSMessages.WithLabelValues("inbound", "audio").Inc()
			if err := sess.SendAudio(ctx, data); err != nil {
				s.log.Warn("audio forward failed", zap.Error(err))
			}
			continue
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			// Malformed frames are dropped; the connection survives.
			s.deps.Metrics.WSMessages.WithLabelValues("inbound", "invalid").Inc()
			s.log.Debug("dropping malformed frame", zap.Error(err))
			continue
		}
		s.deps.Metrics.WSMessages.WithLabelValues("inbound", messageTypeOf(parsed)).Inc()

		switch msg := parsed.(type) {
		case protocol.Start:
			sink.enqueue(protocol.Error{
				Type:    protocol.TypeError,
				Code:    "already_started",
				Message: "session already started",
			})
		case protocol.Mute:
			sess.SetMuted(msg.Muted)
		case protocol.Text:
			if err := sess.SendText(ctx, msg.Content); err != nil {
				sink.enqueue(protocol.Warning{
					Type:   protocol.TypeWarning,
					Code:   "text_rejected",
					Detail: err.Error(),
				})
			}
		case protocol.End:
			sess.Disconnect(protocol.EndReasonUser)
			return
		}
	}
}

// writeLoop is the websocket's only writer. It exits after the terminal
// session_end frame, an explicit close signal, or a dead connection.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			var err error
			if pcm, ok := msg.([]byte); ok {
				err = conn.WriteMessage(websocket.BinaryMessage, pcm)
			} else {
				err = conn.WriteJSON(msg)
			}
			if err != nil {
				cancel()
				return
			}
			s.deps.Metrics.WSMessages.WithLabelValues("outbound", messageTypeOf(msg)).Inc()

			if _, ok := msg.(protocol.SessionEnd); ok {
				cancel()
				return
			}
		}
	}
}

func (s *Server) sessionOptions(ctx context.Context, persona string) relay.Options {
	var workspace string
	if s.deps.Workspace != nil {
		workspace = s.deps.Workspace(ctx)
	}
	return relay.Options{
		APIKey:            s.cfg.GeminiAPIKey,
		BaseURL:           s.cfg.LiveWSBaseURL,
		Model:             s.cfg.LiveModel,
		SystemInstruction: relay.SystemInstruction(persona, workspace),
		DegradedGrace:     s.cfg.DegradedGrace,
		Dialer:            s.deps.Dialer,
		Dispatcher:        s.deps.Dispatcher,
		Registry:          s.deps.ToolRegistry,
		Store:             s.deps.Store,
		Metrics:           s.deps.Metrics,
		Log:               s.log,
	}
}

// wsSink adapts session events to outbound websocket frames. Events arriving
// before ready are held so ready is always the first frame the client sees.
type wsSink struct {
	ctx     context.Context
	out     chan any
	metrics *observability.Metrics

	mu    sync.Mutex
	ready bool
	held  []any
}

func newWSSink(ctx context.Context, metrics *observability.Metrics) *wsSink {
	return &wsSink{
		ctx:     ctx,
		out:     make(chan any, outboundQueueSize),
		metrics: metrics,
	}
}

// markReady releases the queue, ready frame first.
func (s *wsSink) markReady(sessionID string) {
	s.mu.Lock()
	s.ready = true
	held := s.held
	s.held = nil
	s.mu.Unlock()

	s.enqueue(protocol.Ready{Type: protocol.TypeReady, SessionID: sessionID})
	for _, msg := range held {
		s.enqueue(msg)
	}
}

func (s *wsSink) push(msg any) {
	s.mu.Lock()
	if !s.ready {
		s.held = append(s.held, msg)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.enqueue(msg)
}

// enqueue blocks until the writer takes the frame or the connection dies.
func (s *wsSink) enqueue(msg any) {
	select {
	case s.out <- msg:
	case <-s.ctx.Done():
	}
}

// OnAudio drops frames when the client cannot keep up; stale audio is worse
// than missing audio.
func (s *wsSink) OnAudio(pcm []byte) {
	s.mu.Lock()
	if !s.ready {
		s.held = append(s.held, pcm)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	select {
	case s.out <- pcm:
	default:
		if s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("outbound", "audio_dropped").Inc()
		}
	}
}

func (s *wsSink) OnTranscript(role, text string) {
	s.push(protocol.Transcript{
		Type: protocol.TypeTranscript,
		Role: role,
		Text: text,
		TSMs: time.Now().UnixMilli(),
	})
}

func (s *wsSink) OnToolCall(name string, args map[string]any) {
	s.push(protocol.ToolCall{Type: protocol.TypeToolCall, Name: name, Args: args})
}

func (s *wsSink) OnToolResult(result tools.Result) {
	s.push(protocol.ToolResult{Type: protocol.TypeToolResult, Name: result.Name, Data: result.Data})
}

func (s *wsSink) OnUIAction(action tools.UIAction) {
	s.push(protocol.UIAction{Type: protocol.TypeUIAction, Action: action.Action, Params: action.Params})
}

func (s *wsSink) OnWarning(code, detail string) {
	s.push(protocol.Warning{Type: protocol.TypeWarning, Code: code, Detail: detail})
}

func (s *wsSink) OnError(code, message string) {
	s.push(protocol.Error{Type: protocol.TypeError, Code: code, Message: message})
}

func (s *wsSink) OnEnd(reason, resumeToken string) {
	s.push(protocol.SessionEnd{
		Type:        protocol.TypeSessionEnd,
		Reason:      reason,
		ResumeToken: resumeToken,
	})
}

func messageTypeOf(msg any) string {
	switch msg.(type) {
	case []byte:
		return "audio"
	case protocol.Start:
		return string(protocol.TypeStart)
	case protocol.Mute:
		return string(protocol.TypeMute)
	case protocol.Text:
		return string(protocol.TypeText)
	case protocol.End:
		return string(protocol.TypeEnd)
	case protocol.Ready:
		return string(protocol.TypeReady)
	case protocol.Transcript:
		return string(protocol.TypeTranscript)
	case protocol.ToolCall:
		return string(protocol.TypeToolCall)
	case protocol.ToolResult:
		return string(protocol.TypeToolResult)
	case protocol.UIAction:
		return string(protocol.TypeUIAction)
	case protocol.Warning:
		return string(protocol.TypeWarning)
	case protocol.Error:
		return string(protocol.TypeError)
	case protocol.SessionEnd:
		return string(protocol.TypeSessionEnd)
	default:
		return "unknown"
	}
}
