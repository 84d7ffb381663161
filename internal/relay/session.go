package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxstudio/voxrelay/internal/observability"
	"github.com/voxstudio/voxrelay/internal/protocol"
	"github.com/voxstudio/voxrelay/internal/tools"
	"github.com/voxstudio/voxrelay/internal/transcript"
	"github.com/voxstudio/voxrelay/internal/upstream"
)

// State is a session's lifecycle position. Transitions only move forward:
// a degraded session never returns to active, and closed is terminal.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateDegraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Events receives everything a session produces for its client. Callbacks are
// invoked from the session's receive loop (or, for OnEnd, from whichever side
// closed first) and must not block for long.
type Events interface {
	OnAudio(pcm []byte)
	OnTranscript(role, text string)
	OnToolCall(name string, args map[string]any)
	OnToolResult(result tools.Result)
	OnUIAction(action tools.UIAction)
	OnWarning(code, detail string)
	OnError(code, message string)
	OnEnd(reason, resumeToken string)
}

// Options carries per-process wiring shared by all sessions.
type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	SystemInstruction string
	DegradedGrace     time.Duration

	Dialer     upstream.Dialer
	Dispatcher *tools.Dispatcher
	Registry   *tools.Registry
	Store      transcript.Store
	Metrics    *observability.Metrics
	Log        *zap.Logger
}

// StartParams is what the client's start message resolved to.
type StartParams struct {
	Voice       string
	ResumeToken string
}

// Session owns one upstream connection on behalf of one client. The receive
// loop is the only writer of upstream-driven state transitions; Disconnect is
// the only client-driven one, and both funnel through finish.
type Session struct {
	ID string

	opts   Options
	events Events
	log    *zap.Logger

	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	muted        bool
	conn         upstream.Conn
	resumeToken  string
	degradeTimer *time.Timer
	loopDone     chan struct{}
}

// NewSession builds an idle session. Connect must be called before any other
// method has effect.
func NewSession(id string, opts Options, events Events) *Session {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		ID:     id,
		opts:   opts,
		events: events,
		log:    log.With(zap.String("session_id", id)),
		state:  StateIdle,
	}
}

// State reports the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the upstream service and starts the receive loop. It may only
// be called once, on an idle session.
func (s *Session) Connect(ctx context.Context, params StartParams) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("connect in state %s", state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	cfg := upstream.SessionConfig{
		APIKey:            s.opts.APIKey,
		BaseURL:           s.opts.BaseURL,
		Model:             s.opts.Model,
		Voice:             params.Voice,
		SystemInstruction: s.opts.SystemInstruction,
		ResumeToken:       params.ResumeToken,
	}
	if s.opts.Registry != nil {
		cfg.Tools = s.opts.Registry.Declarations()
	}

	conn, err := s.opts.Dialer.Connect(ctx, cfg)
	if err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		return fmt.Errorf("upstream connect: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.loopDone = loopDone
	s.resumeToken = params.ResumeToken
	s.state = StateActive
	s.mu.Unlock()

	if s.opts.Metrics != nil {
		s.opts.Metrics.SessionEvents.WithLabelValues("connected").Inc()
	}
	s.log.Info("session active", zap.String("voice", params.Voice))

	go func() {
		defer close(loopDone)
		s.receiveLoop(loopCtx, conn)
	}()
	return nil
}

// SendAudio forwards one capture-rate PCM frame. A degraded session keeps
// forwarding until its countdown expires. Frames arriving while muted or in
// any other state are dropped silently; audio is lossy by contract.
func (s *Session) SendAudio(ctx context.Context, pcm []byte) error {
	s.mu.Lock()
	if (s.state != StateActive && s.state != StateDegraded) || s.muted {
		s.mu.Unlock()
		if s.opts.Metrics != nil {
			s.opts.Metrics.AudioFramesDropped.Inc()
		}
		return nil
	}
	conn := s.conn
	s.mu.Unlock()

	return conn.SendAudio(ctx, pcm)
}

// SendText forwards a complete text turn. Allowed while active or degraded;
// the upstream connection stays usable during the degraded countdown.
func (s *Session) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.state != StateActive && s.state != StateDegraded {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("send text in state %s", state)
	}
	conn := s.conn
	s.mu.Unlock()

	return conn.SendText(ctx, text)
}

// SetMuted toggles the inbound audio gate. Idempotent.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// ResumeToken returns the most recently issued resumption token, empty when
// the upstream never granted one.
func (s *Session) ResumeToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeToken
}

// Disconnect closes the session with the given end reason and waits for the
// receive loop to exit, so the upstream handle is never used concurrently with
// its own teardown. Safe to call any number of times from any state; only the
// first call has effect.
func (s *Session) Disconnect(reason string) {
	s.finish(reason, "", "")

	s.mu.Lock()
	done := s.loopDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// finish is the single teardown path. errCode/errMessage, when set, emit an
// error event before the terminal session end.
func (s *Session) finish(reason, errCode, errMessage string) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	s.cancel = nil
	token := s.resumeToken
	if s.degradeTimer != nil {
		s.degradeTimer.Stop()
		s.degradeTimer = nil
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.SessionEvents.WithLabelValues("ended_" + reason).Inc()
	}
	s.log.Info("session closed", zap.String("reason", reason))
	if errCode != "" {
		s.events.OnError(errCode, errMessage)
	}
	s.events.OnEnd(reason, token)
}

func (s *Session) receiveLoop(ctx context.Context, conn upstream.Conn) {
	for {
		ev, err := conn.Receive()
		if err != nil {
			if ctx.Err() != nil || s.State() == StateClosed {
				return
			}
			s.log.Warn("upstream receive failed", zap.Error(err))
			s.finish(protocol.EndReasonUpstream, "upstream_lost", "voice service connection lost")
			return
		}
		s.handleEvent(ctx, conn, ev)
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, conn upstream.Conn, ev upstream.Event) {
	switch ev := ev.(type) {
	case upstream.AudioEvent:
		s.countUpstream("audio")
		s.events.OnAudio(ev.PCM)

	case upstream.TranscriptEvent:
		s.countUpstream("transcript")
		s.appendTranscript(ctx, ev.Role, ev.Text)
		s.events.OnTranscript(ev.Role, ev.Text)

	case upstream.TurnCompleteEvent:
		s.countUpstream("turn_complete")

	case upstream.InterruptedEvent:
		s.countUpstream("interrupted")
		s.log.Debug("model turn interrupted")
		// The client should flush any queued playback; speech already in
		// flight belongs to the turn the user just cut off.
		s.events.OnWarning("interrupted", "model turn interrupted")

	case upstream.ToolCallEvent:
		s.countUpstream("tool_call")
		s.handleToolCalls(ctx, conn, ev.Calls)

	case upstream.ResumptionEvent:
		s.countUpstream("resumption")
		if ev.Resumable && ev.Token != "" {
			s.mu.Lock()
			s.resumeToken = ev.Token
			s.mu.Unlock()
		}

	case upstream.GoAwayEvent:
		s.countUpstream("go_away")
		s.degrade(ev.TimeLeft)
	}
}

// handleToolCalls answers a batch in call order. Every call gets exactly one
// response carrying its id, whatever happened inside the handler.
func (s *Session) handleToolCalls(ctx context.Context, conn upstream.Conn, calls []upstream.FunctionCall) {
	responses := make([]upstream.FunctionResponse, 0, len(calls))
	for _, call := range calls {
		s.events.OnToolCall(call.Name, call.Args)

		result := s.opts.Dispatcher.Dispatch(ctx, call.Name, call.Args)
		s.events.OnToolResult(result)
		if result.UI != nil {
			s.events.OnUIAction(*result.UI)
		}

		responses = append(responses, upstream.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: result.Payload(),
		})
	}

	if err := conn.SendToolResponses(ctx, responses); err != nil {
		s.log.Warn("tool response send failed", zap.Error(err))
	}
}

// degrade moves an active session into the shutdown countdown. A session that
// is already degraded or closed keeps its earlier deadline.
func (s *Session) degrade(timeLeft time.Duration) {
	grace := timeLeft
	if grace <= 0 {
		grace = s.opts.DegradedGrace
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateDegraded
	s.degradeTimer = time.AfterFunc(grace, func() {
		s.finish(protocol.EndReasonTimeout, "", "")
	})
	s.mu.Unlock()

	if s.opts.Metrics != nil {
		s.opts.Metrics.SessionEvents.WithLabelValues("degraded").Inc()
	}
	s.log.Warn("upstream going away", zap.Duration("grace", grace))
	s.events.OnWarning("degraded", fmt.Sprintf("voice service is restarting; session ends in %s", grace.Round(time.Second)))
}

func (s *Session) appendTranscript(ctx context.Context, role, text string) {
	if s.opts.Store == nil || text == "" {
		return
	}
	err := s.opts.Store.Append(ctx, transcript.Entry{
		SessionID: s.ID,
		Role:      role,
		Text:      text,
	})
	if err != nil {
		s.log.Warn("transcript append failed", zap.Error(err))
	}
}

func (s *Session) countUpstream(kind string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.UpstreamEvents.WithLabelValues(kind).Inc()
	}
}
