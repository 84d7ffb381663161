package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxstudio/voxrelay/internal/config"
	"github.com/voxstudio/voxrelay/internal/observability"
	"github.com/voxstudio/voxrelay/internal/relay"
	"github.com/voxstudio/voxrelay/internal/tools"
	"github.com/voxstudio/voxrelay/internal/transcript"
	"github.com/voxstudio/voxrelay/internal/upstream"
)

// Deps are the collaborators the HTTP layer routes between.
type Deps struct {
	Personas     *config.PersonaCatalog
	Sessions     *relay.Registry
	Store        transcript.Store
	Metrics      *observability.Metrics
	Dialer       upstream.Dialer
	Dispatcher   *tools.Dispatcher
	ToolRegistry *tools.Registry
	// Workspace, when non-nil, summarizes the user's current project for the
	// assistant's system instruction.
	Workspace func(ctx context.Context) string
	Log       *zap.Logger
}

type Server struct {
	cfg      config.Config
	deps     Deps
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Another site must not
				// be able to drive a user's mic session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		s.deps.Metrics.Handler().ServeHTTP(w, req)
	})

	r.Get("/api/vox/live", s.handleVoxLive)
	r.Get("/api/vox/voices", s.handleListVoices)
	r.Get("/api/vox/sessions/{id}/transcript", s.handleTranscript)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if strings.TrimSpace(s.cfg.GeminiAPIKey) == "" {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "GEMINI_API_KEY is not set")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"personas": s.deps.Personas.All(),
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.deps.Store.BySession(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if entries == nil {
		entries = []transcript.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"entries":    entries,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
