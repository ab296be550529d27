// Package server exposes stats and egg sessions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/huangsam/folio/core"
	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"go.uber.org/zap"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 4 << 10
)

// StatsGetter is the stats operation served by the API.
type StatsGetter interface {
	GetStats(ctx context.Context, identity string, opts core.GetOptions) (schema.StatsResult, error)
}

// Server serves the folio HTTP API.
type Server struct {
	stats           StatsGetter
	sessions        *SessionRegistry
	defaultIdentity string
	logger          *zap.Logger
}

// New creates a Server. A nil logger disables request logging.
func New(stats StatsGetter, sessions *SessionRegistry, defaultIdentity string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		stats:           stats,
		sessions:        sessions,
		defaultIdentity: defaultIdentity,
		logger:          logger,
	}
}

// Routes returns the HTTP handler of the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/stats", func(r chi.Router) {
		r.Get("/", s.handleStats)
		r.Get("/{identity}", s.handleStats)
	})

	r.Route("/api/eggs", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{session}", func(r chi.Router) {
			r.Get("/", s.withSequencer(s.handleEggState))
			r.Delete("/", s.handleDeleteSession)
			r.Post("/gestures/{name}", s.withSequencer(s.handleGesture))
			r.Post("/keys", s.withSequencer(s.handleKeys))
			r.Delete("/active", s.withSequencer(s.handleDismiss))
		})
	})

	return r
}

// Run serves on addr until ctx is cancelled, sweeping idle sessions meanwhile.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.sweepSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("expired egg sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if identity == "" {
		identity = s.defaultIdentity
	}

	var opts core.GetOptions
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		refresh, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "refresh must be a boolean"})
			return
		}
		opts.ForceRefresh = refresh
	}

	result, err := s.stats.GetStats(r.Context(), identity, opts)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, contract.ErrInvalidIdentity):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, contract.ErrNoCacheAvailable):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Retryable: true})
	default:
		s.logger.Warn("stats request failed", zap.String("identity", identity), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Retryable: true})
	}
}

type sessionResponse struct {
	Session   string    `json:"session"`
	Triggered bool      `json:"triggered"`
	State     egg.State `json:"state"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, seq := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{Session: id.String(), State: seq.Snapshot()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "session")) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sequencerHandler func(w http.ResponseWriter, r *http.Request, id string, seq *egg.Sequencer)

// withSequencer resolves the session path parameter.
func (s *Server) withSequencer(h sequencerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "session")
		seq, ok := s.sessions.Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown session"})
			return
		}
		h(w, r, id, seq)
	}
}

func (s *Server) handleEggState(w http.ResponseWriter, _ *http.Request, id string, seq *egg.Sequencer) {
	writeJSON(w, http.StatusOK, sessionResponse{Session: id, State: seq.Snapshot()})
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request, id string, seq *egg.Sequencer) {
	triggered := seq.RecordGestureActivation(chi.URLParam(r, "name"))
	writeJSON(w, http.StatusOK, sessionResponse{Session: id, Triggered: triggered, State: seq.Snapshot()})
}

type keysRequest struct {
	Keys  string `json:"keys"`
	Reset bool   `json:"reset"`
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request, id string, seq *egg.Sequencer) {
	var req keysRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.Reset {
		seq.ResetBuffer()
	}
	triggered := seq.RecordText(req.Keys)
	writeJSON(w, http.StatusOK, sessionResponse{Session: id, Triggered: triggered, State: seq.Snapshot()})
}

func (s *Server) handleDismiss(w http.ResponseWriter, _ *http.Request, id string, seq *egg.Sequencer) {
	seq.DismissActive()
	writeJSON(w, http.StatusOK, sessionResponse{Session: id, State: seq.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
