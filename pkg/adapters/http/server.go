package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/script"
	"github.com/aretw0/arbor/pkg/session"
)

// Server exposes the documents of a session manager over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer

	watchMu sync.Mutex
	watches map[string]func()
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics exposes the given gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// NewServer creates a server over sessions.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		watches:  make(map[string]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates the HTTP handler for sessions.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Route("/{doc}", func(r chi.Router) {
			r.Get("/", s.GetState)
			r.Delete("/", s.CloseDocument)
			r.Get("/nodes/{node}", s.GetNode)
			r.Get("/events", s.SubscribeEvents)
			r.Post("/actions/{op}", s.PostAction)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"documents": s.Sessions.List()})
}

// GetState handles GET /documents/{doc}. The document is created on first access.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	var state *domain.State
	err := s.do(r.Context(), chi.URLParam(r, "doc"), func(ed ports.Editor) error {
		state = ed.State()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// GetNode handles GET /documents/{doc}/nodes/{node}.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	var node *domain.Node
	err := s.do(r.Context(), chi.URLParam(r, "doc"), func(ed ports.Editor) error {
		var err error
		node, err = ed.State().Current.Get(chi.URLParam(r, "node"))
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

// CloseDocument handles DELETE /documents/{doc}.
func (s *Server) CloseDocument(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	if err := s.Sessions.Close(r.Context(), doc); err != nil {
		s.writeError(w, err)
		return
	}
	s.Forget(doc)
	w.WriteHeader(http.StatusNoContent)
}

// PostAction handles POST /documents/{doc}/actions/{op}. The body holds the
// arguments of the action, as in a script step. The response is the state after
// the action.
func (s *Server) PostAction(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "op")

	var args map[string]any
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, badRequest(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	step, err := script.NewStep(op, args)
	if err == nil {
		err = step.Sanitize()
	}
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}

	var state *domain.State
	err = s.do(r.Context(), chi.URLParam(r, "doc"), func(ed ports.Editor) error {
		if err := script.Apply(ed, step); err != nil {
			return err
		}
		state = ed.State()
		return nil
	})
	if err != nil {
		s.logger.Debug("Action rejected", "op", op, "err", err)
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// do runs fn under the document lock and makes sure commits of the document are
// broadcast to its stream.
func (s *Server) do(ctx context.Context, doc string, fn func(ports.Editor) error) error {
	return s.Sessions.Do(ctx, doc, func(ctx context.Context, ed ports.Editor) error {
		s.watch(doc, ed)
		return fn(ed)
	})
}

func (s *Server) watch(doc string, ed ports.Editor) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if _, ok := s.watches[doc]; ok {
		return
	}
	s.watches[doc] = ed.Subscribe(func(c *domain.Commit) {
		if c.Diff == nil {
			return
		}
		msg, err := json.Marshal(commitMessage{Action: c.Action, NodeIDs: c.NodeIDs, Diff: c.Diff})
		if err != nil {
			s.logger.Error("Failed to encode diff", "document", doc, "err", err)
			return
		}
		s.Streams.Broadcast(doc, string(msg))
	})
}

// Forget stops broadcasting the commits of a closed document.
func (s *Server) Forget(doc string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if cancel, ok := s.watches[doc]; ok {
		cancel()
		delete(s.watches, doc)
	}
}

type commitMessage struct {
	Action  domain.ActionType `json:"action"`
	NodeIDs []string          `json:"node_ids,omitempty"`
	Diff    *domain.TreeDiff  `json:"diff"`
}

type errorResponse struct {
	Code    domain.Code `json:"code,omitempty"`
	NodeID  string      `json:"node_id,omitempty"`
	Message string      `json:"message"`
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err} }

func statusOf(err error) int {
	var reqErr requestError
	var domErr *domain.Error
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrDocumentNotFound), errors.Is(err, domain.ErrInvalidNodeID):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNothingToUndo), errors.Is(err, domain.ErrNothingToRedo):
		return http.StatusConflict
	case errors.As(err, &domErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Message: err.Error()}
	var domErr *domain.Error
	if errors.As(err, &domErr) {
		resp.Code = domErr.Code
		resp.NodeID = domErr.NodeID
	}
	s.writeJSON(w, statusOf(err), resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
