package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/arbor/pkg/ports"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // document -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream registry.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Subscribe opens a buffered channel receiving the messages of a document.
func (sm *StreamManager) Subscribe(doc string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[doc]; !ok {
		sm.subscribers[doc] = make(map[chan<- string]struct{})
	}
	sm.subscribers[doc][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[doc]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, doc)
			}
		}
	}
}

// Broadcast delivers msg to every subscriber of doc. Slow clients lose messages
// instead of blocking the editor.
func (sm *StreamManager) Broadcast(doc string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[doc] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "document", doc)
		}
	}
}

// Subscribers returns the number of open streams of doc.
func (sm *StreamManager) Subscribers(doc string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[doc])
}

// SubscribeEvents handles GET /documents/{doc}/events (SSE). Each message is a
// commit with its diff. The optional watch query parameter filters by action name,
// e.g. watch=add,move.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	doc := chi.URLParam(r, "doc")
	if _, ok := s.Sessions.Get(doc); !ok {
		// Open the document so its commits reach the stream.
		if err := s.do(r.Context(), doc, func(ed ports.Editor) error { return nil }); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		for _, action := range strings.Split(watch, ",") {
			watchList = append(watchList, fmt.Sprintf(`"action":%q`, strings.TrimSpace(action)))
		}
	}

	ch, cancel := s.Streams.Subscribe(doc)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: Subscribed", "document", doc)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "document", doc)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !matches(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func matches(msg string, watchList []string) bool {
	if len(watchList) == 0 {
		return true
	}
	for _, needle := range watchList {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
