package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/ports"
)

// ErrDocumentNotFound is returned when closing a document that is not open.
var ErrDocumentNotFound = errors.New("document not found")

// Factory creates the editor of a newly opened document.
type Factory func(documentID string) ports.Editor

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager hosts one editor per document and serialises every access to it.
// Editors are not safe for concurrent use, so concurrent hosts (HTTP, MCP) go
// through WithLock or Do. Unused locks are garbage collected by reference counting.
type Manager struct {
	factory Factory

	docsMu sync.RWMutex
	docs   map[string]ports.Editor

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	onClose func(documentID string)
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL requested from the distributed locker (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithOnClose registers a callback run after a document is closed.
func WithOnClose(fn func(documentID string)) Option {
	return func(m *Manager) {
		m.onClose = fn
	}
}

// NewManager creates a document manager creating editors with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		docs:    make(map[string]ports.Editor),
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(documentID) after unlocking.
func (m *Manager) acquire(documentID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[documentID]
	if !exists {
		entry = &lockEntry{}
		m.locks[documentID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[documentID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, documentID)
	}
}

// Open returns the editor of a document, creating it on first use.
func (m *Manager) Open(ctx context.Context, documentID string) (ports.Editor, error) {
	var ed ports.Editor
	err := m.WithLock(ctx, documentID, func(ctx context.Context) error {
		ed = m.open(documentID)
		return nil
	})
	return ed, err
}

// Do runs fn with the editor of a document while holding the document lock.
// The document is created on first use.
func (m *Manager) Do(ctx context.Context, documentID string, fn func(context.Context, ports.Editor) error) error {
	return m.WithLock(ctx, documentID, func(ctx context.Context) error {
		return fn(ctx, m.open(documentID))
	})
}

// Get returns the editor of an open document without creating it.
// Callers that mutate the editor must hold the document lock.
func (m *Manager) Get(documentID string) (ports.Editor, bool) {
	m.docsMu.RLock()
	defer m.docsMu.RUnlock()
	ed, ok := m.docs[documentID]
	return ed, ok
}

// Close discards the editor of a document.
func (m *Manager) Close(ctx context.Context, documentID string) error {
	err := m.WithLock(ctx, documentID, func(ctx context.Context) error {
		m.docsMu.Lock()
		defer m.docsMu.Unlock()
		if _, ok := m.docs[documentID]; !ok {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}
		delete(m.docs, documentID)
		return nil
	})
	if err == nil {
		m.logger.Debug("Document closed", "document", documentID)
		if m.onClose != nil {
			m.onClose(documentID)
		}
	}
	return err
}

// List returns the ids of the open documents, sorted.
func (m *Manager) List() []string {
	m.docsMu.RLock()
	defer m.docsMu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// open must be called with the document lock held.
func (m *Manager) open(documentID string) ports.Editor {
	m.docsMu.Lock()
	defer m.docsMu.Unlock()
	ed, ok := m.docs[documentID]
	if !ok {
		ed = m.factory(documentID)
		m.docs[documentID] = ed
		m.logger.Debug("Document opened", "document", documentID)
	}
	return ed
}

// WithLock executes a function while holding the lock for the document.
func (m *Manager) WithLock(ctx context.Context, documentID string, fn func(context.Context) error) error {
	if documentID == "" {
		return errors.New("document id is required")
	}

	entry := m.acquire(documentID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(documentID)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, documentID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"document", documentID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
