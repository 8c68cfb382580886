package arbor

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/config"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/factory"
	"github.com/aretw0/arbor/pkg/registry"
)

// AppendIndex places an added or moved node after the existing children.
const AppendIndex = runtime.AppendIndex

// Editor is the high-level entry point for the Arbor library.
// It wraps the internal runtime and provides a simplified API for hosts.
//
// An Editor is safe for use by a single goroutine at a time; concurrent hosts
// serialise access per document (see pkg/session).
type Editor struct {
	runtime     *runtime.Engine
	registry    *registry.Registry
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithLifecycleHooks registers observability hooks. Repeated options are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Editor) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the editor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithName labels the edited document; it is attached to every log record.
func WithName(name string) Option {
	return func(e *Editor) {
		e.Name = name
	}
}

// WithRegistry sets the component registry used by Create.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Editor) {
		e.registry = r
	}
}

// WithHistory keeps up to limit undoable snapshots (default: the config file
// default, 100). Zero disables undo.
func WithHistory(limit int) Option {
	return func(e *Editor) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHistory(limit))
	}
}

// WithExclusiveEvents replaces the flags that only one node may hold
// (default: active, hover, dragging).
func WithExclusiveEvents(events ...string) Option {
	return func(e *Editor) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithExclusiveEvents(events...))
	}
}

// WithInvariantChecks toggles tree validation before structural commits (default: on).
func WithInvariantChecks(enabled bool) Option {
	return func(e *Editor) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInvariantChecks(enabled))
	}
}

// WithInitialState starts from an existing snapshot instead of a bare root.
func WithInitialState(state *domain.State) Option {
	return func(e *Editor) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInitialState(state))
	}
}

// WithConfig applies the settings of a loaded configuration file.
// Components listed in the file are registered on the editor's registry.
func WithConfig(cfg *config.Config) Option {
	return func(e *Editor) {
		if cfg == nil {
			return
		}
		WithHistory(cfg.History)(e)
		WithExclusiveEvents(cfg.ExclusiveEvents...)(e)
		WithInvariantChecks(cfg.InvariantChecksEnabled())(e)
		if e.registry == nil {
			e.registry = registry.NewRegistry()
		}
		for _, c := range cfg.Components {
			e.registry.Register(c)
		}
	}
}

// New initializes an Editor whose tree holds only the root canvas.
func New(opts ...Option) *Editor {
	ed := &Editor{}
	for _, opt := range opts {
		opt(ed)
	}

	if ed.logger == nil {
		ed.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if ed.Name != "" {
		ed.logger = ed.logger.With("document", ed.Name)
	}
	if ed.registry == nil {
		ed.registry = registry.NewRegistry()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithHistory(config.Default().History),
		runtime.WithLifecycleHooks(ed.hooks),
		runtime.WithLogger(ed.logger),
	}
	runtimeOpts = append(runtimeOpts, ed.runtimeOpts...)
	ed.runtime = runtime.NewEngine(runtimeOpts...)

	return ed
}

// State returns the latest committed snapshot. It must be treated as read-only.
func (e *Editor) State() *domain.State {
	return e.runtime.State()
}

// Subscribe registers fn to be called after every commit and returns the function
// that cancels the subscription. fn must not call back into the editor.
func (e *Editor) Subscribe(fn func(*domain.Commit)) func() {
	return e.runtime.Subscribe(fn)
}

// Create builds a node of a registered component type.
func (e *Editor) Create(component string, opts ...factory.Option) (*domain.Node, error) {
	t, err := e.registry.Lookup(component)
	if err != nil {
		return nil, fmt.Errorf("cannot create node: %w", err)
	}
	return factory.New(t, opts...), nil
}

// Registry returns the component registry used by Create.
func (e *Editor) Registry() *registry.Registry {
	return e.registry
}

// Add appends nodes, in order, to the children of parentID.
// An empty parentID is only accepted for the root itself.
func (e *Editor) Add(parentID string, nodes ...*domain.Node) error {
	return e.runtime.Add(parentID, AppendIndex, nodes...)
}

// AddAt inserts nodes at index within the children of parentID. A node carrying its
// own Index hint is placed there instead.
func (e *Editor) AddAt(parentID string, index int, nodes ...*domain.Node) error {
	return e.runtime.Add(parentID, index, nodes...)
}

// Move relocates nodeID into newParentID at index, counted after the node has left
// its current parent.
func (e *Editor) Move(nodeID, newParentID string, index int) error {
	return e.runtime.Move(nodeID, newParentID, index)
}

// SetProp replaces the props of nodeID with update applied to a copy of them.
func (e *Editor) SetProp(nodeID string, update func(domain.Props) domain.Props) error {
	return e.runtime.SetProp(nodeID, update)
}

// SetRef replaces the ref of nodeID with update applied to it.
func (e *Editor) SetRef(nodeID string, update func(domain.Ref) domain.Ref) error {
	return e.runtime.SetRef(nodeID, update)
}

// SetNodeEvent raises a flag on nodeID. Exclusive flags move from whichever node
// held them; an empty nodeID clears them.
func (e *Editor) SetNodeEvent(name, nodeID string) error {
	return e.runtime.SetNodeEvent(name, nodeID)
}

// ClearNodeEvent lowers a flag on nodeID.
func (e *Editor) ClearNodeEvent(name, nodeID string) error {
	return e.runtime.ClearNodeEvent(name, nodeID)
}

// SetPlaceholder stores the drop indicator verbatim; nil clears it.
func (e *Editor) SetPlaceholder(info *domain.PlaceholderInfo) error {
	return e.runtime.SetPlaceholder(info)
}

// ComputePlaceholder evaluates a drop of subject at (x, y) over targetID.
// Invalid positions are reported in the Error field of the result.
func (e *Editor) ComputePlaceholder(subject domain.DragSubject, targetID string, x, y float64) *domain.PlaceholderInfo {
	return e.runtime.ComputePlaceholder(subject, targetID, x, y)
}

// Drop completes a drag gesture at the placement of info.
func (e *Editor) Drop(subject domain.DragSubject, info *domain.PlaceholderInfo) error {
	return e.runtime.Drop(subject, info)
}

// CanDrag reports whether nodeID may start a drag gesture.
func (e *Editor) CanDrag(nodeID string) error {
	return e.runtime.CanDrag(nodeID)
}

// Undo restores the snapshot preceding the last structural action.
func (e *Editor) Undo() error {
	return e.runtime.Undo()
}

// Redo reapplies the most recently undone snapshot.
func (e *Editor) Redo() error {
	return e.runtime.Redo()
}

// CanUndo reports whether Undo would succeed.
func (e *Editor) CanUndo() bool {
	return e.runtime.CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (e *Editor) CanRedo() bool {
	return e.runtime.CanRedo()
}
