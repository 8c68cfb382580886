package runtime

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// AppendIndex places an added or moved node after the existing children.
const AppendIndex = -1

// Engine is the action executor. It validates each request against the Policy,
// applies it to a draft of the committed snapshot and commits the draft atomically.
// A rejected request leaves the committed snapshot untouched.
type Engine struct {
	mu sync.Mutex

	container  *Container
	policy     Policy
	calculator *Calculator

	logger          *slog.Logger
	hooks           domain.LifecycleHooks
	exclusive       map[string]bool
	checkInvariants bool
	historyLimit    int
	initial         *domain.State
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. A nil logger keeps the discard default.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithHistory keeps up to limit undoable snapshots.
func WithHistory(limit int) EngineOption {
	return func(e *Engine) {
		e.historyLimit = limit
	}
}

// WithExclusiveEvents replaces the set of flags that only one node may hold.
func WithExclusiveEvents(events ...string) EngineOption {
	return func(e *Engine) {
		e.exclusive = make(map[string]bool, len(events))
		for _, ev := range events {
			e.exclusive[ev] = true
		}
	}
}

// WithInvariantChecks toggles the tree validation run before each structural commit.
func WithInvariantChecks(enabled bool) EngineOption {
	return func(e *Engine) {
		e.checkInvariants = enabled
	}
}

// WithInitialState starts the engine from an existing snapshot instead of a bare root.
func WithInitialState(state *domain.State) EngineOption {
	return func(e *Engine) {
		e.initial = state
	}
}

// NewEngine creates an engine whose tree holds only the root.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		checkInvariants: true,
	}
	WithExclusiveEvents(domain.DefaultExclusiveEvents...)(e)
	for _, opt := range opts {
		opt(e)
	}
	e.container = NewContainer(e.initial, e.historyLimit)
	e.calculator = NewCalculator()
	return e
}

// State returns the latest committed snapshot. Repeated calls without an
// intervening action return the same snapshot.
func (e *Engine) State() *domain.State {
	return e.container.State()
}

// Subscribe registers fn to be called after every commit.
func (e *Engine) Subscribe(fn func(*domain.Commit)) func() {
	return e.container.Subscribe(fn)
}

// Add inserts nodes as children of parentID.
// The first node lands at index and each following node lands right after its
// predecessor; with AppendIndex every node goes to the end. A node carrying its own
// Index hint is placed there instead and only moves the cursor when index is not
// AppendIndex; the hint is consumed. When an id is already present, the existing
// node wins and the incoming one is ignored without consulting the policy.
func (e *Engine) Add(parentID string, index int, nodes ...*domain.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	state := e.container.State()
	coll := newCollection(state.Current)

	var added []string
	next := index
	for _, in := range nodes {
		if in == nil {
			continue
		}
		if in.ID == "" {
			return e.reject(domain.ActionAdd, "", domain.ErrInvalidNodeID)
		}
		if parentID == "" {
			if in.ID != domain.RootNodeID {
				return e.reject(domain.ActionAdd, in.ID, domain.ErrMoveOrphan.WithNode(in.ID))
			}
			e.logger.Debug("Root already present, ignoring add", "node_id", in.ID)
			continue
		}
		if coll.tree.Has(in.ID) {
			e.logger.Debug("Duplicate node id, keeping existing node", "node_id", in.ID)
			continue
		}
		if err := e.policy.CanAdd(coll.tree, in, parentID); err != nil {
			return e.reject(domain.ActionAdd, in.ID, err)
		}

		n := in.Clone()
		at := next
		if n.Index != nil {
			at = *n.Index
			n.Index = nil
		}
		coll.register(n)
		pos, err := coll.attach(n.ID, parentID, at)
		if err != nil {
			return e.reject(domain.ActionAdd, n.ID, err)
		}
		if next != AppendIndex {
			next = pos + 1
		}
		added = append(added, n.ID)
	}

	if len(added) == 0 {
		return nil
	}
	return e.finish(domain.ActionAdd, added, e.draft(state, coll.tree), started)
}

// Move relocates nodeID into newParentID at index. The index is interpreted after
// the node has left its current parent, so moving within the same canvas reorders.
func (e *Engine) Move(nodeID, newParentID string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	state := e.container.State()
	if err := e.policy.CanMove(state.Current, nodeID, newParentID, index); err != nil {
		return e.reject(domain.ActionMove, nodeID, err)
	}

	coll := newCollection(state.Current)
	if err := coll.detach(nodeID); err != nil {
		return e.reject(domain.ActionMove, nodeID, err)
	}
	if _, err := coll.attach(nodeID, newParentID, index); err != nil {
		return e.reject(domain.ActionMove, nodeID, err)
	}
	return e.finish(domain.ActionMove, []string{nodeID}, e.draft(state, coll.tree), started)
}

// SetProp replaces the props of nodeID with the result of update, which receives a
// private copy of the current props.
func (e *Engine) SetProp(nodeID string, update func(domain.Props) domain.Props) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	state := e.container.State()
	coll := newCollection(state.Current)
	n, err := coll.edit(nodeID)
	if err != nil {
		return e.reject(domain.ActionSetProp, nodeID, err)
	}
	if update != nil {
		n.Data.Props = update(n.Data.Props.Clone())
	}
	if n.Data.Props == nil {
		n.Data.Props = domain.Props{}
	}
	return e.finish(domain.ActionSetProp, []string{nodeID}, e.draft(state, coll.tree), started)
}

// SetRef replaces the ref of nodeID with the result of update.
func (e *Engine) SetRef(nodeID string, update func(domain.Ref) domain.Ref) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	state := e.container.State()
	coll := newCollection(state.Current)
	n, err := coll.edit(nodeID)
	if err != nil {
		return e.reject(domain.ActionSetRef, nodeID, err)
	}
	if update != nil {
		n.Ref = update(n.Ref)
	}
	return e.finish(domain.ActionSetRef, []string{nodeID}, e.draft(state, coll.tree), started)
}

// SetNodeEvent raises the flag name on nodeID. Exclusive flags are first cleared on
// every other node; an empty nodeID only clears them.
func (e *Engine) SetNodeEvent(name, nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	state := e.container.State()
	if nodeID != "" && !state.Current.Has(nodeID) {
		return e.reject(domain.ActionSetNodeEvent, nodeID, domain.ErrInvalidNodeID.WithNode(nodeID))
	}

	coll := newCollection(state.Current)
	draft := e.draft(state, coll.tree)

	if e.exclusive[name] {
		for _, id := range state.Current.IDs() {
			if id == nodeID || !state.Current.Nodes[id].Event(name) {
				continue
			}
			n, _ := coll.edit(id)
			delete(n.Events, name)
		}
		if nodeID == "" {
			delete(draft.Events.Holders, name)
		} else {
			draft.Events.Holders[name] = nodeID
		}
	}
	if nodeID != "" {
		n, _ := coll.edit(nodeID)
		if n.Events == nil {
			n.Events = make(map[string]bool)
		}
		n.Events[name] = true
	}
	return e.finish(domain.ActionSetNodeEvent, nonEmpty(nodeID), draft, started)
}

// ClearNodeEvent lowers the flag name on nodeID only.
func (e *Engine) ClearNodeEvent(name, nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	state := e.container.State()
	coll := newCollection(state.Current)
	n, err := coll.edit(nodeID)
	if err != nil {
		return e.reject(domain.ActionSetNodeEvent, nodeID, err)
	}
	delete(n.Events, name)

	draft := e.draft(state, coll.tree)
	if draft.Events.Holders[name] == nodeID {
		delete(draft.Events.Holders, name)
	}
	return e.finish(domain.ActionSetNodeEvent, []string{nodeID}, draft, started)
}

// SetPlaceholder stores the drop indicator; nil clears it.
func (e *Engine) SetPlaceholder(info *domain.PlaceholderInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	state := e.container.State()
	draft := e.draft(state, state.Current)
	draft.Events.Placeholder = info
	return e.finish(domain.ActionSetPlaceholder, nil, draft, started)
}

// ComputePlaceholder evaluates a drop of subject at (x, y) over targetID against the
// committed tree. Nothing is committed; pass the result to SetPlaceholder.
func (e *Engine) ComputePlaceholder(subject domain.DragSubject, targetID string, x, y float64) *domain.PlaceholderInfo {
	return e.calculator.Compute(e.container.State().Current, subject, targetID, x, y)
}

// Drop completes a drag gesture: subject is moved, or added when it is not part of
// the tree yet, at the placement of info, then the placeholder is cleared.
// A placeholder carrying an error is rejected with that error.
func (e *Engine) Drop(subject domain.DragSubject, info *domain.PlaceholderInfo) error {
	action := domain.ActionAdd
	if subject.Existing() {
		action = domain.ActionMove
	}
	if info == nil || info.Placement == nil || info.Placement.Parent == nil {
		return e.reject(action, subject.ID(), domain.ErrDragRejected.WithNode(subject.ID()))
	}
	if info.Error != nil {
		return e.reject(action, subject.ID(), info.Error)
	}

	parentID := info.Placement.Parent.ID
	var err error
	if subject.Existing() {
		err = e.Move(subject.NodeID, parentID, dropIndex(e.State().Current, subject.NodeID, info.Placement))
	} else if subject.Node != nil {
		n := *subject.Node
		n.Index = nil
		err = e.Add(parentID, info.Placement.InsertionIndex(), &n)
	} else {
		err = e.reject(action, "", domain.ErrInvalidNodeID)
	}
	if err != nil {
		return err
	}
	return e.SetPlaceholder(nil)
}

// CanDrag reports whether nodeID may start a drag gesture.
func (e *Engine) CanDrag(nodeID string) error {
	return e.policy.CanDrag(e.container.State().Current, nodeID)
}

// Undo restores the snapshot preceding the last structural action.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	commit, err := e.container.undo()
	if err != nil {
		return e.reject(domain.ActionUndo, "", err)
	}
	e.committed(commit)
	return nil
}

// Redo reapplies the most recently undone snapshot.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	commit, err := e.container.redo()
	if err != nil {
		return e.reject(domain.ActionRedo, "", err)
	}
	e.committed(commit)
	return nil
}

// CanUndo reports whether Undo would succeed.
func (e *Engine) CanUndo() bool { return e.container.CanUndo() }

// CanRedo reports whether Redo would succeed.
func (e *Engine) CanRedo() bool { return e.container.CanRedo() }

// draft pairs a draft tree with a private copy of the cross-cutting events.
func (e *Engine) draft(state *domain.State, tree *domain.Tree) *domain.State {
	holders := make(map[string]string, len(state.Events.Holders))
	for k, v := range state.Events.Holders {
		holders[k] = v
	}
	return &domain.State{
		Current: tree,
		Events: domain.Events{
			Placeholder: state.Events.Placeholder,
			Holders:     holders,
		},
	}
}

func (e *Engine) finish(action domain.ActionType, nodeIDs []string, draft *domain.State, started time.Time) error {
	if e.checkInvariants && !action.Transient() {
		if err := draft.Current.Validate(); err != nil {
			e.logger.Error("Tree invariant violated, draft discarded", "action", action, "err", err)
			return e.reject(action, first(nodeIDs), &domain.Error{
				Code:    domain.CodeCorruptTree,
				NodeID:  first(nodeIDs),
				Message: err.Error(),
			})
		}
	}
	e.committed(e.container.commit(action, nodeIDs, draft, started))
	return nil
}

func (e *Engine) committed(commit *domain.Commit) {
	e.logger.Debug("Action committed",
		"action", commit.Action,
		"nodes", commit.NodeIDs,
		"size", len(commit.State.Current.Nodes),
		"duration", commit.Duration,
	)
	if e.hooks.OnCommit != nil {
		e.hooks.OnCommit(commit)
	}
}

func (e *Engine) reject(action domain.ActionType, nodeID string, err error) error {
	e.logger.Debug("Action rejected",
		"action", action,
		"node_id", nodeID,
		"code", domain.CodeOf(err),
		"err", err,
	)
	if e.hooks.OnReject != nil {
		e.hooks.OnReject(&domain.Rejection{
			Timestamp: time.Now(),
			Action:    action,
			NodeID:    nodeID,
			Err:       err,
		})
	}
	return err
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func nonEmpty(ids ...string) []string {
	return slices.DeleteFunc(ids, func(id string) bool { return id == "" })
}
