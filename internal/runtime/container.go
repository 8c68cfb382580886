package runtime

import (
	"maps"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// Container holds the current committed snapshot and, when history is enabled,
// the snapshots preceding it. Only the engine produces new snapshots; readers always
// observe the latest committed one.
type Container struct {
	mu      sync.RWMutex
	current *domain.State

	limit  int
	past   []*domain.State
	future []*domain.State

	subMu  sync.RWMutex
	subs   map[int]func(*domain.Commit)
	nextID int
}

// NewContainer creates a container starting at initial, keeping at most
// historyLimit undoable snapshots (0 disables history).
func NewContainer(initial *domain.State, historyLimit int) *Container {
	if initial == nil {
		initial = domain.NewState()
	}
	return &Container{
		current: initial,
		limit:   max(historyLimit, 0),
		subs:    make(map[int]func(*domain.Commit)),
	}
}

// State returns the latest committed snapshot. It must not be modified.
func (c *Container) State() *domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe registers fn to be called after every commit. The returned function
// removes the subscription.
func (c *Container) Subscribe(fn func(*domain.Commit)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

// commit publishes next as the current snapshot and notifies subscribers.
func (c *Container) commit(action domain.ActionType, nodeIDs []string, next *domain.State, started time.Time) *domain.Commit {
	c.mu.Lock()
	prev := c.current
	if !action.Transient() && c.limit > 0 {
		c.past = append(c.past, prev)
		if len(c.past) > c.limit {
			c.past = c.past[len(c.past)-c.limit:]
		}
		c.future = nil
	}
	c.current = next
	c.mu.Unlock()

	return c.publish(action, nodeIDs, prev, next, started)
}

func (c *Container) publish(action domain.ActionType, nodeIDs []string, prev, next *domain.State, started time.Time) *domain.Commit {
	ev := &domain.Commit{
		Timestamp: time.Now(),
		Action:    action,
		NodeIDs:   nodeIDs,
		Previous:  prev,
		State:     next,
		Diff:      domain.Diff(prev, next),
		Duration:  time.Since(started),
	}

	c.subMu.RLock()
	subs := make([]func(*domain.Commit), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
	return ev
}

// CanUndo reports whether a structural snapshot can be restored.
func (c *Container) CanUndo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.past) > 0
}

// CanRedo reports whether an undone snapshot can be reapplied.
func (c *Container) CanRedo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.future) > 0
}

// undo restores the previous structural snapshot, carrying over the transient
// events of the current one.
func (c *Container) undo() (*domain.Commit, error) {
	c.mu.Lock()
	if len(c.past) == 0 {
		c.mu.Unlock()
		return nil, domain.ErrNothingToUndo
	}
	started := time.Now()
	prev := c.current
	target := c.past[len(c.past)-1]
	c.past = c.past[:len(c.past)-1]
	c.future = append(c.future, prev)
	c.current = carryEvents(target, prev)
	next := c.current
	c.mu.Unlock()

	return c.publish(domain.ActionUndo, nil, prev, next, started), nil
}

// redo reapplies the most recently undone snapshot.
func (c *Container) redo() (*domain.Commit, error) {
	c.mu.Lock()
	if len(c.future) == 0 {
		c.mu.Unlock()
		return nil, domain.ErrNothingToRedo
	}
	started := time.Now()
	prev := c.current
	target := c.future[len(c.future)-1]
	c.future = c.future[:len(c.future)-1]
	c.past = append(c.past, prev)
	c.current = carryEvents(target, prev)
	next := c.current
	c.mu.Unlock()

	return c.publish(domain.ActionRedo, nil, prev, next, started), nil
}

// carryEvents builds a snapshot with the tree of target and the transient events of
// live. Refs and flags follow the live nodes that still exist in target.
func carryEvents(target, live *domain.State) *domain.State {
	next := target.Snapshot()
	next.Events.Placeholder = live.Events.Placeholder
	if p := next.Events.Placeholder; p != nil && p.Placement != nil && p.Placement.Parent != nil &&
		!next.Current.Has(p.Placement.Parent.ID) {
		next.Events.Placeholder = nil
	}
	next.Events.Holders = make(map[string]string, len(live.Events.Holders))
	for event, id := range live.Events.Holders {
		if next.Current.Has(id) {
			next.Events.Holders[event] = id
		}
	}
	for id, n := range next.Current.Nodes {
		n.Events = nil
		if liveNode, ok := live.Current.Nodes[id]; ok {
			n.Ref = liveNode.Ref
			n.Events = maps.Clone(liveNode.Events)
		}
	}
	return next
}
