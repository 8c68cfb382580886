package domain

import (
	"time"
)

// Commit describes a snapshot that was just committed.
type Commit struct {
	Timestamp time.Time  `json:"timestamp"`
	Action    ActionType `json:"action"`

	// NodeIDs are the nodes the action was applied to.
	NodeIDs []string `json:"node_ids,omitempty"`

	Previous *State    `json:"-"`
	State    *State    `json:"-"`
	Diff     *TreeDiff `json:"diff,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Rejection describes an action refused before any mutation.
type Rejection struct {
	Timestamp time.Time  `json:"timestamp"`
	Action    ActionType `json:"action"`
	NodeID    string     `json:"node_id,omitempty"`
	Err       error      `json:"-"`
}

// Code returns the error code of the rejection.
func (r *Rejection) Code() Code {
	return CodeOf(r.Err)
}

// LifecycleHooks defines callbacks for editor observability.
// Hooks run synchronously on the calling goroutine after the outcome is final.
type LifecycleHooks struct {
	OnCommit func(*Commit)
	OnReject func(*Rejection)
}

// Merge combines two hook sets; both are invoked, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCommit: chain(h.OnCommit, other.OnCommit),
		OnReject: chain(h.OnReject, other.OnReject),
	}
}

func chain[T any](a, b func(T)) func(T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(v T) {
		a(v)
		b(v)
	}
}
