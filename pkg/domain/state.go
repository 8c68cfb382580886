package domain

import "maps"

// State is an immutable snapshot produced by each committed action.
type State struct {
	// Current is the live node collection.
	Current *Tree `json:"current"`

	// Events holds transient state that is not owned by a single node.
	Events Events `json:"events"`
}

// Events is the cross-cutting transient part of a snapshot.
type Events struct {
	// Placeholder is the last computed drop indicator, nil outside a drag gesture.
	Placeholder *PlaceholderInfo `json:"placeholder,omitempty"`

	// Holders maps each exclusive flag to the node currently holding it.
	Holders map[string]string `json:"holders,omitempty"`
}

// NewState creates the initial snapshot: a tree holding only the root.
func NewState() *State {
	return &State{
		Current: NewTree(),
		Events:  Events{Holders: map[string]string{}},
	}
}

// Snapshot returns a deep copy of the state suitable as a mutable draft.
// The placeholder is shared; it is replaced, never edited in place.
func (s *State) Snapshot() *State {
	return &State{
		Current: s.Current.Clone(),
		Events: Events{
			Placeholder: s.Events.Placeholder,
			Holders:     maps.Clone(s.Events.Holders),
		},
	}
}

// Holder returns the node holding an exclusive flag, if any.
func (s *State) Holder(event string) (string, bool) {
	id, ok := s.Events.Holders[event]
	return id, ok
}
