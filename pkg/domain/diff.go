package domain

import (
	"reflect"
	"slices"
	"sort"
)

// TreeDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for incremental re-rendering on the client.
type TreeDiff struct {
	// Added lists nodes present only in the newer snapshot.
	Added []string `json:"added,omitempty"`
	// Removed lists nodes present only in the older snapshot (after an undo).
	Removed []string `json:"removed,omitempty"`

	// Reparented maps nodes whose parent changed to their new parent.
	Reparented map[string]string `json:"reparented,omitempty"`

	// Children carries the full new child order of every node whose lists changed.
	Children map[string][]string `json:"children,omitempty"`

	// Props contains only changed, added or deleted keys per node.
	// For deletions, the key is present with a nil value.
	Props map[string]map[string]any `json:"props,omitempty"`

	// Events contains changed flags per node.
	Events map[string]map[string]bool `json:"events,omitempty"`

	// Placeholder is set when the drop indicator changed; a cleared
	// indicator is reported as PlaceholderCleared.
	Placeholder        *PlaceholderInfo `json:"placeholder,omitempty"`
	PlaceholderCleared bool             `json:"placeholder_cleared,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *State) *TreeDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &State{Current: &Tree{Nodes: map[string]*Node{}}}
	}

	diff := &TreeDiff{
		Reparented: make(map[string]string),
		Children:   make(map[string][]string),
		Props:      make(map[string]map[string]any),
		Events:     make(map[string]map[string]bool),
	}

	oldNodes, newNodes := oldState.Current.Nodes, newState.Current.Nodes

	for _, id := range newState.Current.IDs() {
		n := newNodes[id]
		prev, existed := oldNodes[id]
		if !existed {
			diff.Added = append(diff.Added, id)
			prev = &Node{}
		} else if prev.Data.Parent != n.Data.Parent {
			diff.Reparented[id] = n.Data.Parent
		}

		if !slices.Equal(prev.Data.Nodes, n.Data.Nodes) || !slices.Equal(prev.Data.LinkedNodes, n.Data.LinkedNodes) {
			if len(n.Data.Nodes) > 0 || len(n.Data.LinkedNodes) > 0 || existed {
				diff.Children[id] = append(slices.Clone(n.Data.Nodes), n.Data.LinkedNodes...)
			}
		}
		if delta := diffProps(prev.Data.Props, n.Data.Props); delta != nil {
			diff.Props[id] = delta
		}
		if delta := diffFlags(prev.Events, n.Events); delta != nil {
			diff.Events[id] = delta
		}
	}

	for id := range oldNodes {
		if _, ok := newNodes[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}
	sort.Strings(diff.Removed)

	if oldState.Events.Placeholder != newState.Events.Placeholder {
		if newState.Events.Placeholder == nil {
			diff.PlaceholderCleared = true
		} else {
			diff.Placeholder = newState.Events.Placeholder
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffProps(old, new Props) map[string]any {
	delta := make(map[string]any)
	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}
	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffFlags(old, new map[string]bool) map[string]bool {
	delta := make(map[string]bool)
	for k, v := range new {
		if old[k] != v {
			delta[k] = v
		}
	}
	for k, v := range old {
		if _, exists := new[k]; !exists && v {
			delta[k] = false
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *TreeDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Reparented) == 0 &&
		len(d.Children) == 0 &&
		len(d.Props) == 0 &&
		len(d.Events) == 0 &&
		d.Placeholder == nil &&
		!d.PlaceholderCleared
}
