package domain

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Tree is an identifier-indexed collection of nodes rooted at RootNodeID.
// Parent and child relations are expressed purely as ids.
//
// A Tree held by a committed State must be treated as read-only.
type Tree struct {
	Nodes map[string]*Node `json:"nodes"`
}

// NewTree creates a tree holding only the root canvas.
func NewTree() *Tree {
	return &Tree{
		Nodes: map[string]*Node{RootNodeID: NewRootNode()},
	}
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.Nodes[RootNodeID]
}

// Get resolves a node by id.
func (t *Tree) Get(id string) (*Node, error) {
	n, ok := t.Nodes[id]
	if !ok {
		return nil, ErrInvalidNodeID.WithNode(id)
	}
	return n, nil
}

// Has reports whether id is part of the tree.
func (t *Tree) Has(id string) bool {
	_, ok := t.Nodes[id]
	return ok
}

// Children returns the ordered children of id followed by its linked nodes.
func (t *Tree) Children(id string) ([]string, error) {
	n, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	return append(slices.Clone(n.Data.Nodes), n.Data.LinkedNodes...), nil
}

// Ancestors returns the chain of parents of id, nearest first, ending at the root.
func (t *Tree) Ancestors(id string) ([]string, error) {
	n, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]bool{id: true}
	for n.Data.Parent != "" {
		if seen[n.Data.Parent] {
			return out, fmt.Errorf("%w: cycle through %q", ErrCorruptTree, n.Data.Parent)
		}
		seen[n.Data.Parent] = true
		out = append(out, n.Data.Parent)
		if n, err = t.Get(n.Data.Parent); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Descendants returns every node owned, directly or not, by id, depth first.
func (t *Tree) Descendants(id string) ([]string, error) {
	if _, err := t.Get(id); err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]bool{id: true}
	var walk func(string)
	walk = func(cur string) {
		n, ok := t.Nodes[cur]
		if !ok {
			return
		}
		for _, child := range append(slices.Clone(n.Data.Nodes), n.Data.LinkedNodes...) {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			walk(child)
		}
	}
	walk(id)
	return out, nil
}

// IsDescendant reports whether candidate is id itself or lies in its subtree.
func (t *Tree) IsDescendant(id, candidate string) bool {
	if id == candidate {
		return true
	}
	desc, err := t.Descendants(id)
	if err != nil {
		return false
	}
	return slices.Contains(desc, candidate)
}

// IDs returns all node ids in sorted order.
func (t *Tree) IDs() []string {
	ids := make([]string, 0, len(t.Nodes))
	for id := range t.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep structural copy of the tree.
func (t *Tree) Clone() *Tree {
	c := &Tree{Nodes: make(map[string]*Node, len(t.Nodes))}
	for id, n := range t.Nodes {
		c.Nodes[id] = n.Clone()
	}
	return c
}

// Validate checks the structural invariants of the tree:
//
//  1. single ownership: parent and child lists agree, each id listed once;
//  2. acyclicity: every node reaches the root through its parents;
//  3. only canvases hold ordered children;
//  4. the root exists, is a canvas and has no parent.
//
// All violations are reported together.
func (t *Tree) Validate() error {
	var errs []error

	root, ok := t.Nodes[RootNodeID]
	switch {
	case !ok:
		errs = append(errs, errors.New("root node is missing"))
	case !root.IsCanvas():
		errs = append(errs, errors.New("root node is not a canvas"))
	case root.Data.Parent != "":
		errs = append(errs, fmt.Errorf("root node has parent %q", root.Data.Parent))
	}

	owners := make(map[string]string, len(t.Nodes))
	for _, id := range t.IDs() {
		n := t.Nodes[id]
		if n.ID != id {
			errs = append(errs, fmt.Errorf("node stored under %q has id %q", id, n.ID))
		}
		if len(n.Data.Nodes) > 0 && !n.IsCanvas() {
			errs = append(errs, fmt.Errorf("non-canvas node %q holds children", id))
		}
		for _, child := range append(slices.Clone(n.Data.Nodes), n.Data.LinkedNodes...) {
			if prev, dup := owners[child]; dup {
				errs = append(errs, fmt.Errorf("node %q is listed by both %q and %q", child, prev, id))
				continue
			}
			owners[child] = id
			c, ok := t.Nodes[child]
			if !ok {
				errs = append(errs, fmt.Errorf("node %q lists unknown child %q", id, child))
				continue
			}
			if c.Data.Parent != id {
				errs = append(errs, fmt.Errorf("node %q is listed by %q but its parent is %q", child, id, c.Data.Parent))
			}
		}
	}

	for _, id := range t.IDs() {
		if id == RootNodeID {
			continue
		}
		n := t.Nodes[id]
		if n.Data.Parent == "" {
			errs = append(errs, fmt.Errorf("node %q has no parent", id))
			continue
		}
		if owners[id] != n.Data.Parent {
			errs = append(errs, fmt.Errorf("node %q is not listed by its parent %q", id, n.Data.Parent))
		}
		ancestors, err := t.Ancestors(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", id, err))
			continue
		}
		if len(ancestors) == 0 || ancestors[len(ancestors)-1] != RootNodeID {
			errs = append(errs, fmt.Errorf("node %q does not reach the root", id))
		}
	}

	return errors.Join(errs...)
}
