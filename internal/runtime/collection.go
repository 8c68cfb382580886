package runtime

import (
	"maps"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// collection is a copy-on-write draft of a committed tree.
// The committed tree is never touched: a node is cloned the first time the draft
// edits it. collection is the only place where child lists are spliced, and it never
// escapes the engine.
type collection struct {
	tree  *domain.Tree
	owned map[string]bool
}

func newCollection(base *domain.Tree) *collection {
	return &collection{
		tree:  &domain.Tree{Nodes: maps.Clone(base.Nodes)},
		owned: make(map[string]bool),
	}
}

func (c *collection) get(id string) (*domain.Node, error) {
	return c.tree.Get(id)
}

// edit returns a draft-owned copy of the node, safe to mutate.
func (c *collection) edit(id string) (*domain.Node, error) {
	n, err := c.tree.Get(id)
	if err != nil {
		return nil, err
	}
	if !c.owned[id] {
		n = n.Clone()
		c.tree.Nodes[id] = n
		c.owned[id] = true
	}
	return n, nil
}

// register stores a new, unattached and childless node. It reports false when the
// id is already taken, in which case the existing node wins.
func (c *collection) register(n *domain.Node) bool {
	if c.tree.Has(n.ID) {
		return false
	}
	if n.Data.Props == nil {
		n.Data.Props = domain.Props{}
	}
	n.Data.Parent = ""
	n.Data.Nodes = nil
	n.Data.LinkedNodes = nil
	c.tree.Nodes[n.ID] = n
	c.owned[n.ID] = true
	return true
}

// attach inserts nodeID into the children of parentID at index, clamped to
// [0, len]; AppendIndex appends. Canvas parents receive it in their ordered
// list, non-canvas owners in their linked nodes. It returns the final position.
func (c *collection) attach(nodeID, parentID string, index int) (int, error) {
	node, err := c.edit(nodeID)
	if err != nil {
		return 0, err
	}
	parent, err := c.edit(parentID)
	if err != nil {
		return 0, err
	}

	list := &parent.Data.Nodes
	if !parent.IsCanvas() {
		list = &parent.Data.LinkedNodes
	}
	index = clamp(index, len(*list))
	*list = slices.Insert(*list, index, nodeID)
	node.Data.Parent = parentID
	return index, nil
}

// detach removes nodeID from its parent and clears the parent link. The node and
// its subtree are left otherwise intact.
func (c *collection) detach(nodeID string) error {
	node, err := c.edit(nodeID)
	if err != nil {
		return err
	}
	if node.Data.Parent == "" {
		return nil
	}
	parent, err := c.edit(node.Data.Parent)
	if err != nil {
		return err
	}
	match := func(id string) bool { return id == nodeID }
	parent.Data.Nodes = slices.DeleteFunc(parent.Data.Nodes, match)
	parent.Data.LinkedNodes = slices.DeleteFunc(parent.Data.LinkedNodes, match)
	node.Data.Parent = ""
	return nil
}

func clamp(index, length int) int {
	switch {
	case index == AppendIndex || index > length:
		return length
	case index < 0:
		return 0
	}
	return index
}
