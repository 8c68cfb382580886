package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// Policy decides whether a structural change is legal. It never mutates the tree.
// The order of the checks is part of the contract: the first violated rule is the
// one reported.
type Policy struct{}

// CanAdd checks that node may become a child of parentID.
// A non-canvas parent only accepts canvases, which become its linked nodes.
func (Policy) CanAdd(tree *domain.Tree, node *domain.Node, parentID string) error {
	parent, err := tree.Get(parentID)
	if err != nil {
		return err
	}
	if !parent.IsCanvas() && !node.IsCanvas() {
		return domain.ErrNonCanvasParent.WithNode(parentID)
	}
	if !parent.Ref.AcceptsIncoming(node) {
		return domain.ErrIncomingRejected.WithNode(node.ID)
	}
	return nil
}

// CanMove checks that nodeID may be relocated into newParentID.
// All checks run even when the move is a reorder within the same canvas.
func (Policy) CanMove(tree *domain.Tree, nodeID, newParentID string, _ int) error {
	node, err := tree.Get(nodeID)
	if err != nil {
		return err
	}
	target, err := tree.Get(newParentID)
	if err != nil {
		return err
	}

	current, ok := tree.Nodes[node.Data.Parent]
	if !ok || !current.IsCanvas() {
		return domain.ErrMoveNonCanvasChild.WithNode(nodeID)
	}
	if !target.IsCanvas() {
		return domain.ErrMoveToNonCanvasParent.WithNode(newParentID)
	}
	if tree.IsDescendant(nodeID, newParentID) {
		return domain.ErrMoveToDescendant.WithNode(newParentID)
	}
	if !target.Ref.AcceptsIncoming(node) {
		return domain.ErrMoveIncomingParent.WithNode(nodeID)
	}
	if !current.Ref.ReleasesOutgoing(node) {
		return domain.ErrMoveOutgoingParent.WithNode(nodeID)
	}
	return nil
}

// CanDrag checks that nodeID may start a drag gesture. The root and linked
// canvases never move; any other node asks its own canDrag callback.
func (Policy) CanDrag(tree *domain.Tree, nodeID string) error {
	node, err := tree.Get(nodeID)
	if err != nil {
		return err
	}
	if node.IsRoot() {
		return domain.ErrDragRejected.WithNode(nodeID)
	}
	if parent, ok := tree.Nodes[node.Data.Parent]; !ok || !parent.IsCanvas() {
		return domain.ErrMoveNonCanvasChild.WithNode(nodeID)
	}
	if !node.Ref.Draggable(node) {
		return domain.ErrDragRejected.WithNode(nodeID)
	}
	return nil
}
