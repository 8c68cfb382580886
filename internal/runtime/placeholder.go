package runtime

import (
	"errors"

	"github.com/aretw0/arbor/pkg/domain"
)

// Calculator derives drop indicators from pointer positions.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a placeholder calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

type measured struct {
	index int
	dim   domain.Dimensions
}

// Compute resolves where subject would land if dropped at (x, y) while hovering
// targetID. The receiving canvas is the target itself when it is a canvas, its
// parent otherwise. Policy violations are reported in the returned info.
func (c *Calculator) Compute(tree *domain.Tree, subject domain.DragSubject, targetID string, x, y float64) *domain.PlaceholderInfo {
	target, err := tree.Get(targetID)
	if err != nil {
		return &domain.PlaceholderInfo{Error: asError(err)}
	}

	parent := target
	if !target.IsCanvas() {
		if parent, err = tree.Get(target.Data.Parent); err != nil {
			return &domain.PlaceholderInfo{Error: asError(err)}
		}
	}

	var dims []measured
	for i, id := range parent.Data.Nodes {
		child, ok := tree.Nodes[id]
		if !ok {
			continue
		}
		if m, ok := child.Ref.DOM.(domain.Measurable); ok {
			dims = append(dims, measured{index: i, dim: m.Dimensions()})
		}
	}

	placement := findPosition(parent, dims, x, y)
	if len(dims) > 0 {
		placement.CurrentNode = tree.Nodes[parent.Data.Nodes[placement.Index]]
	}

	info := &domain.PlaceholderInfo{Placement: placement}
	info.Error = asError(c.check(tree, subject, parent.ID, placement.InsertionIndex()))
	return info
}

func (c *Calculator) check(tree *domain.Tree, subject domain.DragSubject, parentID string, index int) error {
	if subject.Existing() {
		return c.policy.CanMove(tree, subject.NodeID, parentID, index)
	}
	if subject.Node == nil {
		return domain.ErrInvalidNodeID
	}
	return c.policy.CanAdd(tree, subject.Node, parentID)
}

// findPosition walks the measured children in order. Children in the normal flow
// (blocks) are compared on their vertical centre and the walk stops at the first one
// below the pointer. Inline children are compared on their horizontal centre, and the
// row containing the pointer bounds the candidates.
func findPosition(parent *domain.Node, dims []measured, x, y float64) *domain.Placement {
	p := &domain.Placement{Parent: parent, Where: domain.WhereBefore}
	var leftLimit, xLimit, yLimit float64

	for i, m := range dims {
		d := m.dim
		right := d.Left + d.OuterWidth
		down := d.Top + d.OuterHeight
		xCenter := d.Left + d.OuterWidth/2
		yCenter := d.Top + d.OuterHeight/2

		if (xLimit != 0 && d.Left > xLimit) ||
			(yLimit != 0 && yCenter >= yLimit) ||
			(leftLimit != 0 && right < leftLimit) {
			continue
		}
		p.Index = i

		if !d.InFlow {
			if y < down {
				yLimit = down
			}
			if x < xCenter {
				xLimit = xCenter
				p.Where = domain.WhereBefore
			} else {
				leftLimit = xCenter
				p.Where = domain.WhereAfter
			}
			continue
		}

		if y < yCenter {
			p.Where = domain.WhereBefore
			break
		}
		p.Where = domain.WhereAfter
	}

	if len(dims) > 0 {
		p.Index = dims[p.Index].index
	}
	return p
}

// dropIndex converts a placement into the index Move expects. Move interprets its
// index after the node left its parent, so a drop after the node's own position
// within the same canvas shifts left by one.
func dropIndex(tree *domain.Tree, nodeID string, placement *domain.Placement) int {
	index := placement.InsertionIndex()
	node, ok := tree.Nodes[nodeID]
	if !ok || placement.Parent == nil || node.Data.Parent != placement.Parent.ID {
		return index
	}
	parent, ok := tree.Nodes[placement.Parent.ID]
	if !ok {
		return index
	}
	for i, id := range parent.Data.Nodes {
		if id == nodeID && i < index {
			return index - 1
		}
	}
	return index
}

func asError(err error) *domain.Error {
	if err == nil {
		return nil
	}
	var e *domain.Error
	if errors.As(err, &e) {
		return e
	}
	return &domain.Error{Code: domain.CodeOf(err), Message: err.Error()}
}
