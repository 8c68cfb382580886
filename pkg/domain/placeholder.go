package domain

// Where is the side of the reference child a drop lands on.
type Where string

const (
	WhereBefore Where = "before"
	WhereAfter  Where = "after"
)

// Placement is a resolved insertion point inside a canvas.
type Placement struct {
	Index int   `json:"index"`
	Where Where `json:"where"`

	// Parent is the canvas that would receive the node.
	Parent *Node `json:"parent"`
	// CurrentNode is the child the indicator is drawn against, nil for an empty canvas.
	CurrentNode *Node `json:"currentNode"`
}

// InsertionIndex converts the placement into an index usable by Move and Add.
func (p Placement) InsertionIndex() int {
	if p.Where == WhereAfter {
		return p.Index + 1
	}
	return p.Index
}

// PlaceholderInfo is the drop indicator shown while dragging.
type PlaceholderInfo struct {
	Placement *Placement `json:"placement"`

	// Error is the reason the evaluated position is not a valid drop, nil otherwise.
	Error *Error `json:"error"`
}

// Valid reports whether the placeholder designates an acceptable drop.
func (p *PlaceholderInfo) Valid() bool {
	return p != nil && p.Placement != nil && p.Error == nil
}

// DragSubject is what is being dragged: an existing node (NodeID) or a node that
// is not part of the tree yet, such as one dragged from a toolbox (Node).
type DragSubject struct {
	NodeID string `json:"nodeId,omitempty"`
	Node   *Node  `json:"node,omitempty"`
}

// Existing reports whether the subject is already part of the tree.
func (s DragSubject) Existing() bool {
	return s.NodeID != ""
}

// ID returns the id of the dragged node, whichever form it takes.
func (s DragSubject) ID() string {
	if s.Existing() {
		return s.NodeID
	}
	if s.Node != nil {
		return s.Node.ID
	}
	return ""
}
