package domain

// Predicate is a drag/drop policy callback evaluated against a candidate node.
type Predicate func(candidate *Node) bool

// Always is the permissive policy used wherever a callback is absent.
var Always Predicate = func(*Node) bool { return true }

// Ref is the capability record attached to a node once its element is mounted.
// Any callback may be nil, which means "always allow".
type Ref struct {
	// DOM is the opaque live element handle. Handles implementing Measurable
	// take part in drop placeholder computation.
	DOM any

	// Incoming decides whether the node accepts candidate as a new child.
	Incoming Predicate
	// Outgoing decides whether the node releases candidate to another parent.
	Outgoing Predicate
	// CanDrag decides whether the node itself may be dragged.
	CanDrag Predicate
}

// AcceptsIncoming evaluates the incoming policy.
func (r Ref) AcceptsIncoming(candidate *Node) bool {
	return orAlways(r.Incoming)(candidate)
}

// ReleasesOutgoing evaluates the outgoing policy.
func (r Ref) ReleasesOutgoing(candidate *Node) bool {
	return orAlways(r.Outgoing)(candidate)
}

// Draggable evaluates the canDrag policy for the node owning the ref.
func (r Ref) Draggable(self *Node) bool {
	return orAlways(r.CanDrag)(self)
}

func orAlways(p Predicate) Predicate {
	if p == nil {
		return Always
	}
	return p
}

// Dimensions is the geometry of a mounted element, in page coordinates.
type Dimensions struct {
	Left        float64 `json:"left"`
	Top         float64 `json:"top"`
	OuterWidth  float64 `json:"outerWidth"`
	OuterHeight float64 `json:"outerHeight"`

	// InFlow is true for block-level elements stacked vertically.
	// Inline elements (InFlow == false) are laid out in rows.
	InFlow bool `json:"inFlow"`
}

// Measurable is implemented by element handles that can report their geometry.
type Measurable interface {
	Dimensions() Dimensions
}
