package domain

// ActionType names an operation of the action executor.
type ActionType string

const (
	ActionAdd            ActionType = "add"
	ActionMove           ActionType = "move"
	ActionSetProp        ActionType = "setProp"
	ActionSetRef         ActionType = "setRef"
	ActionSetNodeEvent   ActionType = "setNodeEvent"
	ActionSetPlaceholder ActionType = "setPlaceholder"
	ActionUndo           ActionType = "undo"
	ActionRedo           ActionType = "redo"
)

// Transient reports whether the action only touches transient UI state.
// Transient actions are never recorded in history.
func (a ActionType) Transient() bool {
	return a == ActionSetNodeEvent || a == ActionSetPlaceholder
}

// Exclusive flags known to the editor by default. Each may be held by one node at a time.
const (
	EventActive   = "active"
	EventHover    = "hover"
	EventDragging = "dragging"
)

// DefaultExclusiveEvents lists the flags cleared on other nodes when set on one.
var DefaultExclusiveEvents = []string{EventActive, EventHover, EventDragging}
