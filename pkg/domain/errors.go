package domain

import (
	"errors"
	"fmt"
)

// Code is the machine-readable identifier of a rejected action.
type Code string

// Error codes. They are stable and shared with hosts over the wire.
const (
	CodeInvalidNodeID      Code = "ERROR_INVALID_NODEID"
	CodeMoveOrphan         Code = "ERROR_MOVE_ORPHAN"
	CodeNonCanvasParent    Code = "ERROR_NONCANVAS_PARENT"
	CodeIncomingRejected   Code = "ERROR_INCOMING_REJECTED"
	CodeMoveToNonCanvas    Code = "ERROR_MOVE_TO_NONCANVAS_PARENT"
	CodeMoveIncomingParent Code = "ERROR_MOVE_INCOMING_PARENT"
	CodeMoveOutgoingParent Code = "ERROR_MOVE_OUTGOING_PARENT"
	CodeMoveNonCanvasChild Code = "ERROR_MOVE_NONCANVAS_CHILD"
	CodeMoveToDescendant   Code = "ERROR_MOVE_TO_DESCENDANT"
	CodeDragRejected       Code = "ERROR_DRAG_REJECTED"
	CodeCorruptTree        Code = "ERROR_CORRUPT_TREE"
	CodeNothingToUndo      Code = "ERROR_NOTHING_TO_UNDO"
	CodeNothingToRedo      Code = "ERROR_NOTHING_TO_REDO"
)

// Error is a rejected action. Every Error is raised before any mutation is applied.
type Error struct {
	Code    Code   `json:"code"`
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node %q)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches errors by code, so errors.Is(err, ErrMoveToDescendant) holds for any
// descendant rejection regardless of the node involved.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithNode returns a copy of the sentinel bound to a node id.
func (e *Error) WithNode(nodeID string) *Error {
	c := *e
	c.NodeID = nodeID
	return &c
}

// Sentinels for errors.Is.
var (
	ErrInvalidNodeID         = &Error{Code: CodeInvalidNodeID, Message: "node id does not exist"}
	ErrMoveOrphan            = &Error{Code: CodeMoveOrphan, Message: "node must be added with a parent unless it is the root"}
	ErrNonCanvasParent       = &Error{Code: CodeNonCanvasParent, Message: "parent is not a canvas"}
	ErrIncomingRejected      = &Error{Code: CodeIncomingRejected, Message: "parent rejected the incoming node"}
	ErrMoveToNonCanvasParent = &Error{Code: CodeMoveToNonCanvas, Message: "cannot move node into a non-canvas parent"}
	ErrMoveIncomingParent    = &Error{Code: CodeMoveIncomingParent, Message: "target parent rejected the incoming node"}
	ErrMoveOutgoingParent    = &Error{Code: CodeMoveOutgoingParent, Message: "current parent does not allow the node to leave"}
	ErrMoveNonCanvasChild    = &Error{Code: CodeMoveNonCanvasChild, Message: "only direct children of a canvas can be moved"}
	ErrMoveToDescendant      = &Error{Code: CodeMoveToDescendant, Message: "cannot move node into itself or one of its descendants"}
	ErrDragRejected          = &Error{Code: CodeDragRejected, Message: "node cannot be dragged"}
	ErrCorruptTree           = &Error{Code: CodeCorruptTree, Message: "action would break tree invariants"}
	ErrNothingToUndo         = &Error{Code: CodeNothingToUndo, Message: "history has nothing to undo"}
	ErrNothingToRedo         = &Error{Code: CodeNothingToRedo, Message: "history has nothing to redo"}
)

// CodeOf extracts the code from err. It returns an empty code for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
