package domain

import "maps"

// RootNodeID is the reserved identifier of the tree root.
// The root is created with every tree, is always a canvas and never has a parent.
const RootNodeID = "ROOT"

// ComponentType describes the user component a node renders.
// It is the opaque component descriptor produced by the node factory; the core only
// looks at Canvas to decide whether the node may hold ordered children.
type ComponentType struct {
	Name   string `json:"name" yaml:"name"`
	Canvas bool   `json:"canvas,omitempty" yaml:"canvas,omitempty"`
}

// CanvasComponent is the built-in container type used for the root.
var CanvasComponent = ComponentType{Name: "Canvas", Canvas: true}

// Props holds the component properties of a node.
type Props map[string]any

// Clone returns a shallow copy of the props map.
func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}
	return maps.Clone(p)
}

// NodeData is the structural part of a node.
type NodeData struct {
	Type ComponentType `json:"type"`

	// Nodes is the ordered list of child ids. Only canvas nodes carry children here.
	Nodes []string `json:"nodes,omitempty"`

	// LinkedNodes lists canvases declared inside a non-canvas component.
	// They are owned by this node but are not independently relocatable.
	LinkedNodes []string `json:"linkedNodes,omitempty"`

	Props Props `json:"props"`

	// Parent is the id of the owning node, empty for the root.
	Parent string `json:"parent,omitempty"`
}

// Node is a single entity of the component tree.
type Node struct {
	ID   string   `json:"id"`
	Data NodeData `json:"data"`

	// Ref holds the live element handle and the drag/drop policy callbacks.
	Ref Ref `json:"-"`

	// Events holds transient UI flags such as "active" or "hover".
	Events map[string]bool `json:"events,omitempty"`

	// Index is a placement hint set by the factory and consumed by Add.
	Index *int `json:"-"`
}

// IsCanvas reports whether the node may hold ordered children.
func (n *Node) IsCanvas() bool {
	return n.Data.Type.Canvas
}

// IsRoot reports whether the node is the tree root.
func (n *Node) IsRoot() bool {
	return n.ID == RootNodeID
}

// Event reports whether the named flag is set on the node.
func (n *Node) Event(name string) bool {
	return n.Events[name]
}

// Clone returns a copy of the node that shares no mutable slices or maps with n.
// Prop values and the ref handle are copied by reference.
func (n *Node) Clone() *Node {
	c := *n
	c.Data.Nodes = append([]string(nil), n.Data.Nodes...)
	c.Data.LinkedNodes = append([]string(nil), n.Data.LinkedNodes...)
	c.Data.Props = n.Data.Props.Clone()
	c.Events = maps.Clone(n.Events)
	if n.Index != nil {
		idx := *n.Index
		c.Index = &idx
	}
	return &c
}

// NewRootNode builds the root canvas of an empty tree.
func NewRootNode() *Node {
	return &Node{
		ID: RootNodeID,
		Data: NodeData{
			Type:  CanvasComponent,
			Props: Props{},
		},
	}
}
