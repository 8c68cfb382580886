package ports

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/factory"
	"github.com/aretw0/arbor/pkg/registry"
)

// Editor is the action surface shared by every host. *arbor.Editor implements it.
type Editor interface {
	// State returns the latest committed snapshot.
	State() *domain.State
	// Subscribe registers a commit observer and returns its cancel function.
	Subscribe(fn func(*domain.Commit)) func()

	// Create builds a node of a registered component type.
	Create(component string, opts ...factory.Option) (*domain.Node, error)
	// Registry returns the component types known to Create.
	Registry() *registry.Registry

	Add(parentID string, nodes ...*domain.Node) error
	AddAt(parentID string, index int, nodes ...*domain.Node) error
	Move(nodeID, newParentID string, index int) error
	SetProp(nodeID string, update func(domain.Props) domain.Props) error
	SetRef(nodeID string, update func(domain.Ref) domain.Ref) error
	SetNodeEvent(name, nodeID string) error
	ClearNodeEvent(name, nodeID string) error
	SetPlaceholder(info *domain.PlaceholderInfo) error

	ComputePlaceholder(subject domain.DragSubject, targetID string, x, y float64) *domain.PlaceholderInfo
	Drop(subject domain.DragSubject, info *domain.PlaceholderInfo) error
	CanDrag(nodeID string) error

	Undo() error
	Redo() error
	CanUndo() bool
	CanRedo() bool
}
