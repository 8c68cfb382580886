// Package factory builds new nodes from component descriptors.
//
// It is the black box the editor core relies on to obtain well-formed nodes: a
// fresh or supplied id, empty child lists, a props map and an optional ref seed.
package factory

import (
	"maps"

	"github.com/google/uuid"

	"github.com/aretw0/arbor/pkg/domain"
)

// Option customises a node produced by New.
type Option func(*domain.Node)

// WithID binds the node to an explicit id instead of a generated one.
func WithID(id string) Option {
	return func(n *domain.Node) {
		n.ID = id
	}
}

// WithIndex sets the placement hint honoured by Add.
func WithIndex(index int) Option {
	return func(n *domain.Node) {
		n.Index = &index
	}
}

// WithRef seeds the ref record (element handle and policy callbacks).
func WithRef(ref domain.Ref) Option {
	return func(n *domain.Node) {
		n.Ref = ref
	}
}

// WithProps merges props into the node's props.
func WithProps(props domain.Props) Option {
	return func(n *domain.Node) {
		maps.Copy(n.Data.Props, props)
	}
}

// New creates an unattached node of the given component type.
func New(t domain.ComponentType, opts ...Option) *domain.Node {
	n := &domain.Node{
		Data: domain.NodeData{
			Type:  t,
			Props: domain.Props{},
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.ID == "" {
		n.ID = NewID()
	}
	return n
}

// NewID returns a fresh node id.
func NewID() string {
	return uuid.New().String()
}
