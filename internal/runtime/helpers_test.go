package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/factory"
)

var (
	canvas  = domain.CanvasComponent
	div     = domain.ComponentType{Name: "div"}
	heading = domain.ComponentType{Name: "h3"}
)

func node(t domain.ComponentType, id string, opts ...factory.Option) *domain.Node {
	return factory.New(t, append([]factory.Option{factory.WithID(id)}, opts...)...)
}

func reject(id string) domain.Predicate {
	return func(n *domain.Node) bool { return n.ID != id }
}

// mustAdd appends nodes under parentID and fails the test on rejection.
func mustAdd(t *testing.T, e *runtime.Engine, parentID string, nodes ...*domain.Node) {
	t.Helper()
	require.NoError(t, e.Add(parentID, runtime.AppendIndex, nodes...))
}

func childrenOf(e *runtime.Engine, id string) []string {
	n, ok := e.State().Current.Nodes[id]
	if !ok {
		return nil
	}
	return n.Data.Nodes
}

// box is a measurable element handle.
type box domain.Dimensions

func (b box) Dimensions() domain.Dimensions { return domain.Dimensions(b) }

func withBox(left, top, width, height float64, inFlow bool) factory.Option {
	return factory.WithRef(domain.Ref{DOM: box{
		Left: left, Top: top, OuterWidth: width, OuterHeight: height, InFlow: inFlow,
	}})
}
