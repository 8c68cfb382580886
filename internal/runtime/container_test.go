package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
)

func TestHistory_UndoRedo(t *testing.T) {
	e := runtime.NewEngine(runtime.WithHistory(10))
	mustAdd(t, e, domain.RootNodeID, node(canvas, "a"))
	mustAdd(t, e, domain.RootNodeID, node(heading, "b"))
	require.NoError(t, e.Move("b", "a", 0))

	require.True(t, e.CanUndo())
	require.NoError(t, e.Undo())
	assert.Equal(t, []string{"a", "b"}, childrenOf(e, domain.RootNodeID))

	require.NoError(t, e.Undo())
	assert.NotContains(t, e.State().Current.Nodes, "b")

	require.True(t, e.CanRedo())
	require.NoError(t, e.Redo())
	require.NoError(t, e.Redo())
	assert.Equal(t, []string{"b"}, childrenOf(e, "a"))
	assert.ErrorIs(t, e.Redo(), domain.ErrNothingToRedo)
	assert.NoError(t, e.State().Current.Validate())
}

func TestHistory_NewActionClearsRedo(t *testing.T) {
	e := runtime.NewEngine(runtime.WithHistory(10))
	mustAdd(t, e, domain.RootNodeID, node(heading, "a"))
	require.NoError(t, e.Undo())

	mustAdd(t, e, domain.RootNodeID, node(heading, "b"))

	assert.False(t, e.CanRedo())
	assert.ErrorIs(t, e.Redo(), domain.ErrNothingToRedo)
}

func TestHistory_TransientActionsAreNotRecorded(t *testing.T) {
	e := runtime.NewEngine(runtime.WithHistory(10))
	mustAdd(t, e, domain.RootNodeID, node(heading, "a"), node(heading, "b"))
	require.NoError(t, e.SetProp("a", func(p domain.Props) domain.Props {
		p["text"] = "edited"
		return p
	}))
	require.NoError(t, e.SetNodeEvent(domain.EventActive, "b"))
	require.NoError(t, e.SetPlaceholder(&domain.PlaceholderInfo{}))

	require.NoError(t, e.Undo())

	state := e.State()
	assert.Nil(t, state.Current.Nodes["a"].Data.Props["text"], "undo reverts the last structural action")
	assert.True(t, state.Current.Nodes["b"].Event(domain.EventActive), "flags follow the live tree")
	assert.NotNil(t, state.Events.Placeholder)

	require.NoError(t, e.Undo())
	assert.Len(t, state.Current.Nodes, 3)
	assert.Len(t, e.State().Current.Nodes, 1)
	_, held := e.State().Holder(domain.EventActive)
	assert.False(t, held, "holders of vanished nodes are dropped")
	assert.ErrorIs(t, e.Undo(), domain.ErrNothingToUndo)
}

func TestHistory_UndoClearsPlaceholderOfVanishedCanvas(t *testing.T) {
	e := runtime.NewEngine(runtime.WithHistory(10))
	mustAdd(t, e, domain.RootNodeID, node(heading, "title"))
	mustAdd(t, e, domain.RootNodeID, node(canvas, "list"))

	info := e.ComputePlaceholder(domain.DragSubject{NodeID: "title"}, "list", 0, 0)
	require.True(t, info.Valid())
	require.NoError(t, e.SetPlaceholder(info))

	require.NoError(t, e.Undo())
	assert.Nil(t, e.State().Events.Placeholder)

	require.NoError(t, e.Redo())
	assert.Nil(t, e.State().Events.Placeholder)
}

func TestHistory_Limit(t *testing.T) {
	e := runtime.NewEngine(runtime.WithHistory(2))
	for _, id := range []string{"a", "b", "c", "d"} {
		mustAdd(t, e, domain.RootNodeID, node(heading, id))
	}

	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	assert.Equal(t, []string{"a", "b"}, childrenOf(e, domain.RootNodeID))
	assert.ErrorIs(t, e.Undo(), domain.ErrNothingToUndo)
}

func TestHistory_Disabled(t *testing.T) {
	e := runtime.NewEngine()
	mustAdd(t, e, domain.RootNodeID, node(heading, "a"))

	assert.False(t, e.CanUndo())
	assert.ErrorIs(t, e.Undo(), domain.ErrNothingToUndo)
}
