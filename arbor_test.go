package arbor_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/config"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/factory"
	"github.com/aretw0/arbor/pkg/ports"
)

var _ ports.Editor = (*arbor.Editor)(nil)

func TestEditor_BuildAndEdit(t *testing.T) {
	ed := arbor.New(arbor.WithHistory(5))
	ed.Registry().Register(domain.ComponentType{Name: "h3"})

	section, err := ed.Create("Canvas", factory.WithID("section"))
	require.NoError(t, err)
	title, err := ed.Create("h3", factory.WithID("title"), factory.WithProps(domain.Props{"text": "What"}))
	require.NoError(t, err)

	require.NoError(t, ed.Add(domain.RootNodeID, section))
	require.NoError(t, ed.AddAt("section", 0, title))
	require.NoError(t, ed.SetProp("title", func(p domain.Props) domain.Props {
		p["text"] = "Haha"
		return p
	}))

	state := ed.State()
	assert.Equal(t, []string{"title"}, state.Current.Nodes["section"].Data.Nodes)
	assert.Equal(t, "Haha", state.Current.Nodes["title"].Data.Props["text"])

	require.NoError(t, ed.Undo())
	assert.Equal(t, "What", ed.State().Current.Nodes["title"].Data.Props["text"])
	assert.True(t, ed.CanRedo())

	_, err = ed.Create("marquee")
	assert.ErrorContains(t, err, "component not found")
}

func TestEditor_HistoryDefault(t *testing.T) {
	ed := arbor.New()
	require.NoError(t, ed.Add(domain.RootNodeID, factory.New(domain.CanvasComponent, factory.WithID("a"))))
	require.True(t, ed.CanUndo())
	require.NoError(t, ed.Undo())
	assert.NotContains(t, ed.State().Current.Nodes, "a")

	disabled := arbor.New(arbor.WithHistory(0))
	require.NoError(t, disabled.Add(domain.RootNodeID, factory.New(domain.CanvasComponent, factory.WithID("a"))))
	assert.False(t, disabled.CanUndo())
	assert.ErrorIs(t, disabled.Undo(), domain.ErrNothingToUndo)
}

func TestEditor_WithConfig(t *testing.T) {
	off := false
	cfg := config.Default()
	cfg.ExclusiveEvents = []string{"selected"}
	cfg.InvariantChecks = &off
	cfg.Components = []domain.ComponentType{{Name: "Container", Canvas: true}}

	ed := arbor.New(arbor.WithConfig(cfg))

	box, err := ed.Create("Container", factory.WithID("a"))
	require.NoError(t, err)
	other, err := ed.Create("Container", factory.WithID("b"))
	require.NoError(t, err)
	require.NoError(t, ed.Add(domain.RootNodeID, box, other))

	require.NoError(t, ed.SetNodeEvent(domain.EventActive, "a"))
	require.NoError(t, ed.SetNodeEvent(domain.EventActive, "b"))
	require.NoError(t, ed.SetNodeEvent("selected", "a"))
	require.NoError(t, ed.SetNodeEvent("selected", "b"))

	nodes := ed.State().Current.Nodes
	assert.True(t, nodes["a"].Event(domain.EventActive), "active is no longer exclusive")
	assert.True(t, nodes["b"].Event(domain.EventActive))
	assert.False(t, nodes["a"].Event("selected"))
	assert.True(t, nodes["b"].Event("selected"))
}

func TestEditor_LogsWithDocumentName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ed := arbor.New(arbor.WithLogger(logger), arbor.WithName("landing"))

	err := ed.Move("ghost", domain.RootNodeID, 0)
	require.ErrorIs(t, err, domain.ErrInvalidNodeID)

	assert.Contains(t, buf.String(), "document=landing")
	assert.Contains(t, buf.String(), "code=ERROR_INVALID_NODEID")
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, arbor.Version)
}
