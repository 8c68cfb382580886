package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/script"
	"github.com/aretw0/arbor/pkg/session"
)

func newTestServer() *Server {
	return NewServer(session.NewManager(func(doc string) ports.Editor {
		ed := arbor.New(arbor.WithName(doc))
		ed.Registry().Register(domain.ComponentType{Name: "h3"})
		return ed
	}))
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func treeOf(t *testing.T, res *mcp.CallToolResult) TreeResponse {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var resp TreeResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &resp))
	return resp
}

func TestTools_AddMoveAndProps(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.action(script.OpAdd)(ctx, request(map[string]any{
		"document": "home",
		"parent":   "ROOT",
		"nodes": []any{
			map[string]any{"id": "list", "type": "Canvas"},
			map[string]any{"id": "title", "type": "h3"},
		},
	}))
	require.NoError(t, err)
	resp := treeOf(t, res)
	assert.Equal(t, "home", resp.Document)
	assert.Equal(t, []string{"list", "title"}, resp.State.Current.Nodes[domain.RootNodeID].Data.Nodes)

	res, err = s.action(script.OpMove)(ctx, request(map[string]any{
		"document": "home", "node": "title", "parent": "list", "index": float64(0),
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, treeOf(t, res).State.Current.Nodes["list"].Data.Nodes)

	res, err = s.action(script.OpSetProp)(ctx, request(map[string]any{
		"document": "home", "node": "title", "set": map[string]any{"text": "Hello"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Hello", treeOf(t, res).State.Current.Nodes["title"].Data.Props["text"])
}

func TestTools_RejectionIsToolError(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.action(script.OpAdd)(ctx, request(map[string]any{
		"parent": "ROOT", "nodes": []any{map[string]any{"id": "list", "type": "Canvas"}},
	}))
	require.NoError(t, err)

	res, err := s.action(script.OpMove)(ctx, request(map[string]any{"node": "list", "parent": "list"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), string(domain.CodeMoveToDescendant))

	res, err = s.action(script.OpMove)(ctx, request(map[string]any{"node": "list", "speed": "fast"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "invalid arguments")
}

func TestTools_SetEventAndClear(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleSetEvent(ctx, request(map[string]any{"name": "active", "node": "ROOT"}))
	require.NoError(t, err)
	assert.True(t, treeOf(t, res).State.Current.Nodes[domain.RootNodeID].Event(domain.EventActive))

	res, err = s.handleSetEvent(ctx, request(map[string]any{"name": "active", "node": "ROOT", "clear": true}))
	require.NoError(t, err)
	assert.False(t, treeOf(t, res).State.Current.Nodes[domain.RootNodeID].Event(domain.EventActive))
}

func TestTools_PlaceholderAndDrop(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.action(script.OpAdd)(ctx, request(map[string]any{
		"parent": "ROOT",
		"nodes": []any{
			map[string]any{"id": "list", "type": "Canvas"},
			map[string]any{"id": "title", "type": "h3"},
		},
	}))
	require.NoError(t, err)

	drag := map[string]any{"node": "title", "target": "list", "x": float64(5), "y": float64(5)}
	res, err := s.action(script.OpPlaceholder)(ctx, request(drag))
	require.NoError(t, err)
	info := treeOf(t, res).State.Events.Placeholder
	require.NotNil(t, info)
	require.NotNil(t, info.Placement)
	assert.Equal(t, "list", info.Placement.Parent.ID)
	assert.Nil(t, info.Error)

	res, err = s.action(script.OpDrop)(ctx, request(drag))
	require.NoError(t, err)
	resp := treeOf(t, res)
	assert.Equal(t, []string{"title"}, resp.State.Current.Nodes["list"].Data.Nodes)
	assert.Nil(t, resp.State.Events.Placeholder)

	res, err = s.action(script.OpDrop)(ctx, request(map[string]any{
		"node": "list", "target": "title", "x": float64(0), "y": float64(0),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), string(domain.CodeMoveToDescendant))
}

func TestTools_SetRefAndCanDrag(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.action(script.OpAdd)(ctx, request(map[string]any{
		"parent": "ROOT", "nodes": []any{map[string]any{"id": "title", "type": "h3"}},
	}))
	require.NoError(t, err)

	res, err := s.action(script.OpCanDrag)(ctx, request(map[string]any{"node": "title"}))
	require.NoError(t, err)
	assert.False(t, res.IsError, text(t, res))

	res, err = s.action(script.OpSetRef)(ctx, request(map[string]any{"node": "title", "draggable": false}))
	require.NoError(t, err)
	assert.False(t, res.IsError, text(t, res))

	res, err = s.action(script.OpCanDrag)(ctx, request(map[string]any{"node": "title"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), string(domain.CodeDragRejected))
}

func TestTools_UndoRedo(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.action(script.OpUndo)(ctx, request(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), string(domain.CodeNothingToUndo))

	_, err = s.action(script.OpAdd)(ctx, request(map[string]any{
		"parent": "ROOT", "nodes": []any{map[string]any{"id": "a", "type": "h3"}},
	}))
	require.NoError(t, err)

	res, err = s.action(script.OpUndo)(ctx, request(nil))
	require.NoError(t, err)
	assert.False(t, treeOf(t, res).State.Current.Has("a"))

	res, err = s.action(script.OpRedo)(ctx, request(map[string]any{"document": DefaultDocument}))
	require.NoError(t, err)
	assert.True(t, treeOf(t, res).State.Current.Has("a"))
}

func TestGetTree(t *testing.T) {
	s := newTestServer()

	resp, err := s.handleGetTree(context.Background(), request(nil), map[string]any{"document": "about"})
	require.NoError(t, err)
	assert.Equal(t, "about", resp.Document)
	assert.True(t, resp.State.Current.Has(domain.RootNodeID))
	assert.Equal(t, []string{"about"}, s.sessions.List())
}

func TestTreeResource(t *testing.T) {
	s := newTestServer()
	_, err := s.action(script.OpAdd)(context.Background(), request(map[string]any{
		"parent": "ROOT", "nodes": []any{map[string]any{"id": "a", "type": "h3"}},
	}))
	require.NoError(t, err)

	msg := s.MCPServer().HandleMessage(context.Background(), []byte(
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"arbor://tree"}}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `\"id\":\"a\"`)
	assert.Contains(t, string(data), TreeURI)
}
