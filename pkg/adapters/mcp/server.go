package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/script"
	"github.com/aretw0/arbor/pkg/session"
)

// DefaultDocument is used when a tool call names no document.
const DefaultDocument = "default"

// TreeURI is the resource exposing the tree of the default document.
const TreeURI = "arbor://tree"

// TreeResponse is the structured result of every tool.
type TreeResponse struct {
	Document string        `json:"document" jsonschema_description:"The document the tool acted on"`
	State    *domain.State `json:"state" jsonschema_description:"The committed editor state after the call"`
}

// Server exposes the documents of a session manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func documentParam() mcp.ToolOption {
	return mcp.WithString("document", mcp.Description("Document id (defaults to \"default\")"))
}

func dragParams() mcp.ToolOption {
	return func(t *mcp.Tool) {
		for _, opt := range []mcp.ToolOption{
			mcp.WithString("node", mcp.Description("Existing node being dragged")),
			mcp.WithObject("new", mcp.Description("Node to create instead: type, optional id and props")),
			mcp.WithString("target", mcp.Required(), mcp.Description("Node under the pointer")),
			mcp.WithNumber("x", mcp.Required(), mcp.Description("Pointer x")),
			mcp.WithNumber("y", mcp.Required(), mcp.Description("Pointer y")),
		} {
			opt(t)
		}
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the committed node tree and transient events of a document."),
		documentParam(),
		mcp.WithOutputSchema[TreeResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetTree))

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Create nodes from registered components and insert them under a parent."),
		documentParam(),
		mcp.WithString("parent", mcp.Required(), mcp.Description("Parent node id; ROOT is the tree root")),
		mcp.WithNumber("index", mcp.Description("Insertion position of the first node; appends when omitted")),
		mcp.WithArray("nodes", mcp.Required(),
			mcp.Description("Nodes to create: objects with type, optional id and props"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpAdd))

	s.mcpServer.AddTool(mcp.NewTool("move_node",
		mcp.WithDescription("Move a node into a canvas at the given position."),
		documentParam(),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node to move")),
		mcp.WithString("parent", mcp.Required(), mcp.Description("Destination canvas")),
		mcp.WithNumber("index", mcp.Description("Position inside the destination")),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpMove))

	s.mcpServer.AddTool(mcp.NewTool("set_prop",
		mcp.WithDescription("Set or remove component props of a node."),
		documentParam(),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node to edit")),
		mcp.WithObject("set", mcp.Description("Props to set")),
		mcp.WithArray("unset", mcp.Description("Prop keys to remove"), mcp.WithStringItems()),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpSetProp))

	s.mcpServer.AddTool(mcp.NewTool("set_ref",
		mcp.WithDescription("Replace drop policies or geometry of a node; omitted fields are kept."),
		documentParam(),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node to edit")),
		mcp.WithArray("accept", mcp.Description("Component types accepted as children"), mcp.WithStringItems()),
		mcp.WithArray("reject_incoming", mcp.Description("Node ids refused as children"), mcp.WithStringItems()),
		mcp.WithArray("reject_outgoing", mcp.Description("Child ids that may not leave"), mcp.WithStringItems()),
		mcp.WithBoolean("draggable", mcp.Description("False pins the node")),
		mcp.WithObject("box", mcp.Description("Element geometry: left, top, width, height, inline")),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpSetRef))

	s.mcpServer.AddTool(mcp.NewTool("can_drag",
		mcp.WithDescription("Check whether a node may start a drag gesture."),
		documentParam(),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node to check")),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpCanDrag))

	s.mcpServer.AddTool(mcp.NewTool("set_event",
		mcp.WithDescription("Raise a UI flag such as active or hover on a node, or lower it with clear."),
		documentParam(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Flag name")),
		mcp.WithString("node", mcp.Description("Node id; empty clears the flag everywhere")),
		mcp.WithBoolean("clear", mcp.Description("Lower the flag on the node instead")),
		mcp.WithOutputSchema[TreeResponse](),
	), s.handleSetEvent)

	s.mcpServer.AddTool(mcp.NewTool("placeholder",
		mcp.WithDescription("Show where a node would land if dropped at a pointer position over a target."),
		documentParam(),
		dragParams(),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpPlaceholder))

	s.mcpServer.AddTool(mcp.NewTool("drop",
		mcp.WithDescription("Drop a node at a pointer position over a target, moving or adding it."),
		documentParam(),
		dragParams(),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpDrop))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Restore the previous structural snapshot."),
		documentParam(),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpUndo))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Reapply the most recently undone snapshot."),
		documentParam(),
		mcp.WithOutputSchema[TreeResponse](),
	), s.action(script.OpRedo))
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TreeResponse, error) {
	doc, _ := args["document"].(string)
	if doc == "" {
		doc = DefaultDocument
	}
	var state *domain.State
	err := s.sessions.Do(ctx, doc, func(ctx context.Context, ed ports.Editor) error {
		state = ed.State()
		return nil
	})
	if err != nil {
		return TreeResponse{}, err
	}
	return TreeResponse{Document: doc, State: state}, nil
}

func (s *Server) handleSetEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op := script.OpSetEvent
	if request.GetBool("clear", false) {
		op = script.OpClearEvent
	}
	return s.apply(ctx, op, request.GetArguments())
}

// action returns a handler applying op with the tool arguments.
func (s *Server) action(op string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.apply(ctx, op, request.GetArguments())
	}
}

// apply runs op against a document. Rejected actions are reported as tool errors
// carrying the error code, so the model can correct the call.
func (s *Server) apply(ctx context.Context, op string, raw map[string]any) (*mcp.CallToolResult, error) {
	doc := DefaultDocument
	args := make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case "document":
			if id, ok := v.(string); ok && id != "" {
				doc = id
			}
		case "clear":
		default:
			args[k] = v
		}
	}

	step, err := script.NewStep(op, args)
	if err == nil {
		err = step.Sanitize()
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	var state *domain.State
	err = s.sessions.Do(ctx, doc, func(ctx context.Context, ed ports.Editor) error {
		if err := script.Apply(ed, step); err != nil {
			return err
		}
		state = ed.State()
		return nil
	})
	if err != nil {
		s.logger.Debug("MCP action rejected", "op", op, "document", doc, "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(doc, state)
}

func (s *Server) result(doc string, state *domain.State) (*mcp.CallToolResult, error) {
	resp := TreeResponse{Document: doc, State: state}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return mcp.NewToolResultStructured(resp, string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Node tree of the default document",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var tree *domain.Tree
		err := s.sessions.Do(ctx, DefaultDocument, func(ctx context.Context, ed ports.Editor) error {
			tree = ed.State().Current
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read tree: %w", err)
		}
		data, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TreeURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
