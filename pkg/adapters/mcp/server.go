package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/internal/logging"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/registry"
	"github.com/aretw0/playground/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultPlayground is used when a tool call names no playground.
const DefaultPlayground = "default"

// settleTimeout bounds how long get_results waits for running nodes.
const settleTimeout = 10 * time.Second

// Server exposes live playgrounds as MCP tools.
type Server struct {
	sessions  *session.Manager
	registry  *registry.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. Never point it at stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance. reg is the catalog listed by list_kinds.
func NewServer(sessions *session.Manager, reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		registry:  reg,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("playground-mcp", strings.TrimSpace(playground.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func playgroundArg() mcp.ToolOption {
	return mcp.WithString("playground_id", mcp.Description("Playground to operate on (defaults to \""+DefaultPlayground+"\")"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_kinds",
		mcp.WithDescription("List the node kinds that can be placed on a playground, with their input slots and params."),
	), s.handleListKinds)

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a node to the playground. Returns the created node."),
		playgroundArg(),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Node kind, see list_kinds")),
		mcp.WithString("id", mcp.Description("Node ID (generated when omitted)")),
		mcp.WithString("params", mcp.Description("JSON object of node params")),
	), s.handleAddNode)

	s.mcpServer.AddTool(mcp.NewTool("update_params",
		mcp.WithDescription("Replace the params of a node. The node re-runs if its inputs are complete."),
		playgroundArg(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("params", mcp.Required(), mcp.Description("JSON object of node params")),
	), s.handleUpdateParams)

	s.mcpServer.AddTool(mcp.NewTool("remove_node",
		mcp.WithDescription("Remove a node, its edges and the values it published."),
		playgroundArg(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
	), s.handleRemoveNode)

	s.mcpServer.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Connect the output of source to an input slot of target."),
		playgroundArg(),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithString("slot", mcp.Required(), mcp.Description("Input slot of the target")),
	), s.handleConnect)

	s.mcpServer.AddTool(mcp.NewTool("disconnect",
		mcp.WithDescription("Remove an edge."),
		playgroundArg(),
		mcp.WithString("edge_id", mcp.Required(), mcp.Description("Edge ID")),
	), s.handleDisconnect)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the nodes and edges of the playground, including published values."),
		playgroundArg(),
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool("get_results",
		mcp.WithDescription("Get the run status and value of every node. Waits for running nodes first."),
		playgroundArg(),
	), s.handleGetResults)

	s.mcpServer.AddTool(mcp.NewTool("save_playground",
		mcp.WithDescription("Persist the playground canvas."),
		playgroundArg(),
		mcp.WithString("name", mcp.Description("Display name")),
	), s.handleSave)
}

func (s *Server) registerResources() {
	uri := "playground://" + DefaultPlayground + "/graph"
	s.mcpServer.AddResource(mcp.NewResource(uri, "Default Playground Graph",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sess, err := s.sessions.Open(ctx, DefaultPlayground)
		if err != nil {
			return nil, fmt.Errorf("failed to open playground: %w", err)
		}
		jsonBytes, _ := json.Marshal(sess.Engine.Snapshot())
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// Handlers

func (s *Server) handleListKinds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.registry.Kinds())
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params, err := paramsArg(request, "params")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n, err := sess.Engine.Add(domain.Node{
		ID:     request.GetString("id", ""),
		Kind:   request.GetString("kind", ""),
		Params: params,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("add_node failed: %v", err)), nil
	}
	return jsonResult(n)
}

func (s *Server) handleUpdateParams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params, err := paramsArg(request, "params")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := sess.Engine.UpdateParams(request.GetString("node_id", ""), params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update_params failed: %v", err)), nil
	}
	return jsonResult(n)
}

func (s *Server) handleRemoveNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id := request.GetString("node_id", "")
	if err := sess.Engine.RemoveNode(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("remove_node failed: %v", err)), nil
	}
	return mcp.NewToolResultText("removed " + id), nil
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := sess.Engine.Connect(
		request.GetString("source", ""),
		request.GetString("target", ""),
		request.GetString("slot", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("connect failed: %v", err)), nil
	}
	return jsonResult(e)
}

func (s *Server) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id := request.GetString("edge_id", "")
	if err := sess.Engine.Disconnect(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("disconnect failed: %v", err)), nil
	}
	return mcp.NewToolResultText("disconnected " + id), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sess.Engine.Snapshot())
}

func (s *Server) handleGetResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := sess.Engine.Settle(settleCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return mcp.NewToolResultError(fmt.Sprintf("get_results failed: %v", err)), nil
	}
	return jsonResult(sess.Engine.Results())
}

func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if name := request.GetString("name", ""); name != "" {
		sess.Rename(name)
	}
	saved, err := s.sessions.Save(ctx, sess.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", err)), nil
	}
	return jsonResult(saved)
}

// Helpers

func (s *Server) open(ctx context.Context, request mcp.CallToolRequest) (*session.Session, error) {
	id := request.GetString("playground_id", DefaultPlayground)
	if id == "" {
		id = DefaultPlayground
	}
	sess, err := s.sessions.Open(ctx, id)
	if err != nil {
		s.logger.Error("MCP: Open playground failed", "playground_id", id, "err", err)
		return nil, fmt.Errorf("open playground %s: %w", id, err)
	}
	return sess, nil
}

// paramsArg accepts params either as a JSON object string or as an object.
func paramsArg(request mcp.CallToolRequest, key string) (map[string]any, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		dec := json.NewDecoder(strings.NewReader(v))
		dec.UseNumber()
		var params map[string]any
		if err := dec.Decode(&params); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %w", key, err)
		}
		return params, nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object, got %T", key, raw)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
