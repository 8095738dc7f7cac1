// Package mcp exposes the task list to external agents over the Model
// Context Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// TaskStore is the subset of the task store the MCP tools use.
type TaskStore interface {
	Tasks() []todo.Task
	AddTask(ctx context.Context) todo.Task
	UpdateTask(ctx context.Context, id int64, changes []todo.Change, actor todo.Actor, reason string) ([]todo.ChangeRecord, bool)
	CompleteTask(ctx context.Context, id int64, completed bool) bool
	CurrentPlan() *plan.DailyPlan
}

// ServerConfig holds MCP server identity and access configuration.
type ServerConfig struct {
	Name    string
	Version string
	// APIKey, when set, is required as a bearer token on every request.
	APIKey string
}

// ServerDeps holds the services the tools read from and write to.
type ServerDeps struct {
	Store TaskStore
}

// Server wraps the mcp-go server with its registered tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	http      *mcpserver.StreamableHTTPServer
}

// NewServer creates an MCP server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if cfg.Name == "" {
		cfg.Name = "focustodo"
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	s.http = mcpserver.NewStreamableHTTPServer(s.mcpServer, mcpserver.WithStateLess(true))
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP endpoint, guarded by the API key.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, s.http)
}

// Shutdown closes open streaming sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
