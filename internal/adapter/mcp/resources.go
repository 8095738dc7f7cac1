package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	URITasks       = "focustodo://tasks"
	URICurrentPlan = "focustodo://plan/current"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			URITasks,
			"Task List",
			mcplib.WithResourceDescription("Today's tasks with their change history"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTasksResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			URICurrentPlan,
			"Current Plan",
			mcplib.WithResourceDescription("Today's daily plan, or null before onboarding"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handlePlanResource,
	)
}

func (s *Server) handleTasksResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Store == nil {
		return jsonContents(req.Params.URI, `{"error":"task store not configured"}`), nil
	}
	data, err := json.Marshal(s.deps.Store.Tasks())
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, string(data)), nil
}

func (s *Server) handlePlanResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Store == nil {
		return jsonContents(req.Params.URI, `{"error":"task store not configured"}`), nil
	}
	data, err := json.Marshal(s.deps.Store.CurrentPlan())
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, string(data)), nil
}

func jsonContents(uri, text string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}
}
