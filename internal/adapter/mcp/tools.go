package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// mcpReason is the change-record context for edits made through MCP.
const mcpReason = "Added via MCP"

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listTasksTool(),
		s.addTaskTool(),
		s.completeTaskTool(),
		s.currentPlanTool(),
	)
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_tasks",
		mcplib.WithDescription("List today's tasks in their current order"),
		mcplib.WithBoolean("include_completed",
			mcplib.Description("Include tasks already marked complete (default true)"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTasks}
}

func (s *Server) addTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("add_task",
		mcplib.WithDescription("Append a task to the end of today's list"),
		mcplib.WithString("text",
			mcplib.Required(),
			mcplib.Description("Short title of the task"),
		),
		mcplib.WithString("description",
			mcplib.Description("Optional longer description"),
		),
		mcplib.WithString("priority",
			mcplib.Description("low, medium, high or urgent"),
			mcplib.Enum("low", "medium", "high", "urgent"),
		),
		mcplib.WithNumber("estimated_minutes",
			mcplib.Description("Estimated effort in minutes"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleAddTask}
}

func (s *Server) completeTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("complete_task",
		mcplib.WithDescription("Mark a task complete or incomplete"),
		mcplib.WithNumber("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID"),
		),
		mcplib.WithBoolean("completed",
			mcplib.Description("false reopens the task (default true)"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCompleteTask}
}

func (s *Server) currentPlanTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_current_plan",
		mcplib.WithDescription("Get today's plan: the inputs it was built from and the AI's reasoning"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCurrentPlan}
}

func (s *Server) handleListTasks(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Store == nil {
		return mcplib.NewToolResultError("task store not configured"), nil
	}
	includeDone := true
	if v, ok := req.GetArguments()["include_completed"].(bool); ok {
		includeDone = v
	}
	tasks := s.deps.Store.Tasks()
	out := make([]todo.Task, 0, len(tasks))
	for i := range tasks {
		if !includeDone && tasks[i].Checked {
			continue
		}
		tasks[i].UpdateLog = nil
		out = append(out, tasks[i])
	}
	return jsonResult(out, "tasks")
}

func (s *Server) handleAddTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Store == nil {
		return mcplib.NewToolResultError("task store not configured"), nil
	}
	args := req.GetArguments()
	text, _ := args["text"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return mcplib.NewToolResultError("text is required"), nil
	}

	changes := []todo.Change{todo.SetText{Value: text}}
	if desc, ok := args["description"].(string); ok && desc != "" {
		changes = append(changes, todo.SetDescription{Value: desc})
	}
	if p, ok := args["priority"].(string); ok && p != "" {
		prio := todo.Priority(p)
		if !prio.Valid() {
			return mcplib.NewToolResultError(fmt.Sprintf("invalid priority %q", p)), nil
		}
		changes = append(changes, todo.SetPriority{Value: prio})
	}
	if m, ok := args["estimated_minutes"].(float64); ok {
		if m <= 0 {
			return mcplib.NewToolResultError("estimated_minutes must be > 0"), nil
		}
		changes = append(changes, todo.SetEstimatedMinutes{Value: max(1, int(math.Round(m)))})
	}

	t := s.deps.Store.AddTask(ctx)
	s.deps.Store.UpdateTask(ctx, t.ID, changes, todo.ActorAI, mcpReason)
	for _, cur := range s.deps.Store.Tasks() {
		if cur.ID == t.ID {
			return jsonResult(cur, "task")
		}
	}
	return mcplib.NewToolResultError("task vanished after creation"), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Store == nil {
		return mcplib.NewToolResultError("task store not configured"), nil
	}
	args := req.GetArguments()
	raw, ok := args["task_id"].(float64)
	if !ok || raw <= 0 || raw != math.Trunc(raw) {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	completed := true
	if v, ok := args["completed"].(bool); ok {
		completed = v
	}
	id := int64(raw)
	if !s.deps.Store.CompleteTask(ctx, id, completed) {
		return mcplib.NewToolResultError(fmt.Sprintf("task %d not found", id)), nil
	}
	state := "complete"
	if !completed {
		state = "incomplete"
	}
	return mcplib.NewToolResultText(fmt.Sprintf("task %d marked %s", id, state)), nil
}

func (s *Server) handleCurrentPlan(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Store == nil {
		return mcplib.NewToolResultError("task store not configured"), nil
	}
	p := s.deps.Store.CurrentPlan()
	if p == nil {
		return mcplib.NewToolResultText("no plan for today yet"), nil
	}
	return jsonResult(p, "plan")
}

func jsonResult(v any, what string) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal "+what, err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
