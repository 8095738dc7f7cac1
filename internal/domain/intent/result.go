package intent

import (
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// OrganizeResult is the normalized outcome of an organize request.
type OrganizeResult struct {
	OrganizedTodos []todo.Task `json:"organizedTodos"`
	Reasoning      string      `json:"reasoning"`
}

// QuestionsResult carries the clarifying questions for onboarding.
type QuestionsResult struct {
	Questions []plan.Question `json:"questions"`
}

// DailyPlanResult is the normalized task list for a new day.
type DailyPlanResult struct {
	Todos       []todo.Task `json:"todos"`
	Reasoning   string      `json:"reasoning"`
	IsFinalized bool        `json:"isFinalized"`
}

// RewriteResult is the rewritten paragraph.
type RewriteResult struct {
	RewrittenText string `json:"rewrittenText"`
}

// SOWResult is the generated statement of work as HTML markup.
type SOWResult struct {
	Content string `json:"content"`
}
