package intent

import (
	"fmt"
	"strings"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// RawTask is a task as the provider returns it. Pointer fields are optional
// and receive defaults during normalization.
type RawTask struct {
	ID                *float64             `json:"id,omitempty"`
	Text              string               `json:"text"`
	Description       string               `json:"description"`
	Checked           *bool                `json:"checked,omitempty"`
	Priority          todo.Priority        `json:"priority" jsonschema:"enum=low,enum=medium,enum=high,enum=urgent"`
	Complexity        todo.Complexity      `json:"complexity" jsonschema:"enum=simple,enum=moderate,enum=complex"`
	EstimatedMinutes  float64              `json:"estimatedMinutes" jsonschema:"exclusiveMinimum=0"`
	Order             *float64             `json:"order,omitempty"`
	Tags              []string             `json:"tags,omitempty"`
	Deadline          string               `json:"deadline,omitempty"`
	CreatedAt         string               `json:"createdAt,omitempty"`
	CompletedAt       string               `json:"completedAt,omitempty"`
	FocusTimeSpent    *float64             `json:"focusTimeSpent,omitempty"`
	Attempts          *float64             `json:"attempts,omitempty"`
	IsCurrentlyActive *bool                `json:"isCurrentlyActive,omitempty"`
	ProgressStatus    *todo.ProgressStatus `json:"progressStatus,omitempty" jsonschema:"enum=not-started,enum=in-progress,enum=completed,enum=needs-clarification"`
}

// Validate checks the fields a task cannot be defaulted without.
func (r *RawTask) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if !r.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", r.Priority)
	}
	if !r.Complexity.Valid() {
		return fmt.Errorf("invalid complexity %q", r.Complexity)
	}
	if r.EstimatedMinutes <= 0 {
		return fmt.Errorf("estimatedMinutes must be > 0, got %v", r.EstimatedMinutes)
	}
	if r.ProgressStatus != nil && !r.ProgressStatus.Valid() {
		return fmt.Errorf("invalid progressStatus %q", *r.ProgressStatus)
	}
	if r.FocusTimeSpent != nil && *r.FocusTimeSpent < 0 {
		return fmt.Errorf("focusTimeSpent must be >= 0")
	}
	if r.Attempts != nil && *r.Attempts < 0 {
		return fmt.Errorf("attempts must be >= 0")
	}
	return nil
}

// RawOrganize is the provider output for an organize request.
type RawOrganize struct {
	OrganizedTodos []RawTask `json:"organizedTodos"`
	Reasoning      string    `json:"reasoning"`
}

// ValidateResult checks structural conformance of the provider output.
func (r *RawOrganize) ValidateResult() error {
	if r.OrganizedTodos == nil {
		return fmt.Errorf("organizedTodos is required")
	}
	return validateTasks(r.OrganizedTodos)
}

// RawQuestion is a clarifying question as the provider returns it.
type RawQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Context  string `json:"context"`
	Answered *bool  `json:"answered,omitempty"`
	FollowUp *bool  `json:"followUp,omitempty"`
}

// RawQuestions is the provider output for a questions request.
type RawQuestions struct {
	Questions []RawQuestion `json:"questions" jsonschema:"minItems=2,maxItems=4"`
}

// ValidateResult checks structural conformance of the provider output.
func (r *RawQuestions) ValidateResult() error {
	if len(r.Questions) < 2 {
		return fmt.Errorf("expected at least 2 questions, got %d", len(r.Questions))
	}
	for i := range r.Questions {
		if strings.TrimSpace(r.Questions[i].Question) == "" {
			return fmt.Errorf("questions[%d]: question text is required", i)
		}
	}
	return nil
}

// RawDailyPlan is the provider output for a daily plan request.
type RawDailyPlan struct {
	Todos     []RawTask `json:"todos"`
	Reasoning string    `json:"reasoning"`
}

// ValidateResult checks structural conformance of the provider output.
func (r *RawDailyPlan) ValidateResult() error {
	if r.Todos == nil {
		return fmt.Errorf("todos is required")
	}
	return validateTasks(r.Todos)
}

func validateTasks(ts []RawTask) error {
	for i := range ts {
		if err := ts[i].Validate(); err != nil {
			return fmt.Errorf("task[%d]: %w", i, err)
		}
	}
	return nil
}
