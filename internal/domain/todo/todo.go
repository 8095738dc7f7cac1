// Package todo defines the Task entity, its change audit trail and the
// closed set of field changes that may be applied to it.
package todo

import (
	"fmt"
	"time"
)

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Complexity describes the cognitive load of a task.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Valid reports whether c is a known complexity.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	}
	return false
}

// ProgressStatus tracks where a task is in its lifecycle.
type ProgressStatus string

const (
	StatusNotStarted         ProgressStatus = "not-started"
	StatusInProgress         ProgressStatus = "in-progress"
	StatusCompleted          ProgressStatus = "completed"
	StatusNeedsClarification ProgressStatus = "needs-clarification"
)

// Valid reports whether s is a known progress status.
func (s ProgressStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusNeedsClarification:
		return true
	}
	return false
}

// Actor identifies who made a change.
type Actor string

const (
	ActorHuman Actor = "human"
	ActorAI    Actor = "ai"
)

// Valid reports whether a is a known actor.
func (a Actor) Valid() bool {
	return a == ActorHuman || a == ActorAI
}

// Defaults applied to newly synthesized tasks.
const (
	DefaultPriority         = PriorityMedium
	DefaultComplexity       = ComplexityModerate
	DefaultEstimatedMinutes = 30
)

// ChangeRecord is an immutable audit entry for one field mutation.
type ChangeRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Field     Field     `json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	UpdatedBy Actor     `json:"updatedBy"`
	Context   string    `json:"context,omitempty"`
}

// Task is the unit of work on the day's list.
type Task struct {
	ID                int64          `json:"id"`
	Text              string         `json:"text"`
	Description       string         `json:"description"`
	Checked           bool           `json:"checked"`
	Priority          Priority       `json:"priority"`
	Complexity        Complexity     `json:"complexity"`
	EstimatedMinutes  int            `json:"estimatedMinutes"`
	Deadline          *time.Time     `json:"deadline,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	CompletedAt       *time.Time     `json:"completedAt,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	Order             int            `json:"order"`
	FocusTimeSpent    int            `json:"focusTimeSpent"`
	Attempts          int            `json:"attempts"`
	IsCurrentlyActive bool           `json:"isCurrentlyActive"`
	ProgressStatus    ProgressStatus `json:"progressStatus"`
	UpdateLog         []ChangeRecord `json:"updateLog,omitempty"`
}

// New returns a task with the documented defaults. Order is left to the caller.
func New(id int64, text string, now time.Time) Task {
	return Task{
		ID:               id,
		Text:             text,
		Priority:         DefaultPriority,
		Complexity:       DefaultComplexity,
		EstimatedMinutes: DefaultEstimatedMinutes,
		CreatedAt:        now,
		ProgressStatus:   StatusNotStarted,
	}
}

// Clone returns a deep copy of t so callers can hold snapshots safely.
func (t Task) Clone() Task {
	c := t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.UpdateLog != nil {
		c.UpdateLog = append([]ChangeRecord(nil), t.UpdateLog...)
	}
	return c
}

// Validate checks the task-level invariants that do not depend on the list.
func (t *Task) Validate() error {
	if t.EstimatedMinutes <= 0 {
		return fmt.Errorf("task %d: estimatedMinutes must be > 0", t.ID)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("task %d: invalid priority %q", t.ID, t.Priority)
	}
	if !t.Complexity.Valid() {
		return fmt.Errorf("task %d: invalid complexity %q", t.ID, t.Complexity)
	}
	if !t.ProgressStatus.Valid() {
		return fmt.Errorf("task %d: invalid progress status %q", t.ID, t.ProgressStatus)
	}
	return nil
}

// CloneAll deep-copies a task list.
func CloneAll(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
