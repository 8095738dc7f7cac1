// Package plan defines daily planning sessions: the plan itself, the
// clarifying questions asked while building it and history statistics.
package plan

import (
	"fmt"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// DateLayout is the calendar-date key used for plan history.
const DateLayout = "2006-01-02"

// DailyPlan is a snapshot of one planning session.
type DailyPlan struct {
	ID             string      `json:"id"`
	Date           time.Time   `json:"date"`
	UserInput      string      `json:"userInput"`
	AvailableHours float64     `json:"availableHours"`
	StartTime      string      `json:"startTime"`
	EndTime        string      `json:"endTime"`
	Priorities     []string    `json:"priorities"`
	Todos          []todo.Task `json:"todos"`
	IsFinalized    bool        `json:"isFinalized"`
	AIReasoning    string      `json:"aiReasoning,omitempty"`
}

// DateKey returns the history key: the calendar date in the zone Date carries.
func (p *DailyPlan) DateKey() string {
	return p.Date.Format(DateLayout)
}

// AvailableMinutes converts the plan's hour budget to minutes.
func (p *DailyPlan) AvailableMinutes() int {
	return int(p.AvailableHours * 60)
}

// Clone returns a deep copy of p.
func (p *DailyPlan) Clone() *DailyPlan {
	if p == nil {
		return nil
	}
	c := *p
	c.Priorities = append([]string(nil), p.Priorities...)
	c.Todos = todo.CloneAll(p.Todos)
	return &c
}

// Validate checks the fields a plan needs before it becomes current.
func (p *DailyPlan) Validate() error {
	if p.Date.IsZero() {
		return fmt.Errorf("%w: plan date is required", domain.ErrValidation)
	}
	if p.AvailableHours < 0 {
		return fmt.Errorf("%w: availableHours must be >= 0", domain.ErrValidation)
	}
	for i := range p.Todos {
		if err := p.Todos[i].Validate(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
	}
	return nil
}

// Stats summarizes an archived plan for the history view.
type Stats struct {
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	FocusMinutes   int `json:"focusMinutes"`
}

// Summarize computes history statistics for p.
func Summarize(p *DailyPlan) Stats {
	s := Stats{TotalTasks: len(p.Todos)}
	for i := range p.Todos {
		if p.Todos[i].Checked {
			s.CompletedTasks++
		}
		s.FocusMinutes += p.Todos[i].FocusTimeSpent
	}
	return s
}
