// Package intent defines the AI generation intents: their request payloads,
// the raw shapes a provider must return, the normalized results handed to
// the task store and the generation error taxonomy.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// Kind names an intent.
type Kind string

const (
	KindOrganize  Kind = "organize-todos"
	KindQuestions Kind = "generate-questions"
	KindDailyPlan Kind = "generate-daily-plan"
	KindRewrite   Kind = "rewrite-description"
	KindSOW       Kind = "generate-sow-document"
)

// Kinds lists every supported intent.
var Kinds = []Kind{KindOrganize, KindQuestions, KindDailyPlan, KindRewrite, KindSOW}

// Structured reports whether the intent expects schema-conformant JSON
// rather than free text.
func (k Kind) Structured() bool {
	switch k {
	case KindOrganize, KindQuestions, KindDailyPlan:
		return true
	}
	return false
}

// FocusMode steers how an organize request weighs tasks.
type FocusMode string

const (
	FocusBalanced   FocusMode = "balanced"
	FocusUrgent     FocusMode = "urgent"
	FocusDeadline   FocusMode = "deadline"
	FocusComplexity FocusMode = "complexity"
)

// Valid reports whether m is a known focus mode.
func (m FocusMode) Valid() bool {
	switch m {
	case FocusBalanced, FocusUrgent, FocusDeadline, FocusComplexity:
		return true
	}
	return false
}

// Request is implemented by every intent payload.
type Request interface {
	Kind() Kind
	Validate() error
}

// OrganizeRequest asks the provider to reorder and reprioritize tasks.
type OrganizeRequest struct {
	Todos                 []todo.Task `json:"todos"`
	TotalAvailableMinutes int         `json:"totalAvailableMinutes"`
	FocusMode             FocusMode   `json:"focusMode"`
}

func (OrganizeRequest) Kind() Kind { return KindOrganize }

func (r OrganizeRequest) Validate() error {
	if len(r.Todos) == 0 {
		return fmt.Errorf("%w: todos must not be empty", domain.ErrValidation)
	}
	if r.TotalAvailableMinutes <= 0 {
		return fmt.Errorf("%w: totalAvailableMinutes must be > 0", domain.ErrValidation)
	}
	if !r.FocusMode.Valid() {
		return fmt.Errorf("%w: unknown focusMode %q", domain.ErrValidation, r.FocusMode)
	}
	return nil
}

// QuestionsRequest asks for clarifying questions about the user's day.
type QuestionsRequest struct {
	UserInput     string  `json:"userInput"`
	AvailableTime float64 `json:"availableTime"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
}

func (QuestionsRequest) Kind() Kind { return KindQuestions }

func (r QuestionsRequest) Validate() error {
	if strings.TrimSpace(r.UserInput) == "" {
		return fmt.Errorf("%w: userInput is required", domain.ErrValidation)
	}
	if r.AvailableTime < 0 {
		return fmt.Errorf("%w: availableTime must be >= 0", domain.ErrValidation)
	}
	return nil
}

// DailyPlanRequest asks for a complete task list for the day.
type DailyPlanRequest struct {
	UserInput         string                  `json:"userInput"`
	AvailableHours    float64                 `json:"availableHours"`
	StartTime         string                  `json:"startTime"`
	EndTime           string                  `json:"endTime"`
	CurrentDate       string                  `json:"currentDate"`
	AnsweredQuestions []plan.AnsweredQuestion `json:"answeredQuestions"`
}

func (DailyPlanRequest) Kind() Kind { return KindDailyPlan }

func (r DailyPlanRequest) Validate() error {
	if strings.TrimSpace(r.UserInput) == "" {
		return fmt.Errorf("%w: userInput is required", domain.ErrValidation)
	}
	if r.AvailableHours <= 0 {
		return fmt.Errorf("%w: availableHours must be > 0", domain.ErrValidation)
	}
	return nil
}

// RewriteRequest asks for bullet points to be turned into a paragraph.
type RewriteRequest struct {
	BulletPoints string `json:"bulletPoints"`
}

func (RewriteRequest) Kind() Kind { return KindRewrite }

func (r RewriteRequest) Validate() error {
	if strings.TrimSpace(r.BulletPoints) == "" {
		return fmt.Errorf("%w: bulletPoints is required", domain.ErrValidation)
	}
	return nil
}

// ProjectData describes the project a statement of work is drafted for.
type ProjectData struct {
	ProjectName        string   `json:"projectName"`
	ProjectDescription string   `json:"projectDescription"`
	Timeline           string   `json:"timeline"`
	Budget             string   `json:"budget,omitempty"`
	Constraints        string   `json:"constraints,omitempty"`
	Deliverables       []string `json:"deliverables"`
	Stakeholders       []string `json:"stakeholders"`
	Requirements       []string `json:"requirements"`
}

// SOWRequest asks for a formal statement-of-work document.
type SOWRequest struct {
	ProjectData ProjectData `json:"projectData"`
}

func (SOWRequest) Kind() Kind { return KindSOW }

func (r SOWRequest) Validate() error {
	if strings.TrimSpace(r.ProjectData.ProjectName) == "" {
		return fmt.Errorf("%w: projectData.projectName is required", domain.ErrValidation)
	}
	if strings.TrimSpace(r.ProjectData.ProjectDescription) == "" {
		return fmt.Errorf("%w: projectData.projectDescription is required", domain.ErrValidation)
	}
	return nil
}

// Decode parses an intent-specific payload. Fields that belong to other
// intents or to provider selection are ignored.
func Decode(kind Kind, raw json.RawMessage) (Request, error) {
	var (
		req Request
		err error
	)
	switch kind {
	case KindOrganize:
		var r OrganizeRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case KindQuestions:
		var r QuestionsRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case KindDailyPlan:
		var r DailyPlanRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case KindRewrite:
		var r RewriteRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case KindSOW:
		var r SOWRequest
		err = json.Unmarshal(raw, &r)
		req = r
	default:
		return nil, fmt.Errorf("%w: invalid request type %q", domain.ErrValidation, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", domain.ErrValidation, kind, err)
	}
	return req, nil
}
