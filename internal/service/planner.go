package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	cfotel "github.com/TEKIMAX/focus-todo-ai/internal/adapter/otel"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// defaultAvailableMinutes is the organize budget when no plan is current.
const defaultAvailableMinutes = 480

// reorganizeReason is the context recorded on order changes made by the
// organize flow.
const reorganizeReason = "AI reorganization"

// OrganizeOutcome is what the organize flow committed.
type OrganizeOutcome struct {
	Tasks     []todo.Task         `json:"tasks"`
	Reasoning string              `json:"reasoning"`
	Changes   []todo.ChangeRecord `json:"changes"`
}

// OnboardingSession is the in-progress onboarding conversation.
type OnboardingSession struct {
	Input     plan.Onboarding `json:"input"`
	Questions []plan.Question `json:"questions"`
	Draft     *plan.DailyPlan `json:"draft,omitempty"`
}

// Planner runs the AI flows that read from and write to the task store.
// Each flow runs under Flows so a newer request cancels an older one.
type Planner struct {
	store   *TaskStore
	gateway *Gateway
	flows   *Flows
	now     func() time.Time

	mu      sync.Mutex
	session *OnboardingSession
}

// NewPlanner wires a planner. flows may be nil.
func NewPlanner(store *TaskStore, gateway *Gateway, flows *Flows) *Planner {
	if flows == nil {
		flows = NewFlows()
	}
	return &Planner{
		store:   store,
		gateway: gateway,
		flows:   flows,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Flows returns the flow tracker used for cancellation.
func (p *Planner) Flows() *Flows { return p.flows }

// Organize asks the provider to reorder the current list and commits the
// result, recording every order change against the AI. An empty list is a
// no-op.
func (p *Planner) Organize(ctx context.Context, mode intent.FocusMode) (*OrganizeOutcome, error) {
	tasks := p.store.Tasks()
	if len(tasks) == 0 {
		return &OrganizeOutcome{Tasks: []todo.Task{}, Changes: []todo.ChangeRecord{}}, nil
	}
	if mode == "" {
		mode = intent.FocusBalanced
	}

	minutes := defaultAvailableMinutes
	if cur := p.store.CurrentPlan(); cur != nil && cur.AvailableMinutes() > 0 {
		minutes = cur.AvailableMinutes()
	}

	ctx, done := p.flows.Begin(ctx, FlowOrganize)
	defer done()
	ctx, span := cfotel.StartFlowSpan(ctx, string(FlowOrganize))
	defer span.End()

	p.store.SetOrganizing(ctx, true)
	defer p.store.SetOrganizing(context.WithoutCancel(ctx), false)

	app, ai := p.store.AppSettings(), p.store.AISettings()
	res, err := p.gateway.Organize(ctx, intent.OrganizeRequest{
		Todos:                 tasks,
		TotalAvailableMinutes: minutes,
		FocusMode:             mode,
	}, &app, ai)
	if err != nil {
		return nil, err
	}

	records, err := p.store.ApplyReorganization(ctx, res.OrganizedTodos, todo.ActorAI, reorganizeReason)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []todo.ChangeRecord{}
	}
	slog.InfoContext(ctx, "tasks reorganized", "tasks", len(res.OrganizedTodos), "order_changes", len(records))
	return &OrganizeOutcome{Tasks: p.store.Tasks(), Reasoning: res.Reasoning, Changes: records}, nil
}

// StartOnboarding begins a new onboarding conversation and asks the
// provider for clarifying questions. Any previous session is discarded.
func (p *Planner) StartOnboarding(ctx context.Context, in plan.Onboarding) (*OnboardingSession, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, done := p.flows.Begin(ctx, FlowOnboarding)
	defer done()

	app, ai := p.store.AppSettings(), p.store.AISettings()
	res, err := p.gateway.Questions(ctx, intent.QuestionsRequest{
		UserInput:     in.DailyDescription,
		AvailableTime: in.AvailableTime,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
	}, &app, ai)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, intent.ErrCancelled
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = &OnboardingSession{Input: in, Questions: res.Questions}
	return p.sessionLocked(), nil
}

// AnswerQuestion records an answer locally. No provider call is made.
func (p *Planner) AnswerQuestion(id, answer string) (*OnboardingSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, fmt.Errorf("onboarding session: %w", domain.ErrNotFound)
	}
	if err := plan.Answer(p.session.Questions, id, answer); err != nil {
		return nil, err
	}
	p.session.Draft = nil
	return p.sessionLocked(), nil
}

// Onboarding returns the session in progress, or nil.
func (p *Planner) Onboarding() *OnboardingSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionLocked()
}

// GeneratePlan asks the provider for the day's tasks once every question is
// answered. The plan is kept as a draft until CompleteOnboarding.
func (p *Planner) GeneratePlan(ctx context.Context) (*plan.DailyPlan, error) {
	p.mu.Lock()
	if p.session == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("onboarding session: %w", domain.ErrNotFound)
	}
	if !plan.AllAnswered(p.session.Questions) {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: every question must be answered first", domain.ErrValidation)
	}
	in := p.session.Input
	pairs := plan.Pairs(p.session.Questions)
	p.mu.Unlock()

	ctx, done := p.flows.Begin(ctx, FlowOnboarding)
	defer done()

	now := p.now()
	app, ai := p.store.AppSettings(), p.store.AISettings()
	res, err := p.gateway.DailyPlan(ctx, intent.DailyPlanRequest{
		UserInput:         in.DailyDescription,
		AvailableHours:    in.AvailableTime,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		CurrentDate:       now.Format(time.RFC3339),
		AnsweredQuestions: pairs,
	}, &app, ai)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, intent.ErrCancelled
	}

	draft := &plan.DailyPlan{
		ID:             uuid.NewString(),
		Date:           now.In(p.store.Location()),
		UserInput:      in.DailyDescription,
		AvailableHours: in.AvailableTime,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Priorities:     append([]string{}, in.Priorities...),
		Todos:          res.Todos,
		IsFinalized:    res.IsFinalized,
		AIReasoning:    strings.TrimSpace(res.Reasoning),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.Draft = draft.Clone()
	}
	return draft, nil
}

// CompleteOnboarding installs dp, or the generated draft when dp is nil, as
// the current plan and ends the session.
func (p *Planner) CompleteOnboarding(ctx context.Context, dp *plan.DailyPlan) (*plan.DailyPlan, error) {
	if dp == nil {
		p.mu.Lock()
		if p.session != nil {
			dp = p.session.Draft.Clone()
		}
		p.mu.Unlock()
		if dp == nil {
			return nil, fmt.Errorf("onboarding draft plan: %w", domain.ErrNotFound)
		}
	}
	if err := p.store.CompleteOnboarding(ctx, dp); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	return p.store.CurrentPlan(), nil
}

// Rewrite turns bullet points into a paragraph. Nothing is stored.
func (p *Planner) Rewrite(ctx context.Context, bullets string) (*intent.RewriteResult, error) {
	ctx, done := p.flows.Begin(ctx, FlowRewrite)
	defer done()
	app, ai := p.store.AppSettings(), p.store.AISettings()
	return p.gateway.Rewrite(ctx, intent.RewriteRequest{BulletPoints: bullets}, &app, ai)
}

// Document drafts a statement of work. Nothing is stored.
func (p *Planner) Document(ctx context.Context, project intent.ProjectData) (*intent.SOWResult, error) {
	ctx, done := p.flows.Begin(ctx, FlowDocument)
	defer done()
	app, ai := p.store.AppSettings(), p.store.AISettings()
	return p.gateway.SOW(ctx, intent.SOWRequest{ProjectData: project}, &app, ai)
}

func (p *Planner) sessionLocked() *OnboardingSession {
	if p.session == nil {
		return nil
	}
	c := &OnboardingSession{
		Input:     p.session.Input,
		Questions: append([]plan.Question(nil), p.session.Questions...),
		Draft:     p.session.Draft.Clone(),
	}
	c.Input.Priorities = append([]string{}, p.session.Input.Priorities...)
	return c
}
