package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/broadcast"
)

// State is the persisted subset of the store.
type State struct {
	HasCompletedOnboarding bool                 `json:"hasCompletedOnboarding"`
	LastOnboardingDate     string               `json:"lastOnboardingDate,omitempty"`
	CurrentPlan            *plan.DailyPlan      `json:"currentPlan"`
	Items                  []todo.Task          `json:"items"`
	AISettings             settings.AISettings  `json:"aiSettings"`
	AppSettings            settings.AppSettings `json:"appSettings"`
}

func (s *State) clone() State {
	c := *s
	c.CurrentPlan = s.CurrentPlan.Clone()
	c.Items = todo.CloneAll(s.Items)
	c.AppSettings.AvailableModels = append([]settings.LocalModel(nil), s.AppSettings.AvailableModels...)
	return c
}

// CompletionDialog is shown when a focus session ends.
type CompletionDialog struct {
	IsOpen    bool   `json:"isOpen"`
	TodoID    *int64 `json:"todoId"`
	TimeSpent int    `json:"timeSpent"`
	Completed bool   `json:"completed"`
}

// Session is UI state that lives only as long as the process.
type Session struct {
	IsOrganizing     bool             `json:"isOrganizing"`
	CurrentFocusID   *int64           `json:"currentFocusId"`
	FocusStartTime   *time.Time       `json:"focusStartTime"`
	CompletionDialog CompletionDialog `json:"completionDialog"`
	DetailPanelOpen  bool             `json:"detailPanelOpen"`
	SelectedTodo     *todo.Task       `json:"selectedTodo"`
	ShowSettings     bool             `json:"showSettings"`
}

// Snapshot is a deep copy of everything the UI renders from.
type Snapshot struct {
	State
	Session
}

// Persister saves the persisted subset after each committed mutation and
// keeps the date-keyed plan history.
type Persister interface {
	LoadState(ctx context.Context) (State, bool, error)
	SaveState(ctx context.Context, st State) error
	SavePlan(ctx context.Context, p *plan.DailyPlan) error
	ListPlans(ctx context.Context) ([]plan.DailyPlan, error)
}

// TaskStore is the single source of truth for the task list, the current
// plan, UI session flags and settings. Every mutation runs to completion
// under one lock; persistence and broadcast happen after the commit.
type TaskStore struct {
	mu      sync.Mutex
	state   State
	session Session

	persister   Persister
	broadcaster broadcast.Broadcaster
	now         func() time.Time
	nextID      func() int64
	loc         *time.Location
}

// StoreOption configures a TaskStore.
type StoreOption func(*TaskStore)

// WithPersister attaches durable storage.
func WithPersister(p Persister) StoreOption {
	return func(s *TaskStore) { s.persister = p }
}

// WithBroadcaster pushes a snapshot to connected clients after each mutation.
func WithBroadcaster(b broadcast.Broadcaster) StoreOption {
	return func(s *TaskStore) { s.broadcaster = b }
}

// WithClock replaces the wall clock. The function must return UTC times.
func WithClock(now func() time.Time) StoreOption {
	return func(s *TaskStore) { s.now = now }
}

// WithLocation sets the time zone that decides when the calendar day
// rolls over. The default is time.Local.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *TaskStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithIDGenerator replaces the task id generator.
func WithIDGenerator(next func() int64) StoreOption {
	return func(s *TaskStore) { s.nextID = next }
}

// NewTaskStore creates a store holding default settings and no tasks.
func NewTaskStore(opts ...StoreOption) *TaskStore {
	s := &TaskStore{
		state: State{
			Items:       []todo.Task{},
			AISettings:  settings.DefaultAI(),
			AppSettings: settings.DefaultApp(),
		},
		now: func() time.Time { return time.Now().UTC() },
		loc: time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	if s.nextID == nil {
		s.nextID = millisIDs(s.now)
	}
	return s
}

// millisIDs hands out millisecond timestamps, bumped when two calls land in
// the same millisecond so ids stay unique.
func millisIDs(now func() time.Time) func() int64 {
	var (
		mu   sync.Mutex
		last int64
	)
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		id := now().UnixMilli()
		if id <= last {
			id = last + 1
		}
		last = id
		return id
	}
}

// Load restores persisted state. A missing snapshot leaves the defaults.
func (s *TaskStore) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	st, ok, err := s.persister.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		if st.Items == nil {
			st.Items = []todo.Task{}
		}
		if st.AppSettings.AvailableModels == nil {
			st.AppSettings.AvailableModels = []settings.LocalModel{}
		}
		if st.AISettings == (settings.AISettings{}) {
			st.AISettings = settings.DefaultAI()
		}
		s.state = st
	}
	s.ensureDayLocked()
	return nil
}

// Snapshot returns a deep copy of the whole store with the API key redacted.
func (s *TaskStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *TaskStore) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state.clone(), Session: s.session}
	snap.AppSettings = snap.AppSettings.Redacted()
	if s.session.SelectedTodo != nil {
		t := s.session.SelectedTodo.Clone()
		snap.SelectedTodo = &t
	}
	return snap
}

// Tasks returns a copy of the current task list.
func (s *TaskStore) Tasks() []todo.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return todo.CloneAll(s.state.Items)
}

// Task returns the task with id.
func (s *TaskStore) Task(id int64) (todo.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.state.Items[i].Clone(), true
	}
	return todo.Task{}, false
}

// CurrentPlan returns a copy of the current plan, or nil.
func (s *TaskStore) CurrentPlan() *plan.DailyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentPlan.Clone()
}

// AppSettings returns the current application settings.
func (s *TaskStore) AppSettings() settings.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.state.AppSettings
	c.AvailableModels = append([]settings.LocalModel(nil), c.AvailableModels...)
	return c
}

// AISettings returns the current sampling parameters.
func (s *TaskStore) AISettings() settings.AISettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AISettings
}

// SetTasks replaces the list wholesale. Orders are kept as given and no
// change records are written. Ids must be unique; only the first task
// flagged active keeps the flag.
func (s *TaskStore) SetTasks(ctx context.Context, tasks []todo.Task) error {
	seen := make(map[int64]bool, len(tasks))
	for i := range tasks {
		if seen[tasks[i].ID] {
			return fmt.Errorf("%w: duplicate task id %d", domain.ErrValidation, tasks[i].ID)
		}
		seen[tasks[i].ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := todo.CloneAll(tasks)
	if next == nil {
		next = []todo.Task{}
	}
	active := false
	for i := range next {
		if next[i].IsCurrentlyActive {
			next[i].IsCurrentlyActive = !active
			active = true
		}
	}
	s.state.Items = next
	s.dropStaleSessionLocked()
	s.syncSelectionLocked()
	s.commitLocked(ctx, true)
	return nil
}

// AddTask appends a task with default fields and the next order.
func (s *TaskStore) AddTask(ctx context.Context) todo.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := todo.New(s.nextID(), fmt.Sprintf("New Task %d", len(s.state.Items)+1), s.now())
	t.Order = todo.NextOrder(s.state.Items)
	t.UpdateLog = []todo.ChangeRecord{}
	s.state.Items = append(s.state.Items, t)
	s.commitLocked(ctx, true)
	return t.Clone()
}

// DeleteTask removes the task with id. Remaining orders are not renumbered.
// It reports whether a task was removed.
func (s *TaskStore) DeleteTask(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
	if s.session.CurrentFocusID != nil && *s.session.CurrentFocusID == id {
		s.session.CurrentFocusID = nil
		s.session.FocusStartTime = nil
	}
	if s.session.SelectedTodo != nil && s.session.SelectedTodo.ID == id {
		s.session.SelectedTodo = nil
		s.session.DetailPanelOpen = false
	}
	s.commitLocked(ctx, true)
	return true
}

// Reorder sorts by the current order and renumbers 1..N, closing any gaps
// left by deletions.
func (s *TaskStore) Reorder(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo.Compact(s.state.Items)
	s.syncSelectionLocked()
	s.commitLocked(ctx, true)
}

// CompleteTask marks the task complete or incomplete. A status change
// record is written only when the completion state actually flips.
func (s *TaskStore) CompleteTask(ctx context.Context, id int64, completed bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.completeLocked(&s.state.Items[i], completed)
	s.dropStaleSessionLocked()
	s.syncSelectionLocked()
	s.commitLocked(ctx, true)
	return true
}

func (s *TaskStore) completeLocked(t *todo.Task, completed bool) {
	if t.Checked != completed {
		reason := "Task marked as incomplete"
		if completed {
			reason = "Task marked as completed"
		}
		s.appendRecordLocked(t, todo.FieldStatus, statusLabel(t.Checked), statusLabel(completed), todo.ActorHuman, reason)
	}

	t.Checked = completed
	t.IsCurrentlyActive = false
	if completed {
		now := s.now()
		t.CompletedAt = &now
		t.ProgressStatus = todo.StatusCompleted
	} else {
		t.CompletedAt = nil
		t.ProgressStatus = todo.StatusNeedsClarification
	}
}

func statusLabel(checked bool) string {
	if checked {
		return "completed"
	}
	return "pending"
}

// UpdateTask applies changes and appends one change record per field whose
// value actually changed. Activating a task this way clears the flag on
// every other task and moves a running focus session onto it; deactivating
// or completing the focused task ends the session. It returns the new
// records.
func (s *TaskStore) UpdateTask(ctx context.Context, id int64, changes []todo.Change, actor todo.Actor, reason string) ([]todo.ChangeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil, false
	}

	t := &s.state.Items[i]
	before := len(t.UpdateLog)
	for _, d := range todo.Apply(t, changes) {
		s.appendRecordLocked(t, d.Field, d.OldValue, d.NewValue, actor, reason)
	}
	records := append([]todo.ChangeRecord(nil), t.UpdateLog[before:]...)

	if t.IsCurrentlyActive {
		for j := range s.state.Items {
			if j != i {
				s.state.Items[j].IsCurrentlyActive = false
			}
		}
		if f := s.session.CurrentFocusID; f != nil && *f != id {
			start := s.now()
			s.session.CurrentFocusID = &id
			s.session.FocusStartTime = &start
		}
	}

	if len(records) > 0 {
		s.dropStaleSessionLocked()
		s.syncSelectionLocked()
		s.commitLocked(ctx, true)
	}
	return records, true
}

// ApplyReorganization replaces the list with an organized one. Tasks that
// already existed keep their change history, and every task whose order
// moved gets an order record attributed to actor. At most one task stays
// active, the focused one while a session runs. A cancelled ctx leaves the
// store untouched.
func (s *TaskStore) ApplyReorganization(ctx context.Context, tasks []todo.Task, actor todo.Actor, reason string) ([]todo.ChangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return nil, intent.ErrCancelled
	}

	prev := make(map[int64]*todo.Task, len(s.state.Items))
	for i := range s.state.Items {
		prev[s.state.Items[i].ID] = &s.state.Items[i]
	}

	next := todo.CloneAll(tasks)
	if next == nil {
		next = []todo.Task{}
	}
	// A running focus session keeps its task as the active one.
	pinned := int64(0)
	if f := s.session.CurrentFocusID; f != nil {
		for i := range next {
			if next[i].ID == *f && !next[i].Checked {
				pinned = *f
			}
		}
	}

	var records []todo.ChangeRecord
	active := false
	for i := range next {
		t := &next[i]
		if pinned != 0 {
			t.IsCurrentlyActive = t.ID == pinned
		} else if t.IsCurrentlyActive {
			t.IsCurrentlyActive = !active
			active = true
		}
		old, ok := prev[t.ID]
		if !ok {
			continue
		}
		t.UpdateLog = append([]todo.ChangeRecord(nil), old.UpdateLog...)
		if old.Order != t.Order {
			s.appendRecordLocked(t, todo.FieldOrder, strconv.Itoa(old.Order), strconv.Itoa(t.Order), actor, reason)
			records = append(records, t.UpdateLog[len(t.UpdateLog)-1])
		}
	}
	s.state.Items = next
	s.dropStaleSessionLocked()
	s.syncSelectionLocked()
	s.commitLocked(ctx, true)
	return records, nil
}

func (s *TaskStore) appendRecordLocked(t *todo.Task, field todo.Field, oldValue, newValue string, actor todo.Actor, reason string) {
	t.UpdateLog = append(t.UpdateLog, todo.ChangeRecord{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		UpdatedBy: actor,
		Context:   reason,
	})
}

// StartFocus makes id the only active task and starts the session clock.
func (s *TaskStore) StartFocus(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return false
	}
	for i := range s.state.Items {
		t := &s.state.Items[i]
		t.IsCurrentlyActive = t.ID == id
		if t.ID == id {
			t.ProgressStatus = todo.StatusInProgress
		}
	}
	start := s.now()
	focus := id
	s.session.CurrentFocusID = &focus
	s.session.FocusStartTime = &start
	s.syncSelectionLocked()
	s.commitLocked(ctx, true)
	return true
}

// EndFocus closes the running session: elapsed whole minutes are added to
// the task's focus time, attempts increments and the completion dialog
// opens. It reports false when no session is running.
func (s *TaskStore) EndFocus(ctx context.Context) (CompletionDialog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.CurrentFocusID == nil || s.session.FocusStartTime == nil {
		return CompletionDialog{}, false
	}
	id := *s.session.CurrentFocusID
	spent := int(math.Round(float64(s.now().Sub(*s.session.FocusStartTime).Milliseconds()) / 60000))
	if spent < 0 {
		spent = 0
	}

	if i := s.indexLocked(id); i >= 0 {
		t := &s.state.Items[i]
		t.FocusTimeSpent += spent
		t.Attempts++
		t.IsCurrentlyActive = false
	}

	s.session.CompletionDialog = CompletionDialog{IsOpen: true, TodoID: &id, TimeSpent: spent}
	s.session.CurrentFocusID = nil
	s.session.FocusStartTime = nil
	s.syncSelectionLocked()
	s.commitLocked(ctx, true)
	return s.session.CompletionDialog, true
}

// ResolveCompletion answers the completion dialog. Notes are appended to
// the task description. When the task was completed, the next unchecked
// task after it is returned as a suggestion.
func (s *TaskStore) ResolveCompletion(ctx context.Context, completed bool, notes string) (*todo.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dlg := s.session.CompletionDialog
	s.session.CompletionDialog = CompletionDialog{}
	if !dlg.IsOpen || dlg.TodoID == nil {
		s.commitLocked(ctx, false)
		return nil, fmt.Errorf("completion dialog not open: %w", domain.ErrConflict)
	}

	i := s.indexLocked(*dlg.TodoID)
	if i < 0 {
		s.commitLocked(ctx, false)
		return nil, nil
	}
	t := &s.state.Items[i]
	s.completeLocked(t, completed)
	s.dropStaleSessionLocked()
	if notes != "" {
		desc := fmt.Sprintf("%s\n\nNotes: %s", t.Description, notes)
		for _, d := range todo.Apply(t, []todo.Change{todo.SetDescription{Value: desc}}) {
			s.appendRecordLocked(t, d.Field, d.OldValue, d.NewValue, todo.ActorHuman, "Added completion notes")
		}
	}

	var next *todo.Task
	if completed {
		for j := i + 1; j < len(s.state.Items); j++ {
			if !s.state.Items[j].Checked {
				n := s.state.Items[j].Clone()
				next = &n
				break
			}
		}
	}
	s.syncSelectionLocked()
	s.commitLocked(ctx, true)
	return next, nil
}

// ResetDay clears tasks, the current plan and the onboarding flag so the
// onboarding flow runs again.
func (s *TaskStore) ResetDay(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetDayLocked()
	s.commitLocked(ctx, true)
}

func (s *TaskStore) resetDayLocked() {
	s.state.Items = []todo.Task{}
	s.state.CurrentPlan = nil
	s.state.HasCompletedOnboarding = false
	s.state.LastOnboardingDate = ""
	s.session = Session{}
}

// StartNewDay archives the current plan, including task progress, into
// history and then resets the day.
func (s *TaskStore) StartNewDay(ctx context.Context) error {
	s.mu.Lock()
	archived := s.state.CurrentPlan.Clone()
	if archived != nil {
		archived.Todos = todo.CloneAll(s.state.Items)
	}
	s.mu.Unlock()

	if archived != nil {
		if err := s.SaveDailyPlan(ctx, archived); err != nil {
			return fmt.Errorf("archive plan: %w", err)
		}
	}
	s.ResetDay(ctx)
	return nil
}

// SkipOnboarding lets the user enter tasks manually today.
func (s *TaskStore) SkipOnboarding(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.HasCompletedOnboarding = true
	s.state.LastOnboardingDate = s.todayLocked()
	s.commitLocked(ctx, true)
}

// CompleteOnboarding installs p as the current plan with its tasks and
// records it in history.
func (s *TaskStore) CompleteOnboarding(ctx context.Context, p *plan.DailyPlan) error {
	if p == nil {
		return fmt.Errorf("%w: plan is required", domain.ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Clone()
	todo.Renumber(p.Todos)

	s.mu.Lock()
	s.state.CurrentPlan = p.Clone()
	s.state.Items = todo.CloneAll(p.Todos)
	if s.state.Items == nil {
		s.state.Items = []todo.Task{}
	}
	s.state.HasCompletedOnboarding = true
	s.state.LastOnboardingDate = s.todayLocked()
	s.session = Session{}
	s.commitLocked(ctx, true)
	s.mu.Unlock()

	return s.SaveDailyPlan(ctx, p)
}

// NeedsOnboarding reports whether the onboarding flow must run before
// task entry.
func (s *TaskStore) NeedsOnboarding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.state.HasCompletedOnboarding
}

// EnsureDay drops the onboarding flag once the calendar day has moved on
// since onboarding last ran. It reports whether anything changed.
func (s *TaskStore) EnsureDay(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ensureDayLocked() {
		return false
	}
	s.commitLocked(ctx, true)
	return true
}

func (s *TaskStore) ensureDayLocked() bool {
	today := s.todayLocked()
	if s.state.HasCompletedOnboarding && s.state.LastOnboardingDate != today {
		s.state.HasCompletedOnboarding = false
		return true
	}
	return false
}

// todayLocked is the calendar date in the store's location.
func (s *TaskStore) todayLocked() string {
	return s.now().In(s.loc).Format(plan.DateLayout)
}

// Location returns the time zone used for calendar dates.
func (s *TaskStore) Location() *time.Location {
	return s.loc
}

// SaveDailyPlan stores p in history under its calendar date, replacing any
// plan saved for the same date.
func (s *TaskStore) SaveDailyPlan(ctx context.Context, p *plan.DailyPlan) error {
	if s.persister == nil {
		return errors.New("no persister configured")
	}
	if err := s.persister.SavePlan(ctx, p); err != nil {
		return fmt.Errorf("save plan %s: %w", p.DateKey(), err)
	}
	return nil
}

// ListDailyPlans returns historical plans, newest first.
func (s *TaskStore) ListDailyPlans(ctx context.Context) ([]plan.DailyPlan, error) {
	if s.persister == nil {
		return []plan.DailyPlan{}, nil
	}
	plans, err := s.persister.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].Date.After(plans[j].Date) })
	return plans, nil
}

// SetAppSettings merges a partial settings update.
func (s *TaskStore) SetAppSettings(ctx context.Context, p settings.Patch) (settings.AppSettings, error) {
	if err := p.Validate(); err != nil {
		return settings.AppSettings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Apply(&s.state.AppSettings)
	s.commitLocked(ctx, true)
	return s.state.AppSettings.Redacted(), nil
}

// SetAISettings replaces the sampling parameters.
func (s *TaskStore) SetAISettings(ctx context.Context, a settings.AISettings) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AISettings = a
	s.commitLocked(ctx, true)
	return nil
}

// SetAvailableModels caches the local model list into settings.
func (s *TaskStore) SetAvailableModels(ctx context.Context, models []settings.LocalModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AppSettings.AvailableModels = append([]settings.LocalModel{}, models...)
	s.commitLocked(ctx, true)
}

// OpenDetailPanel selects id and opens its detail panel.
func (s *TaskStore) OpenDetailPanel(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	t := s.state.Items[i].Clone()
	s.session.SelectedTodo = &t
	s.session.DetailPanelOpen = true
	s.commitLocked(ctx, false)
	return true
}

// CloseDetailPanel clears the selection.
func (s *TaskStore) CloseDetailPanel(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.SelectedTodo = nil
	s.session.DetailPanelOpen = false
	s.commitLocked(ctx, false)
}

// SetShowSettings toggles the settings panel.
func (s *TaskStore) SetShowSettings(ctx context.Context, show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.ShowSettings = show
	s.commitLocked(ctx, false)
}

// SetOrganizing flags an organize request in flight.
func (s *TaskStore) SetOrganizing(ctx context.Context, organizing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.IsOrganizing = organizing
	s.commitLocked(ctx, false)
}

func (s *TaskStore) indexLocked(id int64) int {
	for i := range s.state.Items {
		if s.state.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// dropStaleSessionLocked ends a focus session whose task is gone, checked
// or no longer active, and clears a selection whose task is gone.
func (s *TaskStore) dropStaleSessionLocked() {
	if f := s.session.CurrentFocusID; f != nil {
		i := s.indexLocked(*f)
		if i < 0 || s.state.Items[i].Checked || !s.state.Items[i].IsCurrentlyActive {
			s.session.CurrentFocusID = nil
			s.session.FocusStartTime = nil
		}
	}
	if s.session.SelectedTodo != nil && s.indexLocked(s.session.SelectedTodo.ID) < 0 {
		s.session.SelectedTodo = nil
		s.session.DetailPanelOpen = false
	}
}

// syncSelectionLocked keeps the selected-task mirror equal to the task it
// points at.
func (s *TaskStore) syncSelectionLocked() {
	if s.session.SelectedTodo == nil {
		return
	}
	if i := s.indexLocked(s.session.SelectedTodo.ID); i >= 0 {
		t := s.state.Items[i].Clone()
		s.session.SelectedTodo = &t
	}
}

// commitLocked persists (when the persisted subset changed) and broadcasts
// the new snapshot. Persistence failures are logged and never undo the
// mutation. The write is detached from ctx cancellation so a committed
// change is not lost when the caller goes away.
func (s *TaskStore) commitLocked(ctx context.Context, persist bool) {
	if persist && s.persister != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		err := s.persister.SaveState(wctx, s.state.clone())
		cancel()
		if err != nil {
			slog.ErrorContext(ctx, "persist state failed", "error", err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(ctx, broadcast.EventSnapshot, s.snapshotLocked())
	}
}
