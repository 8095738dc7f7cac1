package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

func newTestStore(clock *fakeClock, opts ...service.StoreOption) *service.TaskStore {
	base := []service.StoreOption{service.WithClock(clock.Now), service.WithIDGenerator(sequentialIDs())}
	return service.NewTaskStore(append(base, opts...)...)
}

func TestAddCompleteDelete(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(clock)

	a := s.AddTask(ctx)
	b := s.AddTask(ctx)
	if a.Text != "New Task 1" || b.Text != "New Task 2" {
		t.Fatalf("unexpected default texts: %q, %q", a.Text, b.Text)
	}
	if a.Order != 1 || b.Order != 2 {
		t.Fatalf("unexpected orders: %d, %d", a.Order, b.Order)
	}
	if a.Priority != todo.PriorityMedium || a.EstimatedMinutes != 30 || a.ProgressStatus != todo.StatusNotStarted {
		t.Fatalf("unexpected defaults: %+v", a)
	}

	if !s.CompleteTask(ctx, a.ID, true) {
		t.Fatal("CompleteTask reported missing task")
	}
	got, _ := s.Task(a.ID)
	if !got.Checked || got.CompletedAt == nil || got.ProgressStatus != todo.StatusCompleted {
		t.Fatalf("task not completed: %+v", got)
	}
	if len(got.UpdateLog) != 1 {
		t.Fatalf("expected 1 change record, got %d", len(got.UpdateLog))
	}
	rec := got.UpdateLog[0]
	if rec.Field != todo.FieldStatus || rec.OldValue != "pending" || rec.NewValue != "completed" || rec.UpdatedBy != todo.ActorHuman {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Context != "Task marked as completed" {
		t.Fatalf("unexpected context: %q", rec.Context)
	}

	// Completing again does not flip anything.
	s.CompleteTask(ctx, a.ID, true)
	got, _ = s.Task(a.ID)
	if len(got.UpdateLog) != 1 {
		t.Fatalf("expected no new record, got %d", len(got.UpdateLog))
	}

	if !s.DeleteTask(ctx, a.ID) {
		t.Fatal("DeleteTask reported missing task")
	}
	if s.DeleteTask(ctx, a.ID) {
		t.Fatal("second delete should report false")
	}
	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].Order != 2 {
		t.Fatalf("delete should leave the gap: %+v", tasks)
	}
	s.Reorder(ctx)
	if tasks = s.Tasks(); tasks[0].Order != 1 || !todo.IsDense(tasks) {
		t.Fatalf("reorder should compact: %+v", tasks)
	}
}

func TestUncompleteMarksNeedsClarification(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeClock())
	a := s.AddTask(ctx)
	s.CompleteTask(ctx, a.ID, true)
	s.CompleteTask(ctx, a.ID, false)

	got, _ := s.Task(a.ID)
	if got.Checked || got.CompletedAt != nil || got.ProgressStatus != todo.StatusNeedsClarification {
		t.Fatalf("unexpected task: %+v", got)
	}
	last := got.UpdateLog[len(got.UpdateLog)-1]
	if last.OldValue != "completed" || last.NewValue != "pending" || last.Context != "Task marked as incomplete" {
		t.Fatalf("unexpected record: %+v", last)
	}
}

func TestUpdateTaskRecordsOnlyChangedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeClock())
	a := s.AddTask(ctx)

	records, ok := s.UpdateTask(ctx, a.ID, []todo.Change{
		todo.SetText{Value: "Write report"},
		todo.SetPriority{Value: todo.PriorityMedium}, // unchanged
		todo.SetEstimatedMinutes{Value: 45},
	}, todo.ActorHuman, "edited in detail panel")
	if !ok {
		t.Fatal("UpdateTask reported missing task")
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].Field != todo.FieldText || records[0].OldValue != "New Task 1" || records[0].NewValue != "Write report" {
		t.Fatalf("unexpected text record: %+v", records[0])
	}
	if records[1].Field != todo.FieldEstimatedMinutes || records[1].OldValue != "30" || records[1].NewValue != "45" {
		t.Fatalf("unexpected estimate record: %+v", records[1])
	}
	for _, r := range records {
		if r.ID == "" || r.UpdatedBy != todo.ActorHuman || r.Context != "edited in detail panel" {
			t.Fatalf("unexpected record metadata: %+v", r)
		}
	}

	if _, ok := s.UpdateTask(ctx, 999, nil, todo.ActorHuman, ""); ok {
		t.Fatal("expected missing task")
	}
}

func TestAtMostOneActiveTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeClock())
	a := s.AddTask(ctx)
	b := s.AddTask(ctx)

	s.StartFocus(ctx, a.ID)
	s.UpdateTask(ctx, b.ID, []todo.Change{todo.SetIsCurrentlyActive{Value: true}}, todo.ActorHuman, "")

	active := 0
	for _, task := range s.Tasks() {
		if task.IsCurrentlyActive {
			active++
			if task.ID != b.ID {
				t.Fatalf("wrong active task %d", task.ID)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active task, got %d", active)
	}
}

func TestFocusSessionAndCompletionNotes(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(clock)
	a := s.AddTask(ctx)
	b := s.AddTask(ctx)

	if _, ok := s.EndFocus(ctx); ok {
		t.Fatal("EndFocus without a session should report false")
	}
	s.StartFocus(ctx, a.ID)
	if snap := s.Snapshot(); snap.CurrentFocusID == nil || *snap.CurrentFocusID != a.ID {
		t.Fatalf("focus not started: %+v", snap.Session)
	}
	clock.Advance(25*time.Minute + 20*time.Second)

	dlg, ok := s.EndFocus(ctx)
	if !ok || !dlg.IsOpen || dlg.TimeSpent != 25 || dlg.TodoID == nil || *dlg.TodoID != a.ID {
		t.Fatalf("unexpected dialog: %+v", dlg)
	}
	got, _ := s.Task(a.ID)
	if got.FocusTimeSpent != 25 || got.Attempts != 1 || got.IsCurrentlyActive {
		t.Fatalf("unexpected task after focus: %+v", got)
	}

	next, err := s.ResolveCompletion(ctx, true, "went well")
	if err != nil {
		t.Fatalf("ResolveCompletion: %v", err)
	}
	if next == nil || next.ID != b.ID {
		t.Fatalf("expected next task %d, got %+v", b.ID, next)
	}
	got, _ = s.Task(a.ID)
	if !strings.HasSuffix(got.Description, "\n\nNotes: went well") {
		t.Fatalf("notes not appended: %q", got.Description)
	}
	last := got.UpdateLog[len(got.UpdateLog)-1]
	if last.Field != todo.FieldDescription || last.Context != "Added completion notes" {
		t.Fatalf("unexpected notes record: %+v", last)
	}
	if snap := s.Snapshot(); snap.CompletionDialog.IsOpen {
		t.Fatal("dialog should be closed")
	}

	if _, err := s.ResolveCompletion(ctx, true, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrNotFound without an open dialog, got %v", err)
	}
}

func TestPersistenceRoundTripSealsKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := newFakeClock()

	s1 := newTestStore(clock, service.WithPersister(newFilePersister(t, dir, "passphrase")))
	a := s1.AddTask(ctx)
	s1.UpdateTask(ctx, a.ID, []todo.Change{todo.SetText{Value: "Review PR"}}, todo.ActorHuman, "")
	s1.AddTask(ctx)
	s1.SkipOnboarding(ctx)
	key := "sk-test-123"
	if _, err := s1.SetAppSettings(ctx, settings.Patch{OpenAIAPIKey: &key}); err != nil {
		t.Fatalf("SetAppSettings: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, service.KeyState+".json"))
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	if strings.Contains(string(raw), key) {
		t.Fatal("api key stored in plain text")
	}

	s2 := newTestStore(clock, service.WithPersister(newFilePersister(t, dir, "passphrase")))
	if err := s2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want, _ := json.Marshal(s1.Tasks())
	got, _ := json.Marshal(s2.Tasks())
	if string(want) != string(got) {
		t.Fatalf("tasks differ after reload:\nwant %s\ngot  %s", want, got)
	}
	if s2.AppSettings().OpenAIAPIKey != key {
		t.Fatal("api key not restored")
	}
	if s2.NeedsOnboarding() {
		t.Fatal("onboarding flag not restored")
	}

	// A different sealing key drops the stored key instead of failing.
	s3 := newTestStore(clock, service.WithPersister(newFilePersister(t, dir, "other")))
	if err := s3.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s3.AppSettings().OpenAIAPIKey != "" {
		t.Fatal("expected key to be dropped")
	}
}

func TestNewDayRequiresOnboarding(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(clock)

	if !s.NeedsOnboarding() {
		t.Fatal("fresh store should need onboarding")
	}
	s.SkipOnboarding(ctx)
	if s.NeedsOnboarding() || s.EnsureDay(ctx) {
		t.Fatal("same day should not need onboarding")
	}
	clock.Advance(24 * time.Hour)
	if !s.EnsureDay(ctx) || !s.NeedsOnboarding() {
		t.Fatal("next day should need onboarding")
	}
}

func TestCompleteOnboardingAndStartNewDay(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(clock, service.WithPersister(newFilePersister(t, t.TempDir(), "")))

	t1 := todo.New(10, "Draft slides", clock.Now())
	t1.Order = 5
	t2 := todo.New(11, "Email team", clock.Now())
	t2.Order = 9
	p := &plan.DailyPlan{ID: "p1", Date: clock.Now(), AvailableHours: 6, Todos: []todo.Task{t1, t2}, IsFinalized: true}

	if err := s.CompleteOnboarding(ctx, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for nil plan, got %v", err)
	}
	if err := s.CompleteOnboarding(ctx, p); err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
	tasks := s.Tasks()
	if len(tasks) != 2 || tasks[0].Order != 1 || tasks[1].Order != 2 {
		t.Fatalf("tasks not renumbered: %+v", tasks)
	}
	if s.NeedsOnboarding() || s.CurrentPlan() == nil {
		t.Fatal("onboarding not completed")
	}

	s.CompleteTask(ctx, 10, true)
	if err := s.StartNewDay(ctx); err != nil {
		t.Fatalf("StartNewDay: %v", err)
	}
	if len(s.Tasks()) != 0 || s.CurrentPlan() != nil || !s.NeedsOnboarding() {
		t.Fatal("day not reset")
	}
	plans, err := s.ListDailyPlans(ctx)
	if err != nil {
		t.Fatalf("ListDailyPlans: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("same date should replace, got %d plans", len(plans))
	}
	if stats := plan.Summarize(&plans[0]); stats.CompletedTasks != 1 || stats.TotalTasks != 2 {
		t.Fatalf("archived plan lost progress: %+v", stats)
	}
}

func TestApplyReorganization(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeClock())
	a := s.AddTask(ctx)
	b := s.AddTask(ctx)
	s.CompleteTask(ctx, a.ID, true)

	organized := s.Tasks()
	organized[0], organized[1] = organized[1], organized[0]
	todo.Renumber(organized)
	for i := range organized {
		organized[i].UpdateLog = nil
	}

	records, err := s.ApplyReorganization(ctx, organized, todo.ActorAI, "AI reorganization")
	if err != nil {
		t.Fatalf("ApplyReorganization: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 order records, got %d", len(records))
	}
	for _, r := range records {
		if r.Field != todo.FieldOrder || r.UpdatedBy != todo.ActorAI || r.Context != "AI reorganization" {
			t.Fatalf("unexpected record: %+v", r)
		}
	}
	got, _ := s.Task(a.ID)
	if got.Order != 2 || len(got.UpdateLog) != 2 {
		t.Fatalf("history not carried over: %+v", got)
	}
	if got, _ := s.Task(b.ID); got.Order != 1 {
		t.Fatalf("unexpected order for b: %d", got.Order)
	}
}

func TestApplyReorganizationCancelledLeavesStore(t *testing.T) {
	s := newTestStore(newFakeClock())
	s.AddTask(context.Background())
	before, _ := json.Marshal(s.Snapshot())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ApplyReorganization(ctx, nil, todo.ActorAI, ""); !errors.Is(err, intent.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	after, _ := json.Marshal(s.Snapshot())
	if string(before) != string(after) {
		t.Fatal("cancelled reorganization changed the store")
	}
}

func TestMutationsBroadcastSnapshots(t *testing.T) {
	ctx := context.Background()
	b := &recordingBroadcaster{}
	s := newTestStore(newFakeClock(), service.WithBroadcaster(b))
	a := s.AddTask(ctx)
	s.OpenDetailPanel(ctx, a.ID)
	s.CloseDetailPanel(ctx)
	if b.count() != 3 {
		t.Fatalf("expected 3 broadcasts, got %d", b.count())
	}
}

func TestSettingsValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeClock())

	bad := settings.Theme("neon")
	if _, err := s.SetAppSettings(ctx, settings.Patch{Theme: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	key := "sk-secret"
	red, err := s.SetAppSettings(ctx, settings.Patch{OpenAIAPIKey: &key})
	if err != nil {
		t.Fatalf("SetAppSettings: %v", err)
	}
	if red.OpenAIAPIKey == key {
		t.Fatal("returned settings should be redacted")
	}
	if err := s.SetAISettings(ctx, settings.AISettings{TopP: 2, Temperature: 0.5, MaxTokens: 10}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompleteMissingTaskLeavesListUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeClock())
	s.AddTask(ctx)
	s.AddTask(ctx)
	s.CompleteTask(ctx, 1, true)
	before := s.Tasks()

	if s.CompleteTask(ctx, 5, true) {
		t.Fatal("CompleteTask reported success for a missing id")
	}
	after := s.Tasks()
	if len(after) != len(before) {
		t.Fatalf("expected %d tasks, got %d", len(before), len(after))
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("task list changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSetTasksKeepsFirstActive(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(clock)

	tasks := []todo.Task{
		todo.New(1, "a", clock.Now()),
		todo.New(2, "b", clock.Now()),
		todo.New(3, "c", clock.Now()),
	}
	tasks[1].IsCurrentlyActive = true
	tasks[2].IsCurrentlyActive = true
	if err := s.SetTasks(ctx, tasks); err != nil {
		t.Fatalf("SetTasks: %v", err)
	}

	got := s.Tasks()
	want := []bool{false, true, false}
	for i := range got {
		if got[i].IsCurrentlyActive != want[i] {
			t.Fatalf("task %d: active = %v, want %v", got[i].ID, got[i].IsCurrentlyActive, want[i])
		}
	}
	if !tasks[2].IsCurrentlyActive {
		t.Fatal("caller's slice was modified")
	}
}

func TestSetTasksRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(clock)
	s.AddTask(ctx)
	before := s.Tasks()

	dup := []todo.Task{todo.New(7, "a", clock.Now()), todo.New(7, "b", clock.Now())}
	err := s.SetTasks(ctx, dup)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Tasks()) {
		t.Fatal("rejected SetTasks changed the list")
	}
}

func TestSetTasksEndsFocusOnRemovedTask(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(clock)
	a := s.AddTask(ctx)
	b := s.AddTask(ctx)
	s.StartFocus(ctx, a.ID)

	if err := s.SetTasks(ctx, []todo.Task{b}); err != nil {
		t.Fatalf("SetTasks: %v", err)
	}
	if snap := s.Snapshot(); snap.CurrentFocusID != nil || snap.FocusStartTime != nil {
		t.Fatalf("focus session survived removal: %+v", snap.Session)
	}
}

func TestFocusFollowsActiveTask(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(ctx context.Context, s *service.TaskStore, a, b todo.Task)
		wantFocus int64
	}{
		{
			name: "activating another task moves the session",
			mutate: func(ctx context.Context, s *service.TaskStore, _, b todo.Task) {
				s.UpdateTask(ctx, b.ID, []todo.Change{todo.SetIsCurrentlyActive{Value: true}}, todo.ActorHuman, "")
			},
			wantFocus: 2,
		},
		{
			name: "completing the focused task ends the session",
			mutate: func(ctx context.Context, s *service.TaskStore, a, _ todo.Task) {
				s.CompleteTask(ctx, a.ID, true)
			},
		},
		{
			name: "deactivating the focused task ends the session",
			mutate: func(ctx context.Context, s *service.TaskStore, a, _ todo.Task) {
				s.UpdateTask(ctx, a.ID, []todo.Change{todo.SetIsCurrentlyActive{Value: false}}, todo.ActorHuman, "")
			},
		},
		{
			name: "completing another task keeps the session",
			mutate: func(ctx context.Context, s *service.TaskStore, _, b todo.Task) {
				s.CompleteTask(ctx, b.ID, true)
			},
			wantFocus: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			s := newTestStore(clock)
			a := s.AddTask(ctx)
			b := s.AddTask(ctx)
			s.StartFocus(ctx, a.ID)
			clock.Advance(10 * time.Minute)

			tt.mutate(ctx, s, a, b)
			clock.Advance(5 * time.Minute)

			snap := s.Snapshot()
			if tt.wantFocus == 0 {
				if snap.CurrentFocusID != nil {
					t.Fatalf("expected no focus session, got %d", *snap.CurrentFocusID)
				}
				if _, ok := s.EndFocus(ctx); ok {
					t.Fatal("EndFocus should report no running session")
				}
				return
			}
			if snap.CurrentFocusID == nil || *snap.CurrentFocusID != tt.wantFocus {
				t.Fatalf("expected focus on %d, got %+v", tt.wantFocus, snap.CurrentFocusID)
			}
			dlg, ok := s.EndFocus(ctx)
			if !ok || dlg.TodoID == nil || *dlg.TodoID != tt.wantFocus {
				t.Fatalf("unexpected dialog: %+v", dlg)
			}
			want := 15
			if tt.wantFocus == b.ID {
				want = 5
			}
			if dlg.TimeSpent != want {
				t.Fatalf("expected %d minutes, got %d", want, dlg.TimeSpent)
			}
		})
	}
}

func TestReorganizationKeepsFocusedTaskActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeClock())
	a := s.AddTask(ctx)
	b := s.AddTask(ctx)
	s.StartFocus(ctx, a.ID)

	a.IsCurrentlyActive = false
	b.IsCurrentlyActive = true
	if _, err := s.ApplyReorganization(ctx, []todo.Task{b, a}, todo.ActorAI, "reorganized"); err != nil {
		t.Fatalf("ApplyReorganization: %v", err)
	}
	got, _ := s.Task(a.ID)
	other, _ := s.Task(b.ID)
	if !got.IsCurrentlyActive || other.IsCurrentlyActive {
		t.Fatalf("focused task lost its flag: a=%v b=%v", got.IsCurrentlyActive, other.IsCurrentlyActive)
	}
	if snap := s.Snapshot(); snap.CurrentFocusID == nil || *snap.CurrentFocusID != a.ID {
		t.Fatalf("focus session dropped: %+v", snap.Session)
	}
}

func TestCalendarDayFollowsLocation(t *testing.T) {
	ctx := context.Background()
	// 23:30 UTC on March 9 is already March 10 at UTC+2.
	clock := &fakeClock{t: time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)}
	s := newTestStore(clock, service.WithLocation(time.FixedZone("UTC+2", 2*60*60)))

	s.SkipOnboarding(ctx)
	if got := s.Snapshot().LastOnboardingDate; got != "2026-03-10" {
		t.Fatalf("expected local date 2026-03-10, got %s", got)
	}
	clock.Advance(time.Hour)
	if s.EnsureDay(ctx) {
		t.Fatal("UTC midnight must not roll the local day")
	}
	clock.Advance(22 * time.Hour)
	if !s.EnsureDay(ctx) || !s.NeedsOnboarding() {
		t.Fatal("local midnight should require onboarding")
	}
}
