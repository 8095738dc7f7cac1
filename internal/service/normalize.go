package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// timeLayouts are the timestamp forms accepted from a provider.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	plan.DateLayout,
}

func parseProviderTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// normalizeTasks turns provider tasks into domain tasks. Missing optional
// fields get their defaults, order follows array position, and ids that are
// missing, fractional or repeated are replaced by fresh ones. At most one
// task stays active.
func normalizeTasks(raw []intent.RawTask, now time.Time, nextID func() int64) ([]todo.Task, error) {
	out := make([]todo.Task, 0, len(raw))
	seen := make(map[int64]bool, len(raw))
	active := false

	for i := range raw {
		r := &raw[i]

		id := int64(0)
		if r.ID != nil && *r.ID > 0 && *r.ID == math.Trunc(*r.ID) && *r.ID <= math.MaxInt64/2 {
			id = int64(*r.ID)
		}
		if id == 0 || seen[id] {
			id = nextID()
			for seen[id] {
				id = nextID()
			}
		}
		seen[id] = true

		t := todo.Task{
			ID:                id,
			Text:              strings.TrimSpace(r.Text),
			Description:       r.Description,
			Checked:           deref(r.Checked, false),
			Priority:          r.Priority,
			Complexity:        r.Complexity,
			EstimatedMinutes:  max(1, int(math.Round(r.EstimatedMinutes))),
			CreatedAt:         now,
			Order:             i + 1,
			FocusTimeSpent:    int(math.Round(deref(r.FocusTimeSpent, 0))),
			Attempts:          int(math.Round(deref(r.Attempts, 0))),
			IsCurrentlyActive: deref(r.IsCurrentlyActive, false),
			ProgressStatus:    deref(r.ProgressStatus, todo.StatusNotStarted),
			UpdateLog:         []todo.ChangeRecord{},
		}
		if len(r.Tags) > 0 {
			t.Tags = append([]string(nil), r.Tags...)
		}
		if r.CreatedAt != "" {
			created, err := parseProviderTime(r.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("task[%d] createdAt: %w", i, err)
			}
			t.CreatedAt = created
		}
		if r.Deadline != "" {
			d, err := parseProviderTime(r.Deadline)
			if err != nil {
				return nil, fmt.Errorf("task[%d] deadline: %w", i, err)
			}
			t.Deadline = &d
		}
		if r.CompletedAt != "" {
			c, err := parseProviderTime(r.CompletedAt)
			if err != nil {
				return nil, fmt.Errorf("task[%d] completedAt: %w", i, err)
			}
			t.CompletedAt = &c
		}
		if t.IsCurrentlyActive {
			if active {
				t.IsCurrentlyActive = false
			}
			active = true
		}
		out = append(out, t)
	}
	return out, nil
}

// normalizeQuestions defaults answered and followUp to false and gives
// every question a unique id.
func normalizeQuestions(raw []intent.RawQuestion) []plan.Question {
	out := make([]plan.Question, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" || seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true
		out = append(out, plan.Question{
			ID:       id,
			Question: strings.TrimSpace(r.Question),
			Context:  r.Context,
			Answered: deref(r.Answered, false),
			FollowUp: deref(r.FollowUp, false),
		})
	}
	return out
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
