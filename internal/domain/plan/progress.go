package plan

import (
	"math"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// BadgeStatus classifies how a focus session is tracking against its estimate.
type BadgeStatus string

const (
	BadgeDanger  BadgeStatus = "danger"
	BadgeWarning BadgeStatus = "warning"
	BadgeSuccess BadgeStatus = "success"
	BadgeInfo    BadgeStatus = "info"
)

// Badge is the progress indicator shown for the active task.
type Badge struct {
	Status        BadgeStatus `json:"status"`
	TimeRemaining int         `json:"timeRemaining"`
	Percentage    float64     `json:"percentage"`
}

// Progress returns the badge for t, or nil when t is not the active task.
func Progress(t *todo.Task) *Badge {
	if !t.IsCurrentlyActive || t.EstimatedMinutes <= 0 {
		return nil
	}
	spent := float64(t.FocusTimeSpent)
	est := float64(t.EstimatedMinutes)
	b := &Badge{
		TimeRemaining: max(t.EstimatedMinutes-t.FocusTimeSpent, 0),
		Percentage:    math.Min(spent/est*100, 100),
	}
	switch {
	case spent > est*1.5:
		b.Status = BadgeDanger
	case spent > est*1.1:
		b.Status = BadgeWarning
	case b.Percentage > 80:
		b.Status = BadgeSuccess
	default:
		b.Status = BadgeInfo
	}
	return b
}
