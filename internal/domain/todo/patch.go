package todo

import (
	"fmt"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
)

// Patch is the wire form of a partial task update. A nil field means
// "leave unchanged". ClearDeadline removes an existing deadline.
type Patch struct {
	Text              *string         `json:"text,omitempty"`
	Description       *string         `json:"description,omitempty"`
	Checked           *bool           `json:"checked,omitempty"`
	Priority          *Priority       `json:"priority,omitempty"`
	Complexity        *Complexity     `json:"complexity,omitempty"`
	EstimatedMinutes  *int            `json:"estimatedMinutes,omitempty"`
	Deadline          *time.Time      `json:"deadline,omitempty"`
	ClearDeadline     bool            `json:"clearDeadline,omitempty"`
	Tags              *[]string       `json:"tags,omitempty"`
	Order             *int            `json:"order,omitempty"`
	FocusTimeSpent    *int            `json:"focusTimeSpent,omitempty"`
	Attempts          *int            `json:"attempts,omitempty"`
	IsCurrentlyActive *bool           `json:"isCurrentlyActive,omitempty"`
	ProgressStatus    *ProgressStatus `json:"progressStatus,omitempty"`
}

// Validate rejects values that would break task invariants.
func (p *Patch) Validate() error {
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, *p.Priority)
	}
	if p.Complexity != nil && !p.Complexity.Valid() {
		return fmt.Errorf("%w: invalid complexity %q", domain.ErrValidation, *p.Complexity)
	}
	if p.ProgressStatus != nil && !p.ProgressStatus.Valid() {
		return fmt.Errorf("%w: invalid progress status %q", domain.ErrValidation, *p.ProgressStatus)
	}
	if p.EstimatedMinutes != nil && *p.EstimatedMinutes <= 0 {
		return fmt.Errorf("%w: estimatedMinutes must be > 0", domain.ErrValidation)
	}
	if p.Order != nil && *p.Order < 1 {
		return fmt.Errorf("%w: order must be >= 1", domain.ErrValidation)
	}
	if p.FocusTimeSpent != nil && *p.FocusTimeSpent < 0 {
		return fmt.Errorf("%w: focusTimeSpent must be >= 0", domain.ErrValidation)
	}
	if p.Attempts != nil && *p.Attempts < 0 {
		return fmt.Errorf("%w: attempts must be >= 0", domain.ErrValidation)
	}
	if p.Deadline != nil && p.ClearDeadline {
		return fmt.Errorf("%w: deadline and clearDeadline are mutually exclusive", domain.ErrValidation)
	}
	return nil
}

// Changes converts the patch into the ordered list of field changes it carries.
func (p *Patch) Changes() []Change {
	var cs []Change
	if p.Text != nil {
		cs = append(cs, SetText{*p.Text})
	}
	if p.Description != nil {
		cs = append(cs, SetDescription{*p.Description})
	}
	if p.Checked != nil {
		cs = append(cs, SetChecked{*p.Checked})
	}
	if p.Priority != nil {
		cs = append(cs, SetPriority{*p.Priority})
	}
	if p.Complexity != nil {
		cs = append(cs, SetComplexity{*p.Complexity})
	}
	if p.EstimatedMinutes != nil {
		cs = append(cs, SetEstimatedMinutes{*p.EstimatedMinutes})
	}
	switch {
	case p.Deadline != nil:
		d := p.Deadline.UTC()
		cs = append(cs, SetDeadline{&d})
	case p.ClearDeadline:
		cs = append(cs, SetDeadline{nil})
	}
	if p.Tags != nil {
		cs = append(cs, SetTags{*p.Tags})
	}
	if p.Order != nil {
		cs = append(cs, SetOrder{*p.Order})
	}
	if p.FocusTimeSpent != nil {
		cs = append(cs, SetFocusTimeSpent{*p.FocusTimeSpent})
	}
	if p.Attempts != nil {
		cs = append(cs, SetAttempts{*p.Attempts})
	}
	if p.IsCurrentlyActive != nil {
		cs = append(cs, SetIsCurrentlyActive{*p.IsCurrentlyActive})
	}
	if p.ProgressStatus != nil {
		cs = append(cs, SetProgressStatus{*p.ProgressStatus})
	}
	return cs
}
