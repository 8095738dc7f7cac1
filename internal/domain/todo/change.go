package todo

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Field names a tracked, mutable task attribute.
type Field string

const (
	FieldText              Field = "text"
	FieldDescription       Field = "description"
	FieldChecked           Field = "checked"
	FieldStatus            Field = "status"
	FieldPriority          Field = "priority"
	FieldComplexity        Field = "complexity"
	FieldEstimatedMinutes  Field = "estimatedMinutes"
	FieldDeadline          Field = "deadline"
	FieldCompletedAt       Field = "completedAt"
	FieldTags              Field = "tags"
	FieldOrder             Field = "order"
	FieldFocusTimeSpent    Field = "focusTimeSpent"
	FieldAttempts          Field = "attempts"
	FieldIsCurrentlyActive Field = "isCurrentlyActive"
	FieldProgressStatus    Field = "progressStatus"
)

// Change is one field assignment. The set of implementations is closed:
// only the Set* types in this package satisfy it.
type Change interface {
	Field() Field
	// apply writes the value into t and reports the stringified old and new
	// values and whether anything changed.
	apply(t *Task) (oldValue, newValue string, changed bool)
}

type (
	SetText              struct{ Value string }
	SetDescription       struct{ Value string }
	SetChecked           struct{ Value bool }
	SetPriority          struct{ Value Priority }
	SetComplexity        struct{ Value Complexity }
	SetEstimatedMinutes  struct{ Value int }
	SetDeadline          struct{ Value *time.Time }
	SetCompletedAt       struct{ Value *time.Time }
	SetTags              struct{ Value []string }
	SetOrder             struct{ Value int }
	SetFocusTimeSpent    struct{ Value int }
	SetAttempts          struct{ Value int }
	SetIsCurrentlyActive struct{ Value bool }
	SetProgressStatus    struct{ Value ProgressStatus }
)

func (SetText) Field() Field              { return FieldText }
func (SetDescription) Field() Field       { return FieldDescription }
func (SetChecked) Field() Field           { return FieldChecked }
func (SetPriority) Field() Field          { return FieldPriority }
func (SetComplexity) Field() Field        { return FieldComplexity }
func (SetEstimatedMinutes) Field() Field  { return FieldEstimatedMinutes }
func (SetDeadline) Field() Field          { return FieldDeadline }
func (SetCompletedAt) Field() Field       { return FieldCompletedAt }
func (SetTags) Field() Field              { return FieldTags }
func (SetOrder) Field() Field             { return FieldOrder }
func (SetFocusTimeSpent) Field() Field    { return FieldFocusTimeSpent }
func (SetAttempts) Field() Field          { return FieldAttempts }
func (SetIsCurrentlyActive) Field() Field { return FieldIsCurrentlyActive }
func (SetProgressStatus) Field() Field    { return FieldProgressStatus }

func (c SetText) apply(t *Task) (string, string, bool) {
	return assign(&t.Text, c.Value, identity)
}

func (c SetDescription) apply(t *Task) (string, string, bool) {
	return assign(&t.Description, c.Value, identity)
}

func (c SetChecked) apply(t *Task) (string, string, bool) {
	return assign(&t.Checked, c.Value, strconv.FormatBool)
}

func (c SetPriority) apply(t *Task) (string, string, bool) {
	return assign(&t.Priority, c.Value, func(p Priority) string { return string(p) })
}

func (c SetComplexity) apply(t *Task) (string, string, bool) {
	return assign(&t.Complexity, c.Value, func(v Complexity) string { return string(v) })
}

func (c SetEstimatedMinutes) apply(t *Task) (string, string, bool) {
	return assign(&t.EstimatedMinutes, c.Value, strconv.Itoa)
}

func (c SetDeadline) apply(t *Task) (string, string, bool) {
	return assignTime(&t.Deadline, c.Value)
}

func (c SetCompletedAt) apply(t *Task) (string, string, bool) {
	return assignTime(&t.CompletedAt, c.Value)
}

func (c SetTags) apply(t *Task) (string, string, bool) {
	if slices.Equal(t.Tags, c.Value) {
		return "", "", false
	}
	old := strings.Join(t.Tags, ",")
	t.Tags = append([]string(nil), c.Value...)
	return old, strings.Join(c.Value, ","), true
}

func (c SetOrder) apply(t *Task) (string, string, bool) {
	return assign(&t.Order, c.Value, strconv.Itoa)
}

func (c SetFocusTimeSpent) apply(t *Task) (string, string, bool) {
	return assign(&t.FocusTimeSpent, c.Value, strconv.Itoa)
}

func (c SetAttempts) apply(t *Task) (string, string, bool) {
	return assign(&t.Attempts, c.Value, strconv.Itoa)
}

func (c SetIsCurrentlyActive) apply(t *Task) (string, string, bool) {
	return assign(&t.IsCurrentlyActive, c.Value, strconv.FormatBool)
}

func (c SetProgressStatus) apply(t *Task) (string, string, bool) {
	return assign(&t.ProgressStatus, c.Value, func(s ProgressStatus) string { return string(s) })
}

func identity(s string) string { return s }

func assign[T comparable](dst *T, v T, format func(T) string) (string, string, bool) {
	if *dst == v {
		return "", "", false
	}
	old := format(*dst)
	*dst = v
	return old, format(v), true
}

func assignTime(dst **time.Time, v *time.Time) (string, string, bool) {
	if timeEqual(*dst, v) {
		return "", "", false
	}
	old := FormatTime(*dst)
	if v == nil {
		*dst = nil
	} else {
		c := *v
		*dst = &c
	}
	return old, FormatTime(v), true
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// FormatTime renders an optional instant the way change records store it.
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Diff is the outcome of applying one Change.
type Diff struct {
	Field    Field
	OldValue string
	NewValue string
}

// Apply runs every change against t in order and returns one Diff per
// change that actually altered a value.
func Apply(t *Task, changes []Change) []Diff {
	var diffs []Diff
	for _, c := range changes {
		oldV, newV, changed := c.apply(t)
		if changed {
			diffs = append(diffs, Diff{Field: c.Field(), OldValue: oldV, NewValue: newV})
		}
	}
	return diffs
}
