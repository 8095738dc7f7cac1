package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
)

// Onboarding is what the user tells the planner about their day before any
// question is asked.
type Onboarding struct {
	DailyDescription string   `json:"dailyDescription"`
	AvailableTime    float64  `json:"availableTime"`
	StartTime        string   `json:"startTime"`
	EndTime          string   `json:"endTime"`
	Priorities       []string `json:"priorities"`
}

// DefaultOnboarding returns the form's initial values: an eight hour day
// from nine to five.
func DefaultOnboarding() Onboarding {
	return Onboarding{
		AvailableTime: 8,
		StartTime:     "09:00",
		EndTime:       "17:00",
		Priorities:    []string{},
	}
}

// WithDefaults fills zero fields from DefaultOnboarding.
func (o Onboarding) WithDefaults() Onboarding {
	d := DefaultOnboarding()
	if o.AvailableTime == 0 {
		o.AvailableTime = d.AvailableTime
	}
	if o.StartTime == "" {
		o.StartTime = d.StartTime
	}
	if o.EndTime == "" {
		o.EndTime = d.EndTime
	}
	if o.Priorities == nil {
		o.Priorities = d.Priorities
	}
	return o
}

// Validate checks the description and the clock times.
func (o *Onboarding) Validate() error {
	if strings.TrimSpace(o.DailyDescription) == "" {
		return fmt.Errorf("%w: dailyDescription is required", domain.ErrValidation)
	}
	if o.AvailableTime <= 0 || o.AvailableTime > 24 {
		return fmt.Errorf("%w: availableTime must be within (0,24]", domain.ErrValidation)
	}
	for _, s := range []string{o.StartTime, o.EndTime} {
		if _, err := time.Parse("15:04", s); err != nil {
			return fmt.Errorf("%w: invalid clock time %q", domain.ErrValidation, s)
		}
	}
	return nil
}
