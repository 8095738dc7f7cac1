package plan

import (
	"fmt"
	"strings"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
)

// Question is a clarifying question asked during onboarding. It lives only
// until the plan is finalized.
type Question struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Context  string `json:"context"`
	Answered bool   `json:"answered"`
	Answer   string `json:"answer,omitempty"`
	FollowUp bool   `json:"followUp"`
}

// AnsweredQuestion is the question/answer pair sent back when building a plan.
type AnsweredQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Answer records the user's answer to the question with the given id.
func Answer(qs []Question, id, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fmt.Errorf("%w: answer is required", domain.ErrValidation)
	}
	for i := range qs {
		if qs[i].ID == id {
			qs[i].Answer = answer
			qs[i].Answered = true
			return nil
		}
	}
	return fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
}

// AllAnswered reports whether every question has an answer.
func AllAnswered(qs []Question) bool {
	for i := range qs {
		if !qs[i].Answered {
			return false
		}
	}
	return true
}

// Pairs extracts the answered question/answer pairs in order.
func Pairs(qs []Question) []AnsweredQuestion {
	out := make([]AnsweredQuestion, 0, len(qs))
	for i := range qs {
		if qs[i].Answered {
			out = append(out, AnsweredQuestion{Question: qs[i].Question, Answer: qs[i].Answer})
		}
	}
	return out
}
