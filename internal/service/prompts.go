package service

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var promptTemplates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

var promptFiles = map[intent.Kind]string{
	intent.KindOrganize:  "organize_todos.tmpl",
	intent.KindQuestions: "generate_questions.tmpl",
	intent.KindDailyPlan: "generate_daily_plan.tmpl",
	intent.KindRewrite:   "rewrite_description.tmpl",
	intent.KindSOW:       "generate_sow_document.tmpl",
}

// promptTask is the view of a task the provider sees. The audit log is left
// out; it is carried over locally after the response.
type promptTask struct {
	ID               int64               `json:"id"`
	Text             string              `json:"text"`
	Description      string              `json:"description"`
	Checked          bool                `json:"checked"`
	Priority         todo.Priority       `json:"priority"`
	Complexity       todo.Complexity     `json:"complexity"`
	EstimatedMinutes int                 `json:"estimatedMinutes"`
	Order            int                 `json:"order"`
	Tags             []string            `json:"tags,omitempty"`
	Deadline         string              `json:"deadline,omitempty"`
	CreatedAt        string              `json:"createdAt"`
	FocusTimeSpent   int                 `json:"focusTimeSpent"`
	Attempts         int                 `json:"attempts"`
	ProgressStatus   todo.ProgressStatus `json:"progressStatus"`
}

// BuildPrompt renders the prompt for req. Free text supplied by the user is
// sanitized before interpolation. The output is deterministic for equal input.
func BuildPrompt(req intent.Request) (string, error) {
	file, ok := promptFiles[req.Kind()]
	if !ok {
		return "", fmt.Errorf("no prompt template for %s", req.Kind())
	}

	var data any
	switch r := req.(type) {
	case intent.OrganizeRequest:
		tasks := make([]promptTask, len(r.Todos))
		for i := range r.Todos {
			tasks[i] = toPromptTask(&r.Todos[i])
		}
		js, err := json.Marshal(tasks)
		if err != nil {
			return "", fmt.Errorf("encode todos: %w", err)
		}
		data = struct {
			TotalAvailableMinutes int
			FocusMode             intent.FocusMode
			TodosJSON             string
		}{r.TotalAvailableMinutes, r.FocusMode, string(js)}
	case intent.QuestionsRequest:
		r.UserInput = sanitizePromptInput(r.UserInput)
		data = r
	case intent.DailyPlanRequest:
		r.UserInput = sanitizePromptInput(r.UserInput)
		qs := make([]plan.AnsweredQuestion, len(r.AnsweredQuestions))
		for i, qa := range r.AnsweredQuestions {
			qs[i] = plan.AnsweredQuestion{Question: sanitizePromptInput(qa.Question), Answer: sanitizePromptInput(qa.Answer)}
		}
		r.AnsweredQuestions = qs
		data = r
	case intent.RewriteRequest:
		r.BulletPoints = sanitizePromptInput(r.BulletPoints)
		data = r
	case intent.SOWRequest:
		data = sanitizeProject(r.ProjectData)
	default:
		return "", fmt.Errorf("unsupported request type %T", req)
	}

	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, file, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", req.Kind(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func toPromptTask(t *todo.Task) promptTask {
	return promptTask{
		ID:               t.ID,
		Text:             sanitizeInline(t.Text),
		Description:      sanitizeInline(t.Description),
		Checked:          t.Checked,
		Priority:         t.Priority,
		Complexity:       t.Complexity,
		EstimatedMinutes: t.EstimatedMinutes,
		Order:            t.Order,
		Tags:             t.Tags,
		Deadline:         todo.FormatTime(t.Deadline),
		CreatedAt:        todo.FormatTime(&t.CreatedAt),
		FocusTimeSpent:   t.FocusTimeSpent,
		Attempts:         t.Attempts,
		ProgressStatus:   t.ProgressStatus,
	}
}

func sanitizeProject(p intent.ProjectData) intent.ProjectData {
	p.ProjectName = sanitizeInline(p.ProjectName)
	p.ProjectDescription = sanitizePromptInput(p.ProjectDescription)
	p.Timeline = sanitizeInline(p.Timeline)
	p.Budget = sanitizeInline(p.Budget)
	p.Constraints = sanitizePromptInput(p.Constraints)
	p.Deliverables = sanitizeAll(p.Deliverables)
	p.Stakeholders = sanitizeAll(p.Stakeholders)
	p.Requirements = sanitizeAll(p.Requirements)
	return p
}

func sanitizeAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = sanitizeInline(s)
	}
	return out
}

// sanitizeInline is sanitizePromptInput for values rendered on one line.
func sanitizeInline(s string) string {
	return strings.Join(strings.Fields(sanitizePromptInput(s)), " ")
}

// sanitizePromptInput strips control characters, neutralises role markers
// at line starts and caps the length of user text before it is embedded in
// a prompt.
func sanitizePromptInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.ToLower(line))
		for _, prefix := range []string{
			"system:", "assistant:", "user:", "[system]", "[assistant]",
			"<|system|>", "<|assistant|>", "<|im_start|>",
			"### system", "### assistant", "### instruction",
		} {
			if strings.HasPrefix(trimmed, prefix) {
				lines[i] = "[sanitized] " + line
				break
			}
		}
	}
	s = strings.Join(lines, "\n")

	const maxInputLen = 10000
	if len(s) > maxInputLen {
		s = strings.ToValidUTF8(s[:maxInputLen], "") + "\n[truncated]"
	}
	return s
}
