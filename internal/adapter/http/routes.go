package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/TEKIMAX/focus-todo-ai/internal/middleware"
)

// aiRequestTimeout bounds a whole AI round trip, fallback included.
const aiRequestTimeout = 3 * time.Minute

// MountRoutes registers all API routes on the given chi router. The AI
// group is rate limited when limiter is non-nil.
func MountRoutes(r chi.Router, h *Handlers, limiter *middleware.RateLimiter) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Get("/state", h.GetState)

			// Tasks
			r.Get("/tasks", h.ListTasks)
			r.Post("/tasks", h.AddTask)
			r.Put("/tasks", h.SetTasks)
			r.Post("/tasks/reorder", h.ReorderTasks)
			r.Patch("/tasks/{id}", h.UpdateTask)
			r.Delete("/tasks/{id}", h.DeleteTask)
			r.Post("/tasks/{id}/complete", h.CompleteTask)
			r.Post("/tasks/{id}/focus", h.StartFocus)
			r.Post("/tasks/{id}/select", h.SelectTask)
			r.Delete("/selection", h.ClearSelection)

			// Focus sessions
			r.Post("/focus/end", h.EndFocus)
			r.Post("/focus/resolve", h.ResolveFocus)

			// Day lifecycle
			r.Post("/day/reset", h.ResetDay)
			r.Post("/day/new", h.StartNewDay)
			r.Post("/onboarding/skip", h.SkipOnboarding)
			r.Get("/plans", h.ListPlans)

			// Settings
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
			r.Put("/settings/ai", h.UpdateAISettings)
		})

		// Provider calls; connection tests carry their own timeouts.
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Handler)
			}
			r.Use(chimw.Timeout(aiRequestTimeout))

			r.Post("/ai/generate", h.Generate)
			r.Post("/ai/organize", h.Organize)
			r.Post("/ai/questions", h.StartOnboarding)
			r.Get("/ai/onboarding", h.GetOnboarding)
			r.Post("/ai/onboarding/answer", h.AnswerQuestion)
			r.Post("/ai/daily-plan", h.GeneratePlan)
			r.Post("/ai/onboarding/complete", h.CompleteOnboarding)
			r.Post("/ai/rewrite", h.Rewrite)
			r.Post("/ai/sow", h.Document)
			r.Delete("/ai/flows/{flow}", h.CancelFlow)

			r.Post("/settings/test-local", h.TestLocal)
			r.Post("/settings/refresh-models", h.RefreshModels)
			r.Post("/settings/test-cloud", h.TestCloud)
		})
	})
}
