package coursework

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// HomeworkRoutes is mounted at /school/{schoolId}/homework.
func HomeworkRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListHomework)
	r.Get("/{id}", h.GetHomework)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.Staff...))
		pr.Post("/", h.CreateHomework)
		pr.Put("/{id}", h.UpdateHomework)
		pr.Delete("/{id}", h.DeleteHomework)
	})
	return r
}

// ExamRoutes is mounted at /school/{schoolId}/exams.
func ExamRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListExams)
	r.Get("/{id}", h.GetExam)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.Staff...))
		pr.Post("/", h.CreateExam)
		pr.Put("/{id}", h.UpdateExam)
		pr.Put("/{id}/results", h.SetResults)
		pr.Delete("/{id}", h.DeleteExam)
	})
	return r
}
