package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quizwale-service/internal/auth"
)

// NewRouter wires the REST handlers and the live attempt socket behind the
// session middleware.
func NewRouter(h *Handler, ws *WSHandler, sessions *auth.Sessions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(sessions.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
	})

	r.Get("/quizzes", h.listQuizzes)
	r.Post("/quiz", h.createQuiz)
	r.Get("/quiz/{id}", h.getQuiz)
	r.Put("/quiz/{id}", h.updateQuiz)
	r.Delete("/quiz/{id}", h.deleteQuiz)
	r.Post("/quiz/{id}/start", h.startAttempt)
	r.Post("/quiz/{id}/submit", h.submit)
	r.Put("/quiz/{id}/release", h.releaseResults)

	r.Get("/submission/{id}", h.getSubmission)
	r.Get("/leaderboard", h.leaderboard)
	r.Get("/statistics", h.statistics)
	r.Get("/user/stats", h.userStats)

	r.Get("/ws/attempt", ws.ServeWS)
	return r
}
