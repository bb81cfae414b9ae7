package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"quizwale-service/internal/app"
	"quizwale-service/internal/auth"
	"quizwale-service/internal/domain"
)

const defaultMaxAttempts = 1

// Handler serves the REST surface.
type Handler struct {
	quizzes  *app.QuizService
	accounts *app.AccountService
	sessions *auth.Sessions
}

func NewHandler(quizzes *app.QuizService, accounts *app.AccountService, sessions *auth.Sessions) *Handler {
	return &Handler{quizzes: quizzes, accounts: accounts, sessions: sessions}
}

type quizResponse struct {
	Quiz domain.Quiz `json:"quiz"`
}

type userResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{Quiz: quiz})
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListQuizzes(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Quiz{"quizzes": quizzes})
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	start, err := h.quizzes.StartAttempt(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, start)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if caller == nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	var req domain.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	meta := app.SubmitMeta{IPAddress: r.RemoteAddr, UserAgent: r.UserAgent()}
	result, err := h.quizzes.Submit(r.Context(), caller, chi.URLParam(r, "id"), req, meta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	review, err := h.quizzes.Review(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := domain.ParsePeriod(q.Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, domain.Invalid("limit", "must be a positive integer"))
			return
		}
	}
	board, err := h.quizzes.Leaderboard(r.Context(), app.LeaderboardQuery{
		Period: period,
		QuizID: q.Get("quizId"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// createQuizRequest lets an omitted maxAttempts default to one while an
// explicit zero keeps the quiz unlimited.
type createQuizRequest struct {
	domain.Quiz
	MaxAttempts *int  `json:"maxAttempts"`
	IsActive    *bool `json:"isActive"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	quiz := req.Quiz
	quiz.MaxAttempts = defaultMaxAttempts
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	quiz.IsActive = true
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	created, err := h.quizzes.CreateQuiz(r.Context(), auth.FromContext(r.Context()), quiz)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quizResponse{Quiz: created})
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var patch domain.QuizPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{Quiz: quiz})
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.DeleteQuiz(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Quiz deleted successfully"})
}

func (h *Handler) releaseResults(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Released *bool `json:"released"`
	}{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
	}
	released := true
	if body.Released != nil {
		released = *body.Released
	}
	quiz, err := h.quizzes.ReleaseResults(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), released)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{Quiz: quiz})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if quizID := r.URL.Query().Get("quizId"); quizID != "" {
		stats, err := h.quizzes.QuizStatistics(r.Context(), caller, quizID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}
	overview, err := h.quizzes.PlatformOverview(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *Handler) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.quizzes.UserStats(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := h.accounts.Register(r.Context(), req, r.Header.Get("X-Admin-Key"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.sessions.SetCookie(w, token)
	writeJSON(w, http.StatusCreated, userResponse{User: user, Token: token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := h.accounts.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.sessions.SetCookie(w, token)
	writeJSON(w, http.StatusOK, userResponse{User: user, Token: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}
