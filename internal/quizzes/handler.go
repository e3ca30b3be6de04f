package quizzes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/readlevel/backend/internal/middleware"
	"github.com/readlevel/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes mounts the quiz and submission endpoints. Admin-only routes are
// wrapped with the role guard.
func (h *Handler) Routes(r *mux.Router) {
	admin := middleware.RequireRole(models.RoleAdmin)

	r.Handle("/quizzes", admin(http.HandlerFunc(h.ListQuizzes))).Methods("GET")
	r.Handle("/quizzes", admin(http.HandlerFunc(h.CreateQuiz))).Methods("POST")
	r.HandleFunc("/quizzes/{id}", h.GetQuiz).Methods("GET")
	r.Handle("/quizzes/{id}", admin(http.HandlerFunc(h.UpdateQuiz))).Methods("PUT")
	r.Handle("/quizzes/{id}", admin(http.HandlerFunc(h.DeleteQuiz))).Methods("DELETE")
	r.HandleFunc("/books/{id}/quiz", h.GetQuizForBook).Methods("GET")
	r.Handle("/books/{id}/quiz/draft", admin(http.HandlerFunc(h.DraftQuiz))).Methods("POST")

	r.HandleFunc("/submissions", h.Submit).Methods("POST")
	r.HandleFunc("/submissions/{id}", h.GetSubmission).Methods("GET")
	r.HandleFunc("/submissions/{id}/comprehension", h.SetComprehension).Methods("PATCH")
	r.HandleFunc("/students/{id}/submissions", h.ListSubmissions).Methods("GET")
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	qs, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "quiz")
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	quiz, err := h.service.GetQuiz(r.Context(), actor, id)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "quiz")
	if !ok {
		return
	}
	var req models.QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	quiz, err := h.service.UpdateQuiz(r.Context(), id, req)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "quiz")
	if !ok {
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), id); err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetQuizForBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "book")
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	quiz, err := h.service.QuizForBook(r.Context(), actor, bookID)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) DraftQuiz(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "book")
	if !ok {
		return
	}
	var req models.DraftQuizRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
			return
		}
	}
	draft, err := h.service.DraftQuiz(r.Context(), bookID, req)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	sub, err := h.service.Submit(r.Context(), actor, req)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "submission")
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	sub, err := h.service.GetSubmission(r.Context(), actor, id)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "student")
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	subs, err := h.service.ListSubmissions(r.Context(), actor, studentID)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) SetComprehension(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "submission")
	if !ok {
		return
	}
	var req models.ComprehensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	sub, err := h.service.SetComprehension(r.Context(), actor, id, req.Comprehension)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid " + what + " ID"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
