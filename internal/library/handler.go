package library

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

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "book")
	if !ok {
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	book, err := h.service.CreateBook(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) GetGenreInterests(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "id", "student")
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	interests, err := h.service.GenreInterests(r.Context(), actor, studentID)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, interests)
}

func (h *Handler) PutGenreInterests(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "id", "student")
	if !ok {
		return
	}
	var req models.GenreInterestMap
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Body must map genre names to levels 1-4"})
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	interests, err := h.service.SetGenreInterests(r.Context(), actor, studentID, req)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, interests)
}

func pathID(w http.ResponseWriter, r *http.Request, key, what string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
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
