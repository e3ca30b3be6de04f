package reading

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

func (h *Handler) GetLexile(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentIDParam(w, r)
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	resp, err := h.service.Lexile(r.Context(), actor, studentID)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentIDParam(w, r)
	if !ok {
		return
	}
	var req models.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	resp, err := h.service.SubmitReview(r.Context(), actor, studentID, req)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentIDParam(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	actor, _ := middleware.PrincipalFrom(r.Context())
	resp, err := h.service.Recommendations(r.Context(), actor, studentID, limit)
	if err != nil {
		middleware.WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func studentIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid student ID"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
