package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/models"
	"go.uber.org/zap"
)

// WriteError renders err as an ErrorResponse. Modeled failures keep their
// message; anything else is logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	body := models.ErrorResponse{Error: "Internal server error"}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Error = ae.Message
		body.Reason = string(ae.Reason)
		body.RetryAt = ae.RetryAt
	} else {
		log.Error("request failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
