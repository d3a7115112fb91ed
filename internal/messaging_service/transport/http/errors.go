package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

// writeJSON writes a JSON body with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, GenericErrorResponse{Error: message})
}

// writeDomainError maps the service error taxonomy onto HTTP status codes.
// Policy blocks never reach this path; they are a successful service result
// rendered as PolicyBlockResponse by the handler.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrProvider):
		writeError(w, http.StatusBadGateway, "message provider error")
	default:
		logger.Error("Unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
