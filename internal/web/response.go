package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type messageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteMessage(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, messageResponse{Message: message})
}

// WriteError renders err as {"message": ...} with the status of its kind.
// Unclassified errors are 500 and keep their own message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(domain.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}
	WriteMessage(w, logger, status, err.Error())
}

func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation, domain.KindConflict, domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads the request body into dst. An empty body leaves dst as is.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.Validation("Invalid request body")
	}
	return nil
}
