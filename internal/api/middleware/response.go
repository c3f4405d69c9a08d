package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/rs/zerolog"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrAssociationRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// WriteServiceError writes err with the status from StatusFor. Server errors
// are logged and answered with a generic message.
func WriteServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		WriteError(w, status, "Internal server error")
		return
	}
	WriteError(w, status, clientMessage(err))
}

// clientMessage drops the leading operation name from a wrapped error.
func clientMessage(err error) string {
	msg := err.Error()
	if op, rest, ok := strings.Cut(msg, ": "); ok && !strings.Contains(op, " ") {
		return rest
	}
	return msg
}
