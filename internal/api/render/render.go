// Package render writes JSON responses and maps domain errors to HTTP statuses.
package render

import (
	"errors"
	"net/http"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/logging"
	"github.com/goccy/go-json"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// Raw writes an already encoded JSON document.
func Raw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func StatusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidCredentials, domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindExternalUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error renders err. Anything that is not a classified domain error is logged
// and hidden behind a generic internal error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.Internal(err)
	}

	status := StatusOf(derr.Kind)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	message := derr.Message
	if derr.Kind == domain.KindInternal {
		message = "internal server error"
	}

	JSON(w, status, ErrorBody{
		Code:    string(derr.Kind),
		Message: message,
		Fields:  derr.Fields,
	})
}

// DecodeJSON reads the request body into v. A malformed body is a
// validation error. Numbers landing in interface{} fields stay json.Number,
// so large catalog ids keep every digit.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return domain.Validation("invalid request body", nil)
	}
	return nil
}
