package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
)

type errorBody struct {
	Error    apperrors.Code    `json:"error"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error's code to a status. Errors without a code are
// internal.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	body := errorBody{Error: code, Message: err.Error()}
	var e *apperrors.Error
	if errors.As(err, &e) {
		body.Metadata = e.Metadata
	}
	writeJSON(w, code.HTTPStatus(), body)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("invalid request body", err)
	}
	return nil
}

func invalid(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeInvalidArgument, message, cause)
}
