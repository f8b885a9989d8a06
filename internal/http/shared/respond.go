// Package shared holds the response helpers every HTTP handler uses, so the
// error envelope stays identical across the API surface.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "signet/pkg/domain-errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON body with the given status. Encoding failures are
// swallowed; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps a domain error to its HTTP status and the flat error
// envelope. Non-domain errors collapse to a 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	msg := dErrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	WriteJSON(w, status, errorResponse{Error: msg})
}
