package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/server/ingest"
)

// errorBody is the JSON body of every error response.
type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Columns []string `json:"columns,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// statusFor maps an error to an HTTP status and a stable error code.
// Infrastructure failures are reported as a generic 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, common.ErrTerminalState):
		return http.StatusConflict, "TERMINAL_STATE"
	case errors.Is(err, common.ErrIllegalTransition):
		return http.StatusConflict, "ILLEGAL_TRANSITION"
	case errors.Is(err, common.ErrAlreadyBound), errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, common.ErrMissingColumns):
		return http.StatusUnprocessableEntity, "MISSING_COLUMNS"
	case errors.Is(err, common.ErrMalformedTable):
		return http.StatusUnprocessableEntity, "MALFORMED_TABLE"
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, common.ErrTransport):
		return http.StatusBadGateway, "TRANSPORT_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorBody(w, status, code, http.StatusText(status))
		return
	}

	body := errorBody{Code: code, Message: err.Error()}
	var mce *ingest.MissingColumnsError
	if errors.As(err, &mce) {
		body.Columns = mce.Columns
	}
	writeJSON(w, status, body)
}
