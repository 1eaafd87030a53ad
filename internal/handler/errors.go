package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
)

// ErrorDetail is the body of every console error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError reports a request rejected before reaching the service
// layer (e.g. missing or malformed body).
func requestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "bad_request", message)
}

// writeServiceError maps a service error onto a status and body. Anything
// unrecognised is logged and reported as a 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		remote *domain.RemoteExecutionError
		doc    *domain.DocumentGenerationError
	)
	switch {
	case errors.Is(err, domain.ErrNoSession):
		writeError(w, http.StatusUnauthorized, "no_session", "no active session")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", unwrapMessage(err))
	case errors.Is(err, domain.ErrStaleRegistry):
		writeError(w, http.StatusServiceUnavailable, "stale_registry", "suspension registry is refreshing, retry shortly")
	case errors.As(err, &doc):
		logging.FromContext(r.Context(), s.Log).Error("document generation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "document_error", doc.Error())
	case errors.As(err, &remote):
		logging.FromContext(r.Context(), s.Log).Warn("remote execution failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "remote_error", remote.Message)
	default:
		logging.FromContext(r.Context(), s.Log).Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.PaymentService.RegisterPayment: validation error: expiration must be dd/mm/yyyy"
// becomes "expiration must be dd/mm/yyyy".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{domain.ErrValidation, domain.ErrNotFound} {
		marker := sentinel.Error() + ": "
		if i := strings.LastIndex(msg, marker); i >= 0 && len(msg) > i+len(marker) {
			return msg[i+len(marker):]
		}
	}
	return msg
}

// decodeBody reads a JSON body into dst and runs struct validation. It
// writes the 400 itself and reports whether the caller may continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return false
		}
		requestError(w, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			writeError(w, http.StatusUnprocessableEntity, "validation_error", strings.Join(msgs, "; "))
			return false
		}
		requestError(w, err.Error())
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "gt", "min":
		return field + " must be at least " + fe.Param()
	default:
		return field + " is invalid"
	}
}
