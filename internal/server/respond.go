package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
)

// errorBody is the wire form of a failure
type errorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a tagged error to its response status and envelope.
// Untagged errors become INTERNAL_ERROR with no detail leakage.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		s.log.Error("unhandled error", zap.Error(err))
		appErr = apperr.Internal("")
	}
	writeJSON(w, statusFor(appErr.Code), errorEnvelope{
		Error: errorBody{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Details:   appErr.Details,
		},
	})
}

func statusFor(code string) int {
	switch code {
	case apperr.CodeInvalidCredentials, apperr.CodeTokenExpired, apperr.CodeTokenInvalid:
		return http.StatusUnauthorized
	case apperr.CodeAccountDisabled, apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeUserNotFound, apperr.CodeRequestNotFound, apperr.CodeProductNotFound:
		return http.StatusNotFound
	case apperr.CodeUsernameExists, apperr.CodeRequestNameExists:
		return http.StatusConflict
	case apperr.CodeRequestLocked:
		return http.StatusLocked
	case apperr.CodeInvalidStatus, apperr.CodeQuantityExceeded, apperr.CodeInvalidRequestName:
		return http.StatusBadRequest
	case apperr.CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a request body into v, rejecting unknown fields
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("Invalid JSON body: " + err.Error())
	}
	return nil
}
