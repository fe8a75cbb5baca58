package server

import (
	"encoding/json"
	"net/http"

	"vetrian/pkg/types"

	"github.com/sirupsen/logrus"
)

// envelope is the JSON body shared by every endpoint.
type envelope map[string]any

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) ok(w http.ResponseWriter, message string, data any) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Service) created(w http.ResponseWriter, body envelope) {
	body["success"] = true
	s.writeJSON(w, http.StatusCreated, body)
}

func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.KindInvalidRequest, types.KindValidationFailed, types.KindInvalidID:
		return http.StatusBadRequest
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates an engine error into its status and JSON body.
// Errors that are not *types.Error are treated as Unavailable.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := types.AsError(err)
	if !ok {
		e = types.NewUnavailable("Server error. Please try again later.", err)
	}

	status := statusFor(e.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestIDFromContext(r.Context()),
			"path":       r.URL.Path,
		}).Error("failed to handle request")
	}

	body := envelope{
		"success": false,
		"message": e.Message,
	}

	switch e.Kind {
	case types.KindValidationFailed:
		if len(e.Fields) > 0 {
			body["errors"] = e.Fields
		}
	case types.KindConflict:
		body["duplicate"] = true
		body["fields"] = e.Conflicts
	}

	s.writeJSON(w, status, body)
}
