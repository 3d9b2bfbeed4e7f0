package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adpilot/internal/storage"
)

// Error codes carried in the response envelope. Upstream AI failures
// reuse the provider error codes (AUTH_ERROR, RATE_LIMIT, TIMEOUT,
// PROVIDER_ERROR) as-is.
const (
	codeValidation    = "VALIDATION_ERROR"
	codeNotFound      = "NOT_FOUND"
	codeRuleDisabled  = "RULE_DISABLED"
	codeApplyFailed   = "APPLY_FAILED"
	codeNotConfigured = "NOT_CONFIGURED"
	codeSheetsError   = "SHEETS_ERROR"
	codeInternal      = "INTERNAL_ERROR"
)

// Response is the envelope every JSON endpoint answers with
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Meta carries list pagination figures
type Meta struct {
	Count  int `json:"count"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// writeJSON writes a raw JSON body without the envelope
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendData wraps v in a success envelope
func (s *Server) sendData(w http.ResponseWriter, status int, v interface{}) {
	s.writeJSON(w, status, Response{
		Success:   true,
		Data:      v,
		Timestamp: time.Now().UTC(),
	})
}

// sendList wraps a list in a success envelope with pagination meta
func (s *Server) sendList(w http.ResponseWriter, v interface{}, meta Meta) {
	s.writeJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      v,
		Meta:      &meta,
		Timestamp: time.Now().UTC(),
	})
}

// sendError writes an error envelope
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendErrorDetails(w, status, code, message, nil)
}

// sendErrorDetails writes an error envelope with a details payload,
// typically the field → problem map of a validation failure
func (s *Server) sendErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	s.writeJSON(w, status, Response{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
	})
}

// sendStorageError maps a repository error onto the envelope: missing
// records become 404, everything else a logged 500 with a generic
// message
func (s *Server) sendStorageError(w http.ResponseWriter, err error, entity string) {
	if errors.Is(err, storage.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, codeNotFound, entity+" not found")
		return
	}
	s.log.Error().Err(err).Str("entity", entity).Msg("Storage operation failed")
	s.sendError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

// idParam reads the {id} route parameter
func idParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// queryInt reads an integer query parameter, falling back to def when
// absent or malformed
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryUints reads a comma-separated list of IDs from a query parameter
func queryUints(r *http.Request, key string) ([]uint, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, errors.New(key + " must be a comma-separated list of ids")
		}
		ids = append(ids, uint(v))
	}
	return ids, nil
}

// decodeBody decodes a JSON request body into v
func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
