package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/adpilot/internal/ai"
)

// handleGenerateAdCopy handles POST /api/v1/ai/adcopy
func (s *Server) handleGenerateAdCopy(w http.ResponseWriter, r *http.Request) {
	var req ai.CopyRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if strings.TrimSpace(req.BusinessDescription) == "" {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid generation request",
			map[string]string{"business_description": "required"})
		return
	}

	result, err := s.ai.GenerateAdCopy(r.Context(), req)
	if err != nil {
		s.sendAIError(w, req.Provider, err)
		return
	}

	s.countAIRequest(result.Provider, "success")
	s.sendData(w, http.StatusOK, result)
}

// handleGenerateKeywords handles POST /api/v1/ai/keywords
func (s *Server) handleGenerateKeywords(w http.ResponseWriter, r *http.Request) {
	var req ai.KeywordRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if strings.TrimSpace(req.BusinessDescription) == "" {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid generation request",
			map[string]string{"business_description": "required"})
		return
	}

	result, err := s.ai.GenerateKeywords(r.Context(), req)
	if err != nil {
		s.sendAIError(w, req.Provider, err)
		return
	}

	s.countAIRequest(result.Provider, "success")
	s.sendData(w, http.StatusOK, result)
}

// handleListProviders handles GET /api/v1/ai/providers
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.ai.Providers()
	s.sendList(w, providers, Meta{Count: len(providers)})
}

// sendAIError maps a generation failure onto the envelope. Upstream
// provider failures keep their typed code but get a generic message;
// the remaining failures are request problems (unknown provider name)
// and surface as validation errors.
func (s *Server) sendAIError(w http.ResponseWriter, provider string, err error) {
	var perr *ai.ProviderError
	switch {
	case errors.As(err, &perr):
		s.countAIRequest(perr.Provider, "error")
		s.log.Warn().Err(err).Str("provider", perr.Provider).Msg("AI provider request failed")
		status := http.StatusBadGateway
		if perr.Code == ai.ErrCodeTimeout {
			status = http.StatusGatewayTimeout
		}
		s.sendError(w, status, string(perr.Code), "ai provider request failed")
	case errors.Is(err, ai.ErrEmptyResponse):
		s.countAIRequest(provider, "error")
		s.log.Warn().Err(err).Msg("AI response could not be parsed")
		s.sendError(w, http.StatusBadGateway, string(ai.ErrCodeProvider), "ai response could not be parsed")
	default:
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
	}
}

func (s *Server) countAIRequest(provider, status string) {
	if s.metrics == nil {
		return
	}
	if provider == "" {
		provider = "default"
	}
	s.metrics.AIRequestsTotal.WithLabelValues(provider, status).Inc()
}
