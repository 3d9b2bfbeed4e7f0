package api

import (
	"io"
	"net/http"
	"time"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/recommend"
)

// handleGenerateRecommendations handles POST /api/v1/recommendations/generate.
// An empty body runs every analyzer over all active campaigns; a body
// that names campaigns but no analyzers also gets every analyzer.
func (s *Server) handleGenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	opts := recommend.DefaultOptions()

	var req recommend.Options
	err := decodeBody(r, &req)
	switch {
	case err == io.EOF:
		// No body, run with defaults
	case err != nil:
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	default:
		if !req.StructureHygiene && !req.AssetOptimization && !req.QueryMining && !req.BudgetOptimization {
			req.StructureHygiene = true
			req.AssetOptimization = true
			req.QueryMining = true
			req.BudgetOptimization = true
		}
		if req.MinImpressions <= 0 {
			req.MinImpressions = opts.MinImpressions
		}
		opts = req
	}

	result, err := s.engine.Generate(r.Context(), opts)
	if err != nil {
		s.log.Error().Err(err).Msg("Recommendation generation failed")
		s.sendError(w, http.StatusInternalServerError, codeInternal, "recommendation generation failed")
		return
	}

	if s.metrics != nil {
		for _, rec := range result.Recommendations {
			s.metrics.RecommendationsGeneratedTotal.WithLabelValues(string(rec.Type)).Inc()
		}
	}
	s.sendData(w, http.StatusOK, result)
}

// handleListRecommendations handles GET /api/v1/campaigns/{id}/recommendations
func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	var status *models.RecommendationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed := models.RecommendationStatus(raw)
		switch parsed {
		case models.RecommendationStatusPending, models.RecommendationStatusApplied,
			models.RecommendationStatusDismissed, models.RecommendationStatusScheduled:
			status = &parsed
		default:
			s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid status filter",
				map[string]string{"status": "must be pending, applied, dismissed or scheduled"})
			return
		}
	}

	recs, err := s.engine.ListForCampaign(r.Context(), campaign.ID, status)
	if err != nil {
		s.sendStorageError(w, err, "recommendations")
		return
	}
	s.sendList(w, recs, Meta{Count: len(recs)})
}

// handleApplyRecommendation handles POST /api/v1/recommendations/{id}/apply.
// A failed apply is an outcome, not a transport error: the response
// stays 200 with success=false and the failure message, matching how
// bulk apply sweeps treat individual failures.
func (s *Server) handleApplyRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if _, err := s.repo.GetRecommendationByID(r.Context(), id); err != nil {
		s.sendStorageError(w, err, "recommendation")
		return
	}

	outcome, err := s.engine.Apply(r.Context(), id)
	if err != nil {
		s.sendStorageError(w, err, "recommendation")
		return
	}
	if !outcome.Success {
		s.writeJSON(w, http.StatusOK, Response{
			Success: false,
			Error: &ErrorBody{
				Code:    codeApplyFailed,
				Message: outcome.Message,
			},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if s.metrics != nil {
		s.metrics.RecommendationsAppliedTotal.Inc()
	}
	s.sendData(w, http.StatusOK, outcome)
}

// handleDismissRecommendation handles POST /api/v1/recommendations/{id}/dismiss
func (s *Server) handleDismissRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	rec, err := s.engine.Dismiss(r.Context(), id)
	if err != nil {
		s.sendStorageError(w, err, "recommendation")
		return
	}
	s.sendData(w, http.StatusOK, rec)
}
