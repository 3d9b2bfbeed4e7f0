package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

type campaignRequest struct {
	Name   *string  `json:"name"`
	Budget *float64 `json:"budget"`
	Status *string  `json:"status"`
}

func campaignStatus(raw string) (models.CampaignStatus, bool) {
	switch models.CampaignStatus(raw) {
	case models.CampaignStatusActive, models.CampaignStatusPaused, models.CampaignStatusDraft:
		return models.CampaignStatus(raw), true
	}
	return "", false
}

// handleListCampaigns handles GET /api/v1/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	filter := storage.DefaultCampaignFilter()
	filter.Limit = queryInt(r, "limit", filter.Limit)
	filter.Offset = queryInt(r, "offset", 0)

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := campaignStatus(raw)
		if !ok {
			s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid status filter",
				map[string]string{"status": "must be active, paused or draft"})
			return
		}
		filter.Status = &status
	}

	campaigns, err := s.repo.ListCampaigns(r.Context(), filter)
	if err != nil {
		s.sendStorageError(w, err, "campaigns")
		return
	}

	s.sendList(w, campaigns, Meta{Count: len(campaigns), Limit: filter.Limit, Offset: filter.Offset})
}

// handleCreateCampaign handles POST /api/v1/campaigns
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	campaign := &models.Campaign{}

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		problems["name"] = "required"
	} else {
		campaign.Name = strings.TrimSpace(*req.Name)
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			problems["budget"] = "must not be negative"
		} else {
			campaign.Budget = *req.Budget
		}
	}
	if req.Status != nil {
		status, ok := campaignStatus(*req.Status)
		if !ok {
			problems["status"] = "must be active, paused or draft"
		} else {
			campaign.Status = status
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid campaign", problems)
		return
	}

	if err := s.repo.CreateCampaign(r.Context(), campaign); err != nil {
		s.sendStorageError(w, err, "campaign")
		return
	}
	s.sendData(w, http.StatusCreated, campaign)
}

// handleGetCampaign handles GET /api/v1/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}
	s.sendData(w, http.StatusOK, campaign)
}

// handleUpdateCampaign handles PUT /api/v1/campaigns/{id}
func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	var req campaignRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			problems["name"] = "must not be empty"
		} else {
			campaign.Name = name
		}
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			problems["budget"] = "must not be negative"
		} else {
			campaign.Budget = *req.Budget
		}
	}
	if req.Status != nil {
		status, ok := campaignStatus(*req.Status)
		if !ok {
			problems["status"] = "must be active, paused or draft"
		} else {
			campaign.Status = status
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid campaign", problems)
		return
	}

	if err := s.repo.UpdateCampaign(r.Context(), campaign); err != nil {
		s.sendStorageError(w, err, "campaign")
		return
	}
	s.sendData(w, http.StatusOK, campaign)
}

// handleDeleteCampaign handles DELETE /api/v1/campaigns/{id}
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	if err := s.repo.DeleteCampaign(r.Context(), campaign.ID); err != nil {
		s.sendStorageError(w, err, "campaign")
		return
	}
	s.log.Info().Uint("campaign_id", campaign.ID).Msg("Campaign deleted")
	s.sendData(w, http.StatusOK, nil)
}

type duplicateRequest struct {
	Name *string `json:"name"`
}

type duplicateResult struct {
	Campaign  *models.Campaign `json:"campaign"`
	AdGroups  int              `json:"ad_groups_copied"`
	Ads       int              `json:"ads_copied"`
	Negatives int              `json:"negatives_copied"`
}

// handleDuplicateCampaign handles POST /api/v1/campaigns/{id}/duplicate.
// The copy lands in draft status regardless of the source so a
// duplicate never starts spending on its own.
func (s *Server) handleDuplicateCampaign(w http.ResponseWriter, r *http.Request) {
	src, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	name := src.Name + " (copy)"
	var req duplicateRequest
	if err := decodeBody(r, &req); err == nil && req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}

	groups, err := s.repo.ListAdGroups(r.Context(), src.ID)
	if err != nil {
		s.sendStorageError(w, err, "ad groups")
		return
	}
	adsByGroup := make(map[uint][]*models.Ad, len(groups))
	for _, group := range groups {
		ads, err := s.repo.ListAds(r.Context(), group.ID)
		if err != nil {
			s.sendStorageError(w, err, "ads")
			return
		}
		adsByGroup[group.ID] = ads
	}
	negatives, err := s.repo.ListNegativeKeywords(r.Context(), src.ID)
	if err != nil {
		s.sendStorageError(w, err, "negative keywords")
		return
	}

	result := duplicateResult{
		Campaign: &models.Campaign{
			Name:   name,
			Budget: src.Budget,
			Status: models.CampaignStatusDraft,
		},
	}
	err = s.repo.Transaction(r.Context(), func(tx storage.Repository) error {
		if err := tx.CreateCampaign(r.Context(), result.Campaign); err != nil {
			return err
		}
		groupIDs := make(map[uint]uint, len(groups))
		for _, group := range groups {
			dup := &models.AdGroup{
				CampaignID: result.Campaign.ID,
				Name:       group.Name,
				Keywords:   cloneKeywords(group.Keywords),
				Status:     group.Status,
			}
			if err := tx.CreateAdGroup(r.Context(), dup); err != nil {
				return err
			}
			groupIDs[group.ID] = dup.ID
			result.AdGroups++

			for _, ad := range adsByGroup[group.ID] {
				dupAd := &models.Ad{
					AdGroupID:    dup.ID,
					Headlines:    append(models.HeadlineList(nil), ad.Headlines...),
					Descriptions: append(models.StringSlice(nil), ad.Descriptions...),
					FinalURL:     ad.FinalURL,
					Status:       ad.Status,
				}
				if err := tx.CreateAd(r.Context(), dupAd); err != nil {
					return err
				}
				result.Ads++
			}
		}
		for _, negative := range negatives {
			dup := &models.NegativeKeyword{
				CampaignID:  result.Campaign.ID,
				KeywordText: negative.KeywordText,
				MatchType:   negative.MatchType,
				Level:       negative.Level,
				Source:      negative.Source,
			}
			if negative.AdGroupID != nil {
				if mapped, ok := groupIDs[*negative.AdGroupID]; ok {
					dup.AdGroupID = &mapped
				}
			}
			if err := tx.CreateNegativeKeyword(r.Context(), dup); err != nil {
				return err
			}
			result.Negatives++
		}
		return nil
	})
	if err != nil {
		s.sendStorageError(w, err, "campaign duplicate")
		return
	}

	s.log.Info().
		Uint("source_id", src.ID).
		Uint("campaign_id", result.Campaign.ID).
		Int("ad_groups", result.AdGroups).
		Int("ads", result.Ads).
		Msg("Campaign duplicated")
	s.sendData(w, http.StatusCreated, result)
}

type bulkStatusRequest struct {
	IDs    []uint `json:"ids"`
	Status string `json:"status"`
}

// handleBulkCampaignStatus handles PUT /api/v1/campaigns/bulk/status
func (s *Server) handleBulkCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid bulk update",
			map[string]string{"ids": "required"})
		return
	}
	status, ok := campaignStatus(req.Status)
	if !ok {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid bulk update",
			map[string]string{"status": "must be active, paused or draft"})
		return
	}

	if err := s.repo.BulkUpdateCampaignStatus(r.Context(), req.IDs, status); err != nil {
		s.sendStorageError(w, err, "campaigns")
		return
	}
	s.sendData(w, http.StatusOK, map[string]interface{}{
		"ids":    req.IDs,
		"status": status,
	})
}

type negativeRequest struct {
	KeywordText string `json:"keyword_text"`
	MatchType   string `json:"match_type"`
	Level       string `json:"level"`
	AdGroupID   *uint  `json:"ad_group_id"`
}

// handleListNegatives handles GET /api/v1/campaigns/{id}/negatives
func (s *Server) handleListNegatives(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	negatives, err := s.repo.ListNegativeKeywords(r.Context(), campaign.ID)
	if err != nil {
		s.sendStorageError(w, err, "negative keywords")
		return
	}
	s.sendList(w, negatives, Meta{Count: len(negatives)})
}

// handleCreateNegative handles POST /api/v1/campaigns/{id}/negatives
func (s *Server) handleCreateNegative(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	var req negativeRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	text := strings.TrimSpace(req.KeywordText)
	if text == "" {
		problems["keyword_text"] = "required"
	}
	matchType := models.MatchTypeBroad
	if req.MatchType != "" {
		mt, ok := matchTypeFrom(req.MatchType)
		if !ok {
			problems["match_type"] = "must be broad, phrase or exact"
		} else {
			matchType = mt
		}
	}
	level := models.NegativeLevelCampaign
	if req.AdGroupID != nil {
		level = models.NegativeLevelAdGroup
	}
	if req.Level == string(models.NegativeLevelAdGroup) && req.AdGroupID == nil {
		problems["ad_group_id"] = "required for ad_group level negatives"
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid negative keyword", problems)
		return
	}

	negative := &models.NegativeKeyword{
		CampaignID:  campaign.ID,
		AdGroupID:   req.AdGroupID,
		KeywordText: text,
		MatchType:   matchType,
		Level:       level,
		Source:      models.KeywordSourceManual,
	}
	if err := s.repo.CreateNegativeKeyword(r.Context(), negative); err != nil {
		s.sendStorageError(w, err, "negative keyword")
		return
	}
	s.sendData(w, http.StatusCreated, negative)
}

// handleDeleteNegative handles DELETE /api/v1/negatives/{id}
func (s *Server) handleDeleteNegative(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if err := s.repo.DeleteNegativeKeyword(r.Context(), id); err != nil {
		s.sendStorageError(w, err, "negative keyword")
		return
	}
	s.sendData(w, http.StatusOK, nil)
}

// handleListSearchTerms handles GET /api/v1/campaigns/{id}/searchterms
func (s *Server) handleListSearchTerms(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	filter := storage.SearchTermFilter{
		CampaignID: &campaign.ID,
		Limit:      queryInt(r, "limit", 100),
		Offset:     queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.SearchTermStatus(raw)
		switch status {
		case models.SearchTermStatusActive, models.SearchTermStatusAddedAsNegative, models.SearchTermStatusAddedAsPositive:
			filter.Status = &status
		default:
			s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid status filter",
				map[string]string{"status": fmt.Sprintf("unknown search term status %q", raw)})
			return
		}
	}
	if min := queryInt(r, "min_impressions", 0); min > 0 {
		filter.MinImpressions = &min
	}

	terms, err := s.repo.ListSearchTerms(r.Context(), filter)
	if err != nil {
		s.sendStorageError(w, err, "search terms")
		return
	}
	s.sendList(w, terms, Meta{Count: len(terms), Limit: filter.Limit, Offset: filter.Offset})
}

// campaignFromPath loads the campaign addressed by the {id} route
// parameter, answering the request itself when that fails
func (s *Server) campaignFromPath(w http.ResponseWriter, r *http.Request) (*models.Campaign, bool) {
	id, err := idParam(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return nil, false
	}
	campaign, err := s.repo.GetCampaignByID(r.Context(), id)
	if err != nil {
		s.sendStorageError(w, err, "campaign")
		return nil, false
	}
	return campaign, true
}

func matchTypeFrom(raw string) (models.MatchType, bool) {
	switch models.MatchType(raw) {
	case models.MatchTypeBroad, models.MatchTypePhrase, models.MatchTypeExact:
		return models.MatchType(raw), true
	}
	return "", false
}

func cloneKeywords(in models.KeywordList) models.KeywordList {
	if in == nil {
		return nil
	}
	out := make(models.KeywordList, len(in))
	copy(out, in)
	for i := range out {
		if out[i].MaxCPC != nil {
			v := *out[i].MaxCPC
			out[i].MaxCPC = &v
		}
	}
	return out
}
