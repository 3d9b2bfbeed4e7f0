package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

type adGroupRequest struct {
	Name     *string          `json:"name"`
	Keywords []models.Keyword `json:"keywords"`
	Status   *string          `json:"status"`
}

func adGroupStatusFrom(raw string) (models.AdGroupStatus, bool) {
	switch models.AdGroupStatus(raw) {
	case models.AdGroupStatusActive, models.AdGroupStatusPaused:
		return models.AdGroupStatus(raw), true
	}
	return "", false
}

// validateKeywords trims keyword texts and rejects empty ones
func validateKeywords(keywords []models.Keyword) (models.KeywordList, string) {
	out := make(models.KeywordList, 0, len(keywords))
	for i, kw := range keywords {
		text := strings.TrimSpace(kw.Text)
		if text == "" {
			return nil, fmt.Sprintf("keyword %d has no text", i+1)
		}
		if kw.MaxCPC != nil && *kw.MaxCPC < 0 {
			return nil, fmt.Sprintf("keyword %q has a negative max_cpc", text)
		}
		out = append(out, models.Keyword{Text: text, MaxCPC: kw.MaxCPC})
	}
	return out, ""
}

// handleListAdGroups handles GET /api/v1/campaigns/{id}/adgroups
func (s *Server) handleListAdGroups(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	groups, err := s.repo.ListAdGroups(r.Context(), campaign.ID)
	if err != nil {
		s.sendStorageError(w, err, "ad groups")
		return
	}
	s.sendList(w, groups, Meta{Count: len(groups)})
}

// handleCreateAdGroup handles POST /api/v1/campaigns/{id}/adgroups
func (s *Server) handleCreateAdGroup(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignFromPath(w, r)
	if !ok {
		return
	}

	var req adGroupRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	group := &models.AdGroup{CampaignID: campaign.ID}

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		problems["name"] = "required"
	} else {
		group.Name = strings.TrimSpace(*req.Name)
	}
	if len(req.Keywords) > 0 {
		keywords, problem := validateKeywords(req.Keywords)
		if problem != "" {
			problems["keywords"] = problem
		} else {
			group.Keywords = keywords
		}
	}
	if req.Status != nil {
		status, ok := adGroupStatusFrom(*req.Status)
		if !ok {
			problems["status"] = "must be active or paused"
		} else {
			group.Status = status
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid ad group", problems)
		return
	}

	if err := s.repo.CreateAdGroup(r.Context(), group); err != nil {
		s.sendStorageError(w, err, "ad group")
		return
	}
	s.sendData(w, http.StatusCreated, group)
}

// handleGetAdGroup handles GET /api/v1/adgroups/{id}
func (s *Server) handleGetAdGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.adGroupFromPath(w, r)
	if !ok {
		return
	}
	s.sendData(w, http.StatusOK, group)
}

// handleUpdateAdGroup handles PUT /api/v1/adgroups/{id}
func (s *Server) handleUpdateAdGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.adGroupFromPath(w, r)
	if !ok {
		return
	}

	var req adGroupRequest
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
			group.Name = name
		}
	}
	if req.Keywords != nil {
		keywords, problem := validateKeywords(req.Keywords)
		if problem != "" {
			problems["keywords"] = problem
		} else {
			group.Keywords = keywords
		}
	}
	if req.Status != nil {
		status, ok := adGroupStatusFrom(*req.Status)
		if !ok {
			problems["status"] = "must be active or paused"
		} else {
			group.Status = status
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid ad group", problems)
		return
	}

	if err := s.repo.UpdateAdGroup(r.Context(), group); err != nil {
		s.sendStorageError(w, err, "ad group")
		return
	}
	s.sendData(w, http.StatusOK, group)
}

// handleDeleteAdGroup handles DELETE /api/v1/adgroups/{id}
func (s *Server) handleDeleteAdGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.adGroupFromPath(w, r)
	if !ok {
		return
	}

	if err := s.repo.DeleteAdGroup(r.Context(), group.ID); err != nil {
		s.sendStorageError(w, err, "ad group")
		return
	}
	s.log.Info().Uint("ad_group_id", group.ID).Msg("Ad group deleted")
	s.sendData(w, http.StatusOK, nil)
}

type adGroupDuplicateResult struct {
	AdGroup *models.AdGroup `json:"ad_group"`
	Ads     int             `json:"ads_copied"`
}

// handleDuplicateAdGroup handles POST /api/v1/adgroups/{id}/duplicate.
// The copy stays inside the same campaign.
func (s *Server) handleDuplicateAdGroup(w http.ResponseWriter, r *http.Request) {
	src, ok := s.adGroupFromPath(w, r)
	if !ok {
		return
	}

	name := src.Name + " (copy)"
	var req duplicateRequest
	if err := decodeBody(r, &req); err == nil && req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}

	ads, err := s.repo.ListAds(r.Context(), src.ID)
	if err != nil {
		s.sendStorageError(w, err, "ads")
		return
	}

	result := adGroupDuplicateResult{
		AdGroup: &models.AdGroup{
			CampaignID: src.CampaignID,
			Name:       name,
			Keywords:   cloneKeywords(src.Keywords),
			Status:     src.Status,
		},
	}
	err = s.repo.Transaction(r.Context(), func(tx storage.Repository) error {
		if err := tx.CreateAdGroup(r.Context(), result.AdGroup); err != nil {
			return err
		}
		for _, ad := range ads {
			dup := &models.Ad{
				AdGroupID:    result.AdGroup.ID,
				Headlines:    append(models.HeadlineList(nil), ad.Headlines...),
				Descriptions: append(models.StringSlice(nil), ad.Descriptions...),
				FinalURL:     ad.FinalURL,
				Status:       ad.Status,
			}
			if err := tx.CreateAd(r.Context(), dup); err != nil {
				return err
			}
			result.Ads++
		}
		return nil
	})
	if err != nil {
		s.sendStorageError(w, err, "ad group duplicate")
		return
	}
	s.sendData(w, http.StatusCreated, result)
}

type adRequest struct {
	Headlines    []models.Headline `json:"headlines"`
	Descriptions []string          `json:"descriptions"`
	FinalURL     *string           `json:"final_url"`
	Status       *string           `json:"status"`
}

func adStatusFrom(raw string) (models.AdStatus, bool) {
	switch models.AdStatus(raw) {
	case models.AdStatusActive, models.AdStatusPaused:
		return models.AdStatus(raw), true
	}
	return "", false
}

// validateHeadlines enforces the responsive search ad asset rules:
// at least 3 and at most 15 headlines, each within the character
// limit, with unknown categories defaulting to GENERAL
func validateHeadlines(in []models.Headline) (models.HeadlineList, string) {
	if len(in) < 3 {
		return nil, "at least 3 headlines required"
	}
	if len(in) > ai.MaxHeadlines {
		return nil, fmt.Sprintf("at most %d headlines allowed", ai.MaxHeadlines)
	}
	out := make(models.HeadlineList, 0, len(in))
	for i, h := range in {
		text := strings.TrimSpace(h.Text)
		if text == "" {
			return nil, fmt.Sprintf("headline %d has no text", i+1)
		}
		if n := len([]rune(text)); n > ai.HeadlineMaxChars {
			return nil, fmt.Sprintf("headline %q is %d chars (limit %d)", text, n, ai.HeadlineMaxChars)
		}
		category := h.Category
		switch category {
		case models.HeadlineCategoryKeyword, models.HeadlineCategoryValue, models.HeadlineCategoryCTA, models.HeadlineCategoryGeneral:
		default:
			category = models.HeadlineCategoryGeneral
		}
		out = append(out, models.Headline{Text: text, Category: category})
	}
	return out, ""
}

// validateDescriptions enforces at least 2 and at most 4 descriptions
// within the character limit
func validateDescriptions(in []string) (models.StringSlice, string) {
	if len(in) < 2 {
		return nil, "at least 2 descriptions required"
	}
	if len(in) > ai.MaxDescriptions {
		return nil, fmt.Sprintf("at most %d descriptions allowed", ai.MaxDescriptions)
	}
	out := make(models.StringSlice, 0, len(in))
	for i, d := range in {
		text := strings.TrimSpace(d)
		if text == "" {
			return nil, fmt.Sprintf("description %d has no text", i+1)
		}
		if n := len([]rune(text)); n > ai.DescriptionMaxChars {
			return nil, fmt.Sprintf("description %q is %d chars (limit %d)", text, n, ai.DescriptionMaxChars)
		}
		out = append(out, text)
	}
	return out, ""
}

// handleListAds handles GET /api/v1/adgroups/{id}/ads
func (s *Server) handleListAds(w http.ResponseWriter, r *http.Request) {
	group, ok := s.adGroupFromPath(w, r)
	if !ok {
		return
	}

	ads, err := s.repo.ListAds(r.Context(), group.ID)
	if err != nil {
		s.sendStorageError(w, err, "ads")
		return
	}
	s.sendList(w, ads, Meta{Count: len(ads)})
}

// handleCreateAd handles POST /api/v1/adgroups/{id}/ads
func (s *Server) handleCreateAd(w http.ResponseWriter, r *http.Request) {
	group, ok := s.adGroupFromPath(w, r)
	if !ok {
		return
	}

	var req adRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	ad := &models.Ad{AdGroupID: group.ID}

	headlines, problem := validateHeadlines(req.Headlines)
	if problem != "" {
		problems["headlines"] = problem
	} else {
		ad.Headlines = headlines
	}
	descriptions, problem := validateDescriptions(req.Descriptions)
	if problem != "" {
		problems["descriptions"] = problem
	} else {
		ad.Descriptions = descriptions
	}
	if req.FinalURL != nil {
		ad.FinalURL = strings.TrimSpace(*req.FinalURL)
	}
	if req.Status != nil {
		status, ok := adStatusFrom(*req.Status)
		if !ok {
			problems["status"] = "must be active or paused"
		} else {
			ad.Status = status
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid ad", problems)
		return
	}

	if err := s.repo.CreateAd(r.Context(), ad); err != nil {
		s.sendStorageError(w, err, "ad")
		return
	}
	s.sendData(w, http.StatusCreated, ad)
}

// handleGetAd handles GET /api/v1/ads/{id}
func (s *Server) handleGetAd(w http.ResponseWriter, r *http.Request) {
	ad, ok := s.adFromPath(w, r)
	if !ok {
		return
	}
	s.sendData(w, http.StatusOK, ad)
}

// handleUpdateAd handles PUT /api/v1/ads/{id}. Asset counts are
// checked here too: an update must not shrink an ad below the minimum
// the create enforced.
func (s *Server) handleUpdateAd(w http.ResponseWriter, r *http.Request) {
	ad, ok := s.adFromPath(w, r)
	if !ok {
		return
	}

	var req adRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	if req.Headlines != nil {
		headlines, problem := validateHeadlines(req.Headlines)
		if problem != "" {
			problems["headlines"] = problem
		} else {
			ad.Headlines = headlines
		}
	}
	if req.Descriptions != nil {
		descriptions, problem := validateDescriptions(req.Descriptions)
		if problem != "" {
			problems["descriptions"] = problem
		} else {
			ad.Descriptions = descriptions
		}
	}
	if req.FinalURL != nil {
		ad.FinalURL = strings.TrimSpace(*req.FinalURL)
	}
	if req.Status != nil {
		status, ok := adStatusFrom(*req.Status)
		if !ok {
			problems["status"] = "must be active or paused"
		} else {
			ad.Status = status
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid ad", problems)
		return
	}

	if err := s.repo.UpdateAd(r.Context(), ad); err != nil {
		s.sendStorageError(w, err, "ad")
		return
	}
	s.sendData(w, http.StatusOK, ad)
}

// handleDeleteAd handles DELETE /api/v1/ads/{id}
func (s *Server) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	ad, ok := s.adFromPath(w, r)
	if !ok {
		return
	}

	if err := s.repo.DeleteAd(r.Context(), ad.ID); err != nil {
		s.sendStorageError(w, err, "ad")
		return
	}
	s.sendData(w, http.StatusOK, nil)
}

// handleBulkAdStatus handles PUT /api/v1/ads/bulk/status
func (s *Server) handleBulkAdStatus(w http.ResponseWriter, r *http.Request) {
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
	status, ok := adStatusFrom(req.Status)
	if !ok {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid bulk update",
			map[string]string{"status": "must be active or paused"})
		return
	}

	if err := s.repo.BulkUpdateAdStatus(r.Context(), req.IDs, status); err != nil {
		s.sendStorageError(w, err, "ads")
		return
	}
	s.sendData(w, http.StatusOK, map[string]interface{}{
		"ids":    req.IDs,
		"status": status,
	})
}

// adGroupFromPath loads the ad group addressed by the {id} route
// parameter, answering the request itself when that fails
func (s *Server) adGroupFromPath(w http.ResponseWriter, r *http.Request) (*models.AdGroup, bool) {
	id, err := idParam(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return nil, false
	}
	group, err := s.repo.GetAdGroupByID(r.Context(), id)
	if err != nil {
		s.sendStorageError(w, err, "ad group")
		return nil, false
	}
	return group, true
}

func (s *Server) adFromPath(w http.ResponseWriter, r *http.Request) (*models.Ad, bool) {
	id, err := idParam(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return nil, false
	}
	ad, err := s.repo.GetAdByID(r.Context(), id)
	if err != nil {
		s.sendStorageError(w, err, "ad")
		return nil, false
	}
	return ad, true
}
