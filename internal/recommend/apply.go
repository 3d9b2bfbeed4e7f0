package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

// ApplyOutcome reports what happened when a recommendation was applied.
// Failures are part of the outcome, not errors: a missing or ineligible
// recommendation must not abort a bulk apply sweep.
type ApplyOutcome struct {
	RecommendationID uint     `json:"recommendation_id"`
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	Changes          []string `json:"changes,omitempty"`
}

// Apply executes the mutation described by the recommendation's
// action_required payload and marks the recommendation applied, both
// inside one transaction. The returned error is reserved for storage
// failures while loading; every other failure lands in the outcome.
func (e *Engine) Apply(ctx context.Context, id uint) (*ApplyOutcome, error) {
	outcome := &ApplyOutcome{RecommendationID: id}

	rec, err := e.repo.GetRecommendationByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			outcome.Message = fmt.Sprintf("recommendation %d not found", id)
			return outcome, nil
		}
		return nil, fmt.Errorf("loading recommendation %d: %w", id, err)
	}

	if rec.Status != models.RecommendationStatusPending {
		outcome.Message = fmt.Sprintf("recommendation %d is %s, not pending", id, rec.Status)
		return outcome, nil
	}
	if !rec.AutoApplyEligible {
		outcome.Message = fmt.Sprintf("recommendation %d requires manual review", id)
		return outcome, nil
	}

	action := rec.ActionRequired.String("action")
	var changes []string
	err = e.repo.Transaction(ctx, func(tx storage.Repository) error {
		var txErr error
		switch action {
		case "add_negative_keyword":
			changes, txErr = applyAddNegative(ctx, tx, rec)
		case "add_keyword":
			changes, txErr = applyAddKeyword(ctx, tx, rec)
		case "remove_asset":
			// Asset removal happens in the external account. Applying
			// records the decision so exports stop carrying the asset.
			changes = []string{fmt.Sprintf("asset %q flagged for removal", rec.ActionRequired.String("asset_text"))}
		default:
			return fmt.Errorf("unsupported action %q", action)
		}
		if txErr != nil {
			return txErr
		}

		now := time.Now()
		rec.Status = models.RecommendationStatusApplied
		rec.AppliedAt = &now
		return tx.UpdateRecommendation(ctx, rec)
	})
	if err != nil {
		e.log.Warn().
			Err(err).
			Uint("recommendation_id", id).
			Str("action", action).
			Msg("Failed to apply recommendation")
		outcome.Message = fmt.Sprintf("apply failed: %v", err)
		return outcome, nil
	}

	e.log.Info().
		Uint("recommendation_id", id).
		Str("action", action).
		Int("changes", len(changes)).
		Msg("Recommendation applied")

	outcome.Success = true
	outcome.Message = fmt.Sprintf("recommendation %d applied", id)
	outcome.Changes = changes
	return outcome, nil
}

func applyAddNegative(ctx context.Context, tx storage.Repository, rec *models.Recommendation) ([]string, error) {
	if rec.CampaignID == nil {
		return nil, errors.New("action has no campaign")
	}
	keyword := rec.ActionRequired.String("keyword")
	if keyword == "" {
		return nil, errors.New("action has no keyword")
	}

	negative := &models.NegativeKeyword{
		CampaignID:  *rec.CampaignID,
		KeywordText: keyword,
		MatchType:   models.MatchTypeExact,
		Level:       models.NegativeLevelCampaign,
		Source:      models.KeywordSourceAutomated,
	}
	if mt := rec.ActionRequired.String("match_type"); mt != "" {
		negative.MatchType = models.MatchType(mt)
	}
	if rec.ActionRequired.String("level") == string(models.NegativeLevelAdGroup) {
		negative.Level = models.NegativeLevelAdGroup
		if groupID := uint(rec.ActionRequired.Float("ad_group_id")); groupID > 0 {
			negative.AdGroupID = &groupID
		}
	}
	if err := tx.CreateNegativeKeyword(ctx, negative); err != nil {
		return nil, fmt.Errorf("creating negative keyword: %w", err)
	}
	changes := []string{fmt.Sprintf("added %s negative %q at %s level", negative.MatchType, keyword, negative.Level)}

	termChange, err := markSearchTerm(ctx, tx, rec, models.SearchTermStatusAddedAsNegative)
	if err != nil {
		return nil, err
	}
	if termChange != "" {
		changes = append(changes, termChange)
	}
	return changes, nil
}

func applyAddKeyword(ctx context.Context, tx storage.Repository, rec *models.Recommendation) ([]string, error) {
	keyword := rec.ActionRequired.String("keyword")
	if keyword == "" {
		return nil, errors.New("action has no keyword")
	}
	groupID := uint(rec.ActionRequired.Float("ad_group_id"))
	if groupID == 0 {
		return nil, errors.New("action has no ad group")
	}

	group, err := tx.GetAdGroupByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading ad group %d: %w", groupID, err)
	}

	var changes []string
	if group.Keywords.Contains(keyword) {
		changes = append(changes, fmt.Sprintf("keyword %q already present in ad group %q", keyword, group.Name))
	} else {
		group.Keywords = append(group.Keywords, models.Keyword{Text: keyword})
		if err := tx.UpdateAdGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("updating ad group %d: %w", groupID, err)
		}
		changes = append(changes, fmt.Sprintf("added keyword %q to ad group %q", keyword, group.Name))
	}

	termChange, err := markSearchTerm(ctx, tx, rec, models.SearchTermStatusAddedAsPositive)
	if err != nil {
		return nil, err
	}
	if termChange != "" {
		changes = append(changes, termChange)
	}
	return changes, nil
}

// markSearchTerm flips the originating search term's status when the
// action payload references one. Recommendations raised outside query
// mining carry no search_term_id and skip this step.
func markSearchTerm(ctx context.Context, tx storage.Repository, rec *models.Recommendation, status models.SearchTermStatus) (string, error) {
	termID := uint(rec.ActionRequired.Float("search_term_id"))
	if termID == 0 {
		return "", nil
	}
	term, err := tx.GetSearchTermByID(ctx, termID)
	if err != nil {
		return "", fmt.Errorf("loading search term %d: %w", termID, err)
	}
	term.Status = status
	if err := tx.UpdateSearchTerm(ctx, term); err != nil {
		return "", fmt.Errorf("updating search term %d: %w", termID, err)
	}
	return fmt.Sprintf("search term %d marked %s", termID, status), nil
}
