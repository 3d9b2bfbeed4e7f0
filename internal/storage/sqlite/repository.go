package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Campaign{},
		&models.AdGroup{},
		&models.Ad{},
		&models.NegativeKeyword{},
		&models.SearchTerm{},
		&models.PerformanceSnapshot{},
		&models.AssetPerformance{},
		&models.Recommendation{},
		&models.AutomationRule{},
		&models.AutomationExecution{},
		&models.OAuthToken{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn inside one database transaction
func (r *Repository) Transaction(ctx context.Context, fn func(storage.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// Campaign operations

func (r *Repository) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *Repository) GetCampaignByID(ctx context.Context, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).First(&campaign, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &campaign, nil
}

func (r *Repository) ListCampaigns(ctx context.Context, filter storage.CampaignFilter) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	query := r.db.WithContext(ctx).Model(&models.Campaign{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}

	// Ordering
	orderCol := "created_at"
	if filter.OrderBy != "" {
		orderCol = filter.OrderBy
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC")
	} else {
		query = query.Order(orderCol + " ASC")
	}

	// Pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *Repository) UpdateCampaign(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Save(campaign).Error
}

// DeleteCampaign removes a campaign together with its ad groups, ads,
// negative keywords and search terms in one transaction
func (r *Repository) DeleteCampaign(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var groupIDs []uint
		if err := tx.Model(&models.AdGroup{}).Where("campaign_id = ?", id).Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		if len(groupIDs) > 0 {
			if err := tx.Where("ad_group_id IN ?", groupIDs).Delete(&models.Ad{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&models.AdGroup{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&models.NegativeKeyword{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&models.SearchTerm{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Campaign{}, id).Error
	})
}

func (r *Repository) BulkUpdateCampaignStatus(ctx context.Context, ids []uint, status models.CampaignStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}

// Ad group operations

func (r *Repository) CreateAdGroup(ctx context.Context, group *models.AdGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *Repository) GetAdGroupByID(ctx context.Context, id uint) (*models.AdGroup, error) {
	var group models.AdGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &group, nil
}

func (r *Repository) ListAdGroups(ctx context.Context, campaignID uint) ([]*models.AdGroup, error) {
	var groups []*models.AdGroup
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *Repository) UpdateAdGroup(ctx context.Context, group *models.AdGroup) error {
	return r.db.WithContext(ctx).Save(group).Error
}

// DeleteAdGroup removes an ad group and its ads in one transaction
func (r *Repository) DeleteAdGroup(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ad_group_id = ?", id).Delete(&models.Ad{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AdGroup{}, id).Error
	})
}

// Ad operations

func (r *Repository) CreateAd(ctx context.Context, ad *models.Ad) error {
	return r.db.WithContext(ctx).Create(ad).Error
}

func (r *Repository) GetAdByID(ctx context.Context, id uint) (*models.Ad, error) {
	var ad models.Ad
	if err := r.db.WithContext(ctx).First(&ad, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &ad, nil
}

func (r *Repository) ListAds(ctx context.Context, adGroupID uint) ([]*models.Ad, error) {
	var ads []*models.Ad
	if err := r.db.WithContext(ctx).
		Where("ad_group_id = ?", adGroupID).
		Order("created_at ASC").
		Find(&ads).Error; err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *Repository) UpdateAd(ctx context.Context, ad *models.Ad) error {
	return r.db.WithContext(ctx).Save(ad).Error
}

func (r *Repository) DeleteAd(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Ad{}, id).Error
}

func (r *Repository) BulkUpdateAdStatus(ctx context.Context, ids []uint, status models.AdStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Ad{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}

// Negative keyword operations

func (r *Repository) CreateNegativeKeyword(ctx context.Context, negative *models.NegativeKeyword) error {
	return r.db.WithContext(ctx).Create(negative).Error
}

func (r *Repository) ListNegativeKeywords(ctx context.Context, campaignID uint) ([]*models.NegativeKeyword, error) {
	var negatives []*models.NegativeKeyword
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&negatives).Error; err != nil {
		return nil, err
	}
	return negatives, nil
}

func (r *Repository) DeleteNegativeKeyword(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.NegativeKeyword{}, id).Error
}

// Search term operations

func (r *Repository) CreateSearchTerm(ctx context.Context, term *models.SearchTerm) error {
	return r.db.WithContext(ctx).Create(term).Error
}

func (r *Repository) GetSearchTermByID(ctx context.Context, id uint) (*models.SearchTerm, error) {
	var term models.SearchTerm
	if err := r.db.WithContext(ctx).First(&term, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &term, nil
}

func (r *Repository) ListSearchTerms(ctx context.Context, filter storage.SearchTermFilter) ([]*models.SearchTerm, error) {
	var terms []*models.SearchTerm
	query := r.db.WithContext(ctx).Model(&models.SearchTerm{})

	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.AdGroupID != nil {
		query = query.Where("ad_group_id = ?", *filter.AdGroupID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MinImpressions != nil {
		query = query.Where("impressions >= ?", *filter.MinImpressions)
	}

	query = query.Order("impressions DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&terms).Error; err != nil {
		return nil, err
	}
	return terms, nil
}

func (r *Repository) UpdateSearchTerm(ctx context.Context, term *models.SearchTerm) error {
	return r.db.WithContext(ctx).Save(term).Error
}

// Performance operations

func (r *Repository) SavePerformanceSnapshot(ctx context.Context, snap *models.PerformanceSnapshot) error {
	// Upsert keyed by entity + date
	var existing models.PerformanceSnapshot
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND date = ?", snap.EntityType, snap.EntityID, snap.Date).
		First(&existing).Error; err == nil {
		snap.ID = existing.ID
	}
	return r.db.WithContext(ctx).Save(snap).Error
}

func (r *Repository) ListPerformanceSnapshots(ctx context.Context, filter storage.PerformanceFilter) ([]*models.PerformanceSnapshot, error) {
	var snaps []*models.PerformanceSnapshot
	query := r.db.WithContext(ctx).Model(&models.PerformanceSnapshot{})

	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.Since != nil {
		query = query.Where("date >= ?", *filter.Since)
	}

	query = query.Order("date DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Find(&snaps).Error; err != nil {
		return nil, err
	}
	return snaps, nil
}

func (r *Repository) CreateAssetPerformance(ctx context.Context, asset *models.AssetPerformance) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *Repository) ListAssetPerformanceByAd(ctx context.Context, adID uint) ([]*models.AssetPerformance, error) {
	var assets []*models.AssetPerformance
	if err := r.db.WithContext(ctx).
		Where("ad_id = ?", adID).
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// Recommendation operations

// CreateRecommendations inserts the whole batch in one transaction
func (r *Repository) CreateRecommendations(ctx context.Context, recs []*models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetRecommendationByID(ctx context.Context, id uint) (*models.Recommendation, error) {
	var rec models.Recommendation
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &rec, nil
}

func (r *Repository) ListRecommendations(ctx context.Context, filter storage.RecommendationFilter) ([]*models.Recommendation, error) {
	var recs []*models.Recommendation
	query := r.db.WithContext(ctx).Model(&models.Recommendation{})

	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.AutoApplyEligible != nil {
		query = query.Where("auto_apply_eligible = ?", *filter.AutoApplyEligible)
	}

	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *Repository) UpdateRecommendation(ctx context.Context, rec *models.Recommendation) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *Repository) ListPendingFingerprints(ctx context.Context) ([]string, error) {
	var fingerprints []string
	if err := r.db.WithContext(ctx).Model(&models.Recommendation{}).
		Where("status = ? AND fingerprint != ''", models.RecommendationStatusPending).
		Pluck("fingerprint", &fingerprints).Error; err != nil {
		return nil, err
	}
	return fingerprints, nil
}

// Automation rule operations

func (r *Repository) CreateAutomationRule(ctx context.Context, rule *models.AutomationRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *Repository) GetAutomationRuleByID(ctx context.Context, id uint) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := r.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &rule, nil
}

func (r *Repository) ListAutomationRules(ctx context.Context, filter storage.RuleFilter) ([]*models.AutomationRule, error) {
	var rules []*models.AutomationRule
	query := r.db.WithContext(ctx).Model(&models.AutomationRule{})

	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}
	if filter.TriggerType != nil {
		query = query.Where("trigger_type = ?", *filter.TriggerType)
	}
	if filter.ActionType != nil {
		query = query.Where("action_type = ?", *filter.ActionType)
	}

	query = query.Order("created_at ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Repository) UpdateAutomationRule(ctx context.Context, rule *models.AutomationRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *Repository) DeleteAutomationRule(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.AutomationRule{}, id).Error
}

func (r *Repository) GetDueRules(ctx context.Context, before time.Time) ([]*models.AutomationRule, error) {
	var rules []*models.AutomationRule
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND trigger_type = ? AND next_run_at <= ?", true, models.TriggerScheduled, before).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Automation execution log

func (r *Repository) CreateExecution(ctx context.Context, exec *models.AutomationExecution) error {
	return r.db.WithContext(ctx).Create(exec).Error
}

func (r *Repository) UpdateExecution(ctx context.Context, exec *models.AutomationExecution) error {
	return r.db.WithContext(ctx).Save(exec).Error
}

func (r *Repository) ListExecutions(ctx context.Context, filter storage.ExecutionFilter) ([]*models.AutomationExecution, error) {
	var execs []*models.AutomationExecution
	query := r.db.WithContext(ctx).Model(&models.AutomationExecution{})

	if filter.RuleID != nil {
		query = query.Where("rule_id = ?", *filter.RuleID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	query = query.Order("started_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&execs).Error; err != nil {
		return nil, err
	}
	return execs, nil
}

func (r *Repository) CountExecutions(ctx context.Context, filter storage.ExecutionFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AutomationExecution{})

	if filter.RuleID != nil {
		query = query.Where("rule_id = ?", *filter.RuleID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// OAuth token operations

func (r *Repository) SaveToken(ctx context.Context, token *models.OAuthToken) error {
	// Upsert - update if exists, create if not
	var existing models.OAuthToken
	if err := r.db.WithContext(ctx).Where("provider = ?", token.Provider).First(&existing).Error; err == nil {
		token.ID = existing.ID
	}
	return r.db.WithContext(ctx).Save(token).Error
}

func (r *Repository) GetToken(ctx context.Context, provider string) (*models.OAuthToken, error) {
	var token models.OAuthToken
	if err := r.db.WithContext(ctx).Where("provider = ?", provider).First(&token).Error; err != nil {
		return nil, translateErr(err)
	}
	return &token, nil
}

func (r *Repository) DeleteToken(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).Where("provider = ?", provider).Delete(&models.OAuthToken{}).Error
}
