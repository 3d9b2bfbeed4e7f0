package storage

import (
	"context"
	"errors"
	"time"

	"github.com/adpilot/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
// Implementations map their driver's not-found error onto this.
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for data persistence
type Repository interface {
	// Campaign operations
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaignByID(ctx context.Context, id uint) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]*models.Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *models.Campaign) error
	DeleteCampaign(ctx context.Context, id uint) error
	BulkUpdateCampaignStatus(ctx context.Context, ids []uint, status models.CampaignStatus) error

	// Ad group operations
	CreateAdGroup(ctx context.Context, group *models.AdGroup) error
	GetAdGroupByID(ctx context.Context, id uint) (*models.AdGroup, error)
	ListAdGroups(ctx context.Context, campaignID uint) ([]*models.AdGroup, error)
	UpdateAdGroup(ctx context.Context, group *models.AdGroup) error
	DeleteAdGroup(ctx context.Context, id uint) error

	// Ad operations
	CreateAd(ctx context.Context, ad *models.Ad) error
	GetAdByID(ctx context.Context, id uint) (*models.Ad, error)
	ListAds(ctx context.Context, adGroupID uint) ([]*models.Ad, error)
	UpdateAd(ctx context.Context, ad *models.Ad) error
	DeleteAd(ctx context.Context, id uint) error
	BulkUpdateAdStatus(ctx context.Context, ids []uint, status models.AdStatus) error

	// Negative keyword operations
	CreateNegativeKeyword(ctx context.Context, negative *models.NegativeKeyword) error
	ListNegativeKeywords(ctx context.Context, campaignID uint) ([]*models.NegativeKeyword, error)
	DeleteNegativeKeyword(ctx context.Context, id uint) error

	// Search term operations
	CreateSearchTerm(ctx context.Context, term *models.SearchTerm) error
	GetSearchTermByID(ctx context.Context, id uint) (*models.SearchTerm, error)
	ListSearchTerms(ctx context.Context, filter SearchTermFilter) ([]*models.SearchTerm, error)
	UpdateSearchTerm(ctx context.Context, term *models.SearchTerm) error

	// Performance operations
	SavePerformanceSnapshot(ctx context.Context, snap *models.PerformanceSnapshot) error
	ListPerformanceSnapshots(ctx context.Context, filter PerformanceFilter) ([]*models.PerformanceSnapshot, error)
	CreateAssetPerformance(ctx context.Context, asset *models.AssetPerformance) error
	ListAssetPerformanceByAd(ctx context.Context, adID uint) ([]*models.AssetPerformance, error)

	// Recommendation operations
	CreateRecommendations(ctx context.Context, recs []*models.Recommendation) error
	GetRecommendationByID(ctx context.Context, id uint) (*models.Recommendation, error)
	ListRecommendations(ctx context.Context, filter RecommendationFilter) ([]*models.Recommendation, error)
	UpdateRecommendation(ctx context.Context, rec *models.Recommendation) error
	ListPendingFingerprints(ctx context.Context) ([]string, error)

	// Automation rule operations
	CreateAutomationRule(ctx context.Context, rule *models.AutomationRule) error
	GetAutomationRuleByID(ctx context.Context, id uint) (*models.AutomationRule, error)
	ListAutomationRules(ctx context.Context, filter RuleFilter) ([]*models.AutomationRule, error)
	UpdateAutomationRule(ctx context.Context, rule *models.AutomationRule) error
	DeleteAutomationRule(ctx context.Context, id uint) error
	GetDueRules(ctx context.Context, before time.Time) ([]*models.AutomationRule, error)

	// Automation execution log
	CreateExecution(ctx context.Context, exec *models.AutomationExecution) error
	UpdateExecution(ctx context.Context, exec *models.AutomationExecution) error
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*models.AutomationExecution, error)
	CountExecutions(ctx context.Context, filter ExecutionFilter) (int64, error)

	// OAuth token operations
	SaveToken(ctx context.Context, token *models.OAuthToken) error
	GetToken(ctx context.Context, provider string) (*models.OAuthToken, error)
	DeleteToken(ctx context.Context, provider string) error

	// Transaction runs fn against a repository bound to one database
	// transaction; any error rolls the whole batch back
	Transaction(ctx context.Context, fn func(Repository) error) error

	// Maintenance
	Close() error
	Migrate() error
}

// CampaignFilter defines filtering options for campaigns
type CampaignFilter struct {
	Status    *models.CampaignStatus
	IDs       []uint
	Limit     int
	Offset    int
	OrderBy   string // "name", "created_at"
	OrderDesc bool
}

// SearchTermFilter defines filtering options for search terms
type SearchTermFilter struct {
	CampaignID     *uint
	AdGroupID      *uint
	Status         *models.SearchTermStatus
	MinImpressions *int
	Limit          int
	Offset         int
}

// PerformanceFilter defines filtering options for performance snapshots
type PerformanceFilter struct {
	EntityType *models.EntityType
	EntityID   *uint
	Since      *time.Time
	Limit      int
}

// RecommendationFilter defines filtering options for recommendations
type RecommendationFilter struct {
	CampaignID        *uint
	Status            *models.RecommendationStatus
	Type              *models.RecommendationType
	AutoApplyEligible *bool
	Limit             int
	Offset            int
}

// RuleFilter defines filtering options for automation rules
type RuleFilter struct {
	Enabled     *bool
	TriggerType *models.TriggerType
	ActionType  *models.AutomationAction
	Limit       int
	Offset      int
}

// ExecutionFilter defines filtering options for execution history
type ExecutionFilter struct {
	RuleID *uint
	Status *models.ExecutionStatus
	Limit  int
	Offset int
}

// DefaultCampaignFilter returns a filter with sensible defaults
func DefaultCampaignFilter() CampaignFilter {
	return CampaignFilter{
		Limit:     50,
		OrderBy:   "created_at",
		OrderDesc: true,
	}
}

// DefaultRecommendationFilter returns a filter with sensible defaults
func DefaultRecommendationFilter() RecommendationFilter {
	return RecommendationFilter{
		Limit: 100,
	}
}
