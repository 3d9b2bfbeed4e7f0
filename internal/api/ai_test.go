package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/models"
)

func TestGenerateAdCopy(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/ai/adcopy", map[string]interface{}{
		"business_description": "Online store for trail running shoes",
		"keywords":             []string{"trail shoes"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result ai.CopyResult
	unmarshalData(t, decodeEnvelope(t, rec), &result)
	if len(result.Headlines) != 4 {
		t.Fatalf("Headlines = %d, want 4", len(result.Headlines))
	}
	if result.Headlines[0].Category != models.HeadlineCategoryKeyword {
		t.Errorf("Category = %q, want KEYWORD", result.Headlines[0].Category)
	}
	if len(result.Descriptions) != 2 {
		t.Errorf("Descriptions = %d, want 2", len(result.Descriptions))
	}
	if result.Provider != "fake" {
		t.Errorf("Provider = %q, want fake", result.Provider)
	}
}

func TestGenerateAdCopyValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/ai/adcopy", map[string]interface{}{})
	env := requireError(t, rec, http.StatusBadRequest, codeValidation)
	details, _ := env.Error.Details.(map[string]interface{})
	if _, found := details["business_description"]; !found {
		t.Error("Details missing field business_description")
	}
}

func TestGenerateAdCopyProviderError(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.err = &ai.ProviderError{
		Provider: "fake",
		Code:     ai.ErrCodeRateLimit,
		Err:      errors.New("http 429"),
	}

	rec := ts.do(t, "POST", "/api/v1/ai/adcopy", map[string]interface{}{
		"business_description": "Trail running shoes",
	})
	env := requireError(t, rec, http.StatusBadGateway, string(ai.ErrCodeRateLimit))
	if env.Error.Message == "" {
		t.Error("Expected a user-facing message")
	}
}

func TestGenerateAdCopyProviderTimeout(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.err = &ai.ProviderError{
		Provider: "fake",
		Code:     ai.ErrCodeTimeout,
		Err:      errors.New("deadline exceeded"),
	}

	rec := ts.do(t, "POST", "/api/v1/ai/adcopy", map[string]interface{}{
		"business_description": "Trail running shoes",
	})
	requireError(t, rec, http.StatusGatewayTimeout, string(ai.ErrCodeTimeout))
}

func TestGenerateAdCopyUnparsableResponse(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.response = "sorry, no structured output today"

	rec := ts.do(t, "POST", "/api/v1/ai/adcopy", map[string]interface{}{
		"business_description": "Trail running shoes",
	})
	requireError(t, rec, http.StatusBadGateway, string(ai.ErrCodeProvider))
}

func TestGenerateAdCopyUnknownProvider(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/ai/adcopy", map[string]interface{}{
		"business_description": "Trail running shoes",
		"provider":             "nonexistent",
	})
	requireError(t, rec, http.StatusBadRequest, codeValidation)
}

func TestGenerateKeywords(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.response = sampleKeywordResponse

	rec := ts.do(t, "POST", "/api/v1/ai/keywords", map[string]interface{}{
		"business_description": "Online store for trail running shoes",
		"seed_keywords":        []string{"running shoes"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result ai.KeywordResult
	unmarshalData(t, decodeEnvelope(t, rec), &result)
	if len(result.Broad) != 2 {
		t.Errorf("Broad = %v, want 2 entries", result.Broad)
	}
	if len(result.Phrase) != 1 || len(result.Exact) != 1 {
		t.Errorf("Phrase/Exact = %v/%v, want 1 each", result.Phrase, result.Exact)
	}
	if len(result.Negative) != 2 {
		t.Errorf("Negative = %v, want 2 entries", result.Negative)
	}
}

func TestListProviders(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/v1/ai/providers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	var providers []ai.ProviderInfo
	unmarshalData(t, decodeEnvelope(t, rec), &providers)
	if len(providers) != 1 {
		t.Fatalf("Providers = %d, want 1", len(providers))
	}
	if providers[0].Name != "fake" || !providers[0].Available || !providers[0].Default {
		t.Errorf("Provider = %+v, want available default fake", providers[0])
	}
}
