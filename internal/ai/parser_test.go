package ai

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/adpilot/internal/models"
)

func TestParseAdCopyWellFormed(t *testing.T) {
	var b strings.Builder
	b.WriteString("HEADLINES:\n")
	categories := []string{"KEYWORD", "VALUE", "CTA", "GENERAL"}
	for i := 1; i <= 15; i++ {
		cat := categories[(i-1)%len(categories)]
		fmt.Fprintf(&b, "%d. [%s] Headline number %d (%d chars)\n", i, cat, i, 18)
	}
	b.WriteString("\nDESCRIPTIONS:\n")
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&b, "%d. Description line number %d with some detail. (44 chars)\n", i, i)
	}

	parsed, err := ParseAdCopy(b.String())
	if err != nil {
		t.Fatalf("ParseAdCopy: %v", err)
	}
	if len(parsed.Headlines) != 15 {
		t.Errorf("headlines = %d, want 15", len(parsed.Headlines))
	}
	if len(parsed.Descriptions) != 4 {
		t.Errorf("descriptions = %d, want 4", len(parsed.Descriptions))
	}
	if parsed.Headlines[0].Category != models.HeadlineCategoryKeyword {
		t.Errorf("headline 1 category = %q, want KEYWORD", parsed.Headlines[0].Category)
	}
	if parsed.Headlines[2].Category != models.HeadlineCategoryCTA {
		t.Errorf("headline 3 category = %q, want CTA", parsed.Headlines[2].Category)
	}
	if parsed.Headlines[0].Text != "Headline number 1" {
		t.Errorf("headline 1 text = %q", parsed.Headlines[0].Text)
	}
	if len(parsed.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", parsed.Warnings)
	}
}

func TestParseAdCopyLenientMinimum(t *testing.T) {
	response := "HEADLINES:\nJust One Headline\n\nDESCRIPTIONS:\nA single description without any numbering.\n"

	parsed, err := ParseAdCopy(response)
	if err != nil {
		t.Fatalf("ParseAdCopy: %v", err)
	}
	if len(parsed.Headlines) != 1 || len(parsed.Descriptions) != 1 {
		t.Fatalf("got %d headlines, %d descriptions, want 1 each",
			len(parsed.Headlines), len(parsed.Descriptions))
	}
	if parsed.Headlines[0].Category != models.HeadlineCategoryGeneral {
		t.Errorf("untagged headline category = %q, want GENERAL", parsed.Headlines[0].Category)
	}
}

func TestParseAdCopyLeniency(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		headlines []string
		warnings  int
	}{
		{
			name:      "char note stripped",
			response:  "HEADLINES:\n1. Free Shipping Today (18 chars)\n",
			headlines: []string{"Free Shipping Today"},
		},
		{
			name:      "paren number prefix",
			response:  "HEADLINES:\n1) Shop The Sale\n",
			headlines: []string{"Shop The Sale"},
		},
		{
			name:      "over limit kept with warning",
			response:  "HEADLINES:\n1. This Headline Is Definitely Much Too Long For Google\n",
			headlines: []string{"This Headline Is Definitely Much Too Long For Google"},
			warnings:  1,
		},
		{
			name:      "trailing parens kept when not a char note",
			response:  "HEADLINES:\n1. Shoes (All Sizes)\n",
			headlines: []string{"Shoes (All Sizes)"},
		},
		{
			name:      "markdown section header",
			response:  "**Headlines:**\n1. [CTA] Order Online Now\n",
			headlines: []string{"Order Online Now"},
		},
		{
			name:      "preamble ignored",
			response:  "Here is the copy you asked for.\n\nHEADLINES:\n1. Local Experts\n",
			headlines: []string{"Local Experts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseAdCopy(tt.response)
			if err != nil {
				t.Fatalf("ParseAdCopy: %v", err)
			}
			if len(parsed.Headlines) != len(tt.headlines) {
				t.Fatalf("headlines = %d, want %d", len(parsed.Headlines), len(tt.headlines))
			}
			for i, want := range tt.headlines {
				if parsed.Headlines[i].Text != want {
					t.Errorf("headline %d = %q, want %q", i, parsed.Headlines[i].Text, want)
				}
			}
			if len(parsed.Warnings) != tt.warnings {
				t.Errorf("warnings = %d (%v), want %d", len(parsed.Warnings), parsed.Warnings, tt.warnings)
			}
		})
	}
}

func TestParseAdCopyEmptyFails(t *testing.T) {
	for _, response := range []string{
		"",
		"Sorry, I cannot help with that.",
		"HEADLINES:\n\nDESCRIPTIONS:\n",
	} {
		if _, err := ParseAdCopy(response); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("ParseAdCopy(%q) err = %v, want ErrEmptyResponse", response, err)
		}
	}
}

func TestParseAdCopyHeadlinesOnlySucceeds(t *testing.T) {
	parsed, err := ParseAdCopy("HEADLINES:\n1. Only Headlines Here\n")
	if err != nil {
		t.Fatalf("ParseAdCopy: %v", err)
	}
	if len(parsed.Headlines) != 1 || len(parsed.Descriptions) != 0 {
		t.Fatalf("got %d/%d, want 1 headline, 0 descriptions",
			len(parsed.Headlines), len(parsed.Descriptions))
	}
}

func TestParseKeywords(t *testing.T) {
	response := `BROAD MATCH:
1. running shoes
2. trail runners

PHRASE MATCH:
1. "buy running shoes"

EXACT MATCH:
1. [running shoes online]

NEGATIVE:
1. free
2. jobs
`
	parsed, err := ParseKeywords(response)
	if err != nil {
		t.Fatalf("ParseKeywords: %v", err)
	}
	if len(parsed.Broad) != 2 || parsed.Broad[0] != "running shoes" {
		t.Errorf("broad = %v", parsed.Broad)
	}
	if len(parsed.Phrase) != 1 || parsed.Phrase[0] != "buy running shoes" {
		t.Errorf("phrase = %v (quotes should be stripped)", parsed.Phrase)
	}
	if len(parsed.Exact) != 1 || parsed.Exact[0] != "running shoes online" {
		t.Errorf("exact = %v (brackets should be stripped)", parsed.Exact)
	}
	if len(parsed.Negative) != 2 {
		t.Errorf("negative = %v", parsed.Negative)
	}
}

func TestParseKeywordsEmptyFails(t *testing.T) {
	if _, err := ParseKeywords("no sections at all"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}
