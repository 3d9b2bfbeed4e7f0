package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/adpilot/internal/models"
)

// Character limits Google enforces on RSA assets. Lines over the limit
// are kept and reported as warnings, not dropped.
const (
	HeadlineMaxChars    = 30
	DescriptionMaxChars = 90
)

// ErrEmptyResponse means the response contained no usable copy at all
var ErrEmptyResponse = errors.New("no headlines or descriptions recovered from response")

// ParsedCopy is the structured result of parsing a copy response
type ParsedCopy struct {
	Headlines    []models.Headline
	Descriptions []string
	Warnings     []string
}

// Response line grammar:
//
//	line     = [number] [category] text [charnote]
//	number   = digits ("." | ")")
//	category = "[" ("KEYWORD"|"VALUE"|"CTA"|"GENERAL") "]"
//	charnote = "(" digits " chars" ")"
//
// Sections are introduced by a HEADLINES: or DESCRIPTIONS: header line
// (case-insensitive, optional markdown bold markers).
var (
	sectionRe  = regexp.MustCompile(`(?i)^\s*\**\s*(headlines?|descriptions?)\s*:?\s*\**\s*$`)
	copyLineRe = regexp.MustCompile(`^\s*(?:\d+\s*[.)]\s*)?(?:\[(KEYWORD|VALUE|CTA|GENERAL)\]\s*)?(.*?)(?:\s*\(\s*\d+\s*chars?\s*\))?\s*$`)
)

// ParseAdCopy extracts headlines and descriptions from an LLM response.
// Parsing is lenient: missing category tags default to GENERAL,
// character-count annotations are stripped, over-limit lines produce
// warnings. It fails only when nothing at all could be recovered.
func ParseAdCopy(response string) (*ParsedCopy, error) {
	parsed := &ParsedCopy{}

	section := ""
	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimRight(raw, "\r")

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			name := strings.ToLower(m[1])
			if strings.HasPrefix(name, "headline") {
				section = "headlines"
			} else {
				section = "descriptions"
			}
			continue
		}
		if section == "" || strings.TrimSpace(line) == "" {
			continue
		}

		m := copyLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		category, text := m[1], strings.TrimSpace(m[2])
		if text == "" {
			continue
		}

		switch section {
		case "headlines":
			if category == "" {
				category = string(models.HeadlineCategoryGeneral)
			}
			if n := len([]rune(text)); n > HeadlineMaxChars {
				parsed.Warnings = append(parsed.Warnings,
					fmt.Sprintf("headline %q is %d chars (limit %d)", text, n, HeadlineMaxChars))
			}
			parsed.Headlines = append(parsed.Headlines, models.Headline{
				Text:     text,
				Category: models.HeadlineCategory(category),
			})
		case "descriptions":
			if n := len([]rune(text)); n > DescriptionMaxChars {
				parsed.Warnings = append(parsed.Warnings,
					fmt.Sprintf("description %q is %d chars (limit %d)", text, n, DescriptionMaxChars))
			}
			parsed.Descriptions = append(parsed.Descriptions, text)
		}
	}

	if len(parsed.Headlines) == 0 && len(parsed.Descriptions) == 0 {
		return nil, ErrEmptyResponse
	}
	return parsed, nil
}

// Keyword section headers: BROAD MATCH:, PHRASE MATCH:, EXACT MATCH:,
// NEGATIVE: (again tolerant of markdown markers)
var keywordSectionRe = regexp.MustCompile(`(?i)^\s*\**\s*(broad|phrase|exact|negative)(?:\s+match)?(?:\s+keywords?)?\s*:?\s*\**\s*$`)

// ParsedKeywords is the structured result of parsing a keyword response
type ParsedKeywords struct {
	Broad    []string
	Phrase   []string
	Exact    []string
	Negative []string
}

// Empty returns true when no section yielded any keyword
func (p *ParsedKeywords) Empty() bool {
	return len(p.Broad)+len(p.Phrase)+len(p.Exact)+len(p.Negative) == 0
}

// ParseKeywords extracts match-type keyword buckets from an LLM
// response. Surrounding quotes and brackets are stripped so match-type
// formatting in the response does not leak into the stored text.
func ParseKeywords(response string) (*ParsedKeywords, error) {
	parsed := &ParsedKeywords{}

	section := ""
	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimRight(raw, "\r")

		if m := keywordSectionRe.FindStringSubmatch(line); m != nil {
			section = strings.ToLower(m[1])
			continue
		}
		if section == "" || strings.TrimSpace(line) == "" {
			continue
		}

		m := copyLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		text = strings.Trim(text, `"[]`)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		switch section {
		case "broad":
			parsed.Broad = append(parsed.Broad, text)
		case "phrase":
			parsed.Phrase = append(parsed.Phrase, text)
		case "exact":
			parsed.Exact = append(parsed.Exact, text)
		case "negative":
			parsed.Negative = append(parsed.Negative, text)
		}
	}

	if parsed.Empty() {
		return nil, ErrEmptyResponse
	}
	return parsed, nil
}
