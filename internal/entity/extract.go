// Package entity derives a small fixed vocabulary (brand, competitor,
// challenge, industry) from free-text scenario descriptions and builds
// old→new substitution maps from two such derivations.
//
// The rules are ordered, literal heuristics. Reproducibility matters more
// than linguistic coverage here: rule order and the literal tables are part
// of the contract and must not be reordered or extended casually.
package entity

import (
	"regexp"
	"strings"
)

var (
	brandPattern      = regexp.MustCompile(`([A-Z][a-zA-Z]+(?:'s)?)\s+(?:is|faces|sees|'s)`)
	competitorPattern = regexp.MustCompile(`(?:after|when)\s+([A-Z][a-zA-Z]+(?:'s)?)`)
)

// Entities holds the extracted vocabulary. Empty fields mean the rule did
// not match; that is normal, not an error.
type Entities struct {
	Brand      string `json:"brand,omitempty"`
	Competitor string `json:"competitor,omitempty"`
	Challenge  string `json:"challenge,omitempty"`
	Industry   string `json:"industry,omitempty"`
}

// Extract applies the extraction rules to a scenario description. It never
// fails; unmatched fields stay empty.
func Extract(text string) Entities {
	var e Entities

	if m := brandPattern.FindStringSubmatch(text); m != nil {
		e.Brand = strings.ReplaceAll(m[1], "'s", "")
	}
	if m := competitorPattern.FindStringSubmatch(text); m != nil {
		e.Competitor = strings.ReplaceAll(m[1], "'s", "")
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "$1 menu") || strings.Contains(text, "$1 value menu"):
		e.Challenge = "$1 value menu"
	case strings.Contains(text, "Buy One Get One Free") || strings.Contains(text, "BOGO"):
		e.Challenge = "BOGO promotion"
	case strings.Contains(lower, "discount"):
		e.Challenge = "discount promotion"
	}

	switch {
	case strings.Contains(lower, "restaurant") || strings.Contains(lower, "fast-casual") || strings.Contains(lower, "food"):
		e.Industry = "fast-casual restaurant"
	case strings.Contains(lower, "fashion") || strings.Contains(lower, "retail"):
		e.Industry = "fashion retail"
	case strings.Contains(lower, "airline"):
		e.Industry = "airline"
	case strings.Contains(lower, "hotel"):
		e.Industry = "hospitality"
	}

	return e
}

// BuildMap pairs each field present in both extractions into an old→new
// substitution table. Fields present on only one side are dropped; the empty
// map is a valid result.
func BuildMap(current, target Entities) map[string]string {
	m := make(map[string]string)

	if current.Brand != "" && target.Brand != "" {
		m[current.Brand] = target.Brand
	}
	if current.Competitor != "" && target.Competitor != "" {
		m[current.Competitor] = target.Competitor
	}
	if current.Challenge != "" && target.Challenge != "" {
		m[current.Challenge] = target.Challenge
	}
	if current.Industry != "" && target.Industry != "" {
		m[current.Industry] = target.Industry
	}

	return m
}
