package anthropic

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// Pre-compiled regex patterns for JSON extraction from model replies.
var (
	// jsonBlockPattern matches a JSON object inside a markdown code block.
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object out of a model reply and decodes it.
// Markdown code fences, // comments, and trailing commas are tolerated.
func ExtractJSON(content string) (map[string]any, error) {
	raw := extractRawObject(content)
	if raw == "" {
		return nil, eris.New("anthropic: no JSON object in reply")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err == nil {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &doc); err != nil {
		return nil, eris.Wrap(err, "anthropic: decode reply")
	}
	return doc, nil
}

// extractRawObject extracts the raw object text before cleaning.
func extractRawObject(content string) string {
	// Try markdown code block first
	if matches := jsonBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}
	// Fallback to raw JSON object
	return jsonObjectPattern.FindString(content)
}

// cleanJSON removes JavaScript-style comments and trailing commas.
// Models commonly produce these invalid JSON artifacts.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")

	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values so URLs like "https://example.com" survive.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
