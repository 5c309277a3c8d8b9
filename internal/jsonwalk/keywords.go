package jsonwalk

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// KeywordHit records a keyword found at a string leaf.
type KeywordHit struct {
	Path    string `json:"path"`
	Keyword string `json:"keyword"`
	Context string `json:"context"`
}

const contextRunes = 100

// Fold lower-cases s using full Unicode case folding, suitable for
// caseless containment checks.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// FindKeywords walks doc and reports every string leaf containing any of
// the keywords, case-folded. A subtree is skipped as soon as its path
// contains one of excludePaths, so a bare field name shields the whole
// subtree wherever it sits (e.g. "scenarioOptions" excludes
// "topicWizardData.scenarioOptions[0]").
func FindKeywords(doc any, keywords []string, excludePaths []string) []KeywordHit {
	if len(keywords) == 0 {
		return nil
	}
	folded := make([]string, len(keywords))
	for i, kw := range keywords {
		folded[i] = Fold(kw)
	}
	var hits []KeywordHit
	searchValue(doc, "", keywords, folded, excludePaths, &hits)
	return hits
}

func searchValue(v any, path string, keywords, folded, exclude []string, hits *[]KeywordHit) {
	for _, ex := range exclude {
		if ex != "" && strings.Contains(path, ex) {
			return
		}
	}

	switch tv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			searchValue(tv[k], childPath(path, k), keywords, folded, exclude, hits)
		}
	case []any:
		for i, item := range tv {
			searchValue(item, indexPath(path, i), keywords, folded, exclude, hits)
		}
	case string:
		haystack := Fold(tv)
		for i, kw := range keywords {
			if strings.Contains(haystack, folded[i]) {
				*hits = append(*hits, KeywordHit{
					Path:    path,
					Keyword: kw,
					Context: truncate(tv, contextRunes),
				})
			}
		}
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
